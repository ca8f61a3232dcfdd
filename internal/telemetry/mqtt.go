package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/banshee-data/hamilton/internal/messaging"
)

// DefaultPublishTimeout bounds how long a tick waits for the broker.
const DefaultPublishTimeout = 50 * time.Millisecond

// MQTTPublisher writes JSON snapshots to a single topic at QoS 0.
type MQTTPublisher struct {
	client  messaging.Publisher
	topic   string
	timeout time.Duration
}

// NewMQTTPublisher publishes to topic through client.
func NewMQTTPublisher(client messaging.Publisher, topic string) *MQTTPublisher {
	return &MQTTPublisher{client: client, topic: topic, timeout: DefaultPublishTimeout}
}

// Topic returns the destination topic.
func (p *MQTTPublisher) Topic() string { return p.topic }

// Publish implements Sink.
func (p *MQTTPublisher) Publish(ctx context.Context, s Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := messaging.Wait(p.client.Publish(p.topic, 0, false, payload), p.timeout); err != nil {
		return fmt.Errorf("publish %s: %w", p.topic, err)
	}
	return nil
}
