package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/hamilton/internal/messaging"
	"github.com/banshee-data/hamilton/internal/motion"
)

func TestMQTTPublisher_Publish(t *testing.T) {
	broker := &messaging.FakeBroker{}
	pub := NewMQTTPublisher(broker, "hamilton/pose")

	snap := Snapshot{
		At:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Robot:   Pose{X: 0.5, Y: 0.4, Yaw: 0.1},
		Target:  &Pose{X: 0.6, Y: 0.4},
		Mode:    "seeking",
		Command: motion.NewMoveCommand(0.5, 0, 0.2),
	}
	require.NoError(t, pub.Publish(context.Background(), snap))

	msgs := broker.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "hamilton/pose", msgs[0].Topic)
	assert.Equal(t, byte(0), msgs[0].QoS)
	assert.False(t, msgs[0].Retained)

	var got Snapshot
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &got))
	assert.Equal(t, snap, got)
}

func TestMQTTPublisher_OmitsMissingTarget(t *testing.T) {
	broker := &messaging.FakeBroker{}
	pub := NewMQTTPublisher(broker, "pose")

	require.NoError(t, pub.Publish(context.Background(), Snapshot{Mode: "holding"}))

	var raw map[string]any
	require.NoError(t, json.Unmarshal(broker.Messages()[0].Payload, &raw))
	assert.NotContains(t, raw, "target")
}

func TestMQTTPublisher_Errors(t *testing.T) {
	broker := &messaging.FakeBroker{PublishErr: errors.New("not connected")}
	pub := NewMQTTPublisher(broker, "pose")
	assert.ErrorContains(t, pub.Publish(context.Background(), Snapshot{}), "not connected")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewMQTTPublisher(&messaging.FakeBroker{}, "pose").Publish(ctx, Snapshot{}), context.Canceled)
}
