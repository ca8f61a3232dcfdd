// Package messaging holds the MQTT connection shared by telemetry publishing
// and the remote-control inbox.
package messaging

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/banshee-data/hamilton/internal/monitoring"
)

var logf = monitoring.Subsystem("mqtt")

// Config locates the broker.
type Config struct {
	Broker      string `json:"broker" yaml:"broker"`
	ClientID    string `json:"client_id" yaml:"client_id"`
	TopicPrefix string `json:"topic_prefix" yaml:"topic_prefix"`
}

// DefaultConfig talks to a broker on the robot itself.
func DefaultConfig() Config {
	return Config{
		Broker:      "tcp://localhost:1883",
		ClientID:    "hamilton",
		TopicPrefix: "hamilton",
	}
}

// Topic joins the prefix and name with a slash.
func (c Config) Topic(name string) string {
	prefix := strings.TrimSuffix(c.TopicPrefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// Validate checks the broker URL and client id.
func (c Config) Validate() error {
	if c.Broker == "" {
		return errors.New("mqtt broker is required")
	}
	if !strings.Contains(c.Broker, "://") {
		return fmt.Errorf("mqtt broker %q must include a scheme such as tcp://", c.Broker)
	}
	if c.ClientID == "" {
		return errors.New("mqtt client id is required")
	}
	return nil
}

// Publisher is the publishing half of mqtt.Client.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Subscriber is the subscribing half of mqtt.Client.
type Subscriber interface {
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
}

// Connect dials the broker, retrying in the background until it answers.
func Connect(cfg Config) (mqtt.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logf("connection lost: %v", err)
		}).
		SetOnConnectHandler(func(mqtt.Client) {
			logf("connected to %s", cfg.Broker)
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return client, nil
}

// Wait blocks on tok for at most timeout and returns its error.
func Wait(tok mqtt.Token, timeout time.Duration) error {
	if !tok.WaitTimeout(timeout) {
		return fmt.Errorf("mqtt: no acknowledgement within %v", timeout)
	}
	return tok.Error()
}
