package messaging

import (
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// FakeToken is an mqtt.Token that is already complete unless Pending.
type FakeToken struct {
	Err     error
	Pending bool
}

func (t *FakeToken) Wait() bool                     { return !t.Pending }
func (t *FakeToken) WaitTimeout(time.Duration) bool { return !t.Pending }
func (t *FakeToken) Error() error                   { return t.Err }

func (t *FakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if !t.Pending {
		close(ch)
	}
	return ch
}

// Published is one message captured by FakeBroker.
type Published struct {
	Topic    string
	QoS      byte
	Retained bool
	Payload  []byte
}

// FakeBroker records publishes and routes them to local subscriptions. It
// implements Publisher and Subscriber for tests.
type FakeBroker struct {
	mu       sync.Mutex
	messages []Published
	handlers map[string]mqtt.MessageHandler

	// PublishErr and SubscribeErr are returned through the token if set.
	PublishErr   error
	SubscribeErr error
}

// Publish implements Publisher.
func (b *FakeBroker) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	var data []byte
	switch p := payload.(type) {
	case []byte:
		data = p
	case string:
		data = []byte(p)
	}

	b.mu.Lock()
	if b.PublishErr != nil {
		err := b.PublishErr
		b.mu.Unlock()
		return &FakeToken{Err: err}
	}
	b.messages = append(b.messages, Published{Topic: topic, QoS: qos, Retained: retained, Payload: data})
	h := b.handlers[topic]
	b.mu.Unlock()

	if h != nil {
		h(nil, &fakeMessage{topic: topic, payload: data})
	}
	return &FakeToken{}
}

// Subscribe implements Subscriber. Wildcards are not supported.
func (b *FakeBroker) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.SubscribeErr != nil {
		return &FakeToken{Err: b.SubscribeErr}
	}
	if b.handlers == nil {
		b.handlers = make(map[string]mqtt.MessageHandler)
	}
	b.handlers[topic] = callback
	return &FakeToken{}
}

// Messages returns a copy of everything published so far.
func (b *FakeBroker) Messages() []Published {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Published(nil), b.messages...)
}

// Topics lists subscribed topics.
func (b *FakeBroker) Topics() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.handlers))
	for t := range b.handlers {
		out = append(out, t)
	}
	return out
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 0 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 0 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}
