package mqtt

import "sync"

// Message is one recorded publish.
type Message struct {
	Topic    string
	QoS      byte
	Retained bool
	Payload  []byte
}

// FakeBus records publishes and lets tests deliver messages to subscribers.
type FakeBus struct {
	mu       sync.Mutex
	handlers map[string]func([]byte)

	// Published contains every accepted publish.
	Published []Message

	// PublishError, if set, will be returned by Publish.
	PublishError error

	// Closed tracks if Close was called.
	Closed bool
}

func NewFakeBus() *FakeBus {
	return &FakeBus{handlers: make(map[string]func([]byte))}
}

func (f *FakeBus) Publish(topic string, qos byte, retained bool, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Published = append(f.Published, Message{Topic: topic, QoS: qos, Retained: retained, Payload: payload})
	return nil
}

func (f *FakeBus) Subscribe(topic string, _ byte, handler func([]byte)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topic] = handler
	return nil
}

// Deliver invokes the handler subscribed to topic. It reports false when
// nothing is subscribed.
func (f *FakeBus) Deliver(topic string, payload []byte) bool {
	f.mu.Lock()
	h, ok := f.handlers[topic]
	f.mu.Unlock()
	if !ok {
		return false
	}
	h(payload)
	return true
}

// Last returns the most recent publish, if any.
func (f *FakeBus) Last() (Message, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Published) == 0 {
		return Message{}, false
	}
	return f.Published[len(f.Published)-1], true
}

func (f *FakeBus) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}
