package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// Options configures a broker connection.
type Options struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	StatusTopic string
}

// RealBus talks to an actual MQTT broker.
type RealBus struct {
	client paho.Client
	status string
}

// Dial connects to the broker. When StatusTopic is set, a retained "offline"
// will is registered and "online" is published once connected.
func Dial(o Options) (*RealBus, error) {
	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)
	if o.Username != "" {
		opts.SetUsername(o.Username)
		opts.SetPassword(o.Password)
	}
	if o.StatusTopic != "" {
		opts.SetWill(o.StatusTopic, "offline", 1, true)
	}

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	b := &RealBus{client: client, status: o.StatusTopic}
	if b.status != "" {
		if err := b.Publish(b.status, 1, true, []byte("online")); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (b *RealBus) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := b.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (b *RealBus) Subscribe(topic string, qos byte, handler func(payload []byte)) error {
	token := b.client.Subscribe(topic, qos, func(_ paho.Client, msg paho.Message) {
		handler(msg.Payload())
	})
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("subscribe %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

// Close publishes "offline" when a status topic is set and disconnects.
func (b *RealBus) Close() error {
	if b.status != "" {
		_ = b.Publish(b.status, 1, true, []byte("offline"))
	}
	b.client.Disconnect(1000)
	return nil
}
