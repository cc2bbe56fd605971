package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTConfig configures the push broker connection.
type MQTTConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// Publisher publishes a payload to a topic.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// MQTTClient wraps a paho client.
type MQTTClient struct {
	client mqtt.Client
}

// NewMQTTClient connects to the broker.
func NewMQTTClient(cfg MQTTConfig) (*MQTTClient, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to mqtt broker: %w", token.Error())
	}
	return &MQTTClient{client: client}, nil
}

// Publish implements Publisher.
func (c *MQTTClient) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("publish to %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (c *MQTTClient) Close() {
	c.client.Disconnect(250)
}

type pushPayload struct {
	Subject  string            `json:"subject"`
	Body     string            `json:"body"`
	Priority string            `json:"priority,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
	SentAt   time.Time         `json:"sent_at"`
}

// PushSender delivers push notifications as MQTT messages on a per-recipient topic.
type PushSender struct {
	publisher Publisher
	prefix    string
	now       func() time.Time
}

// NewPushSender builds a push sender on top of publisher.
func NewPushSender(publisher Publisher, topicPrefix string) *PushSender {
	prefix := strings.TrimSuffix(topicPrefix, "/")
	if prefix == "" {
		prefix = "hostel/staff"
	}
	return &PushSender{publisher: publisher, prefix: prefix, now: time.Now}
}

// Topic returns the topic a recipient subscribes to.
func (s *PushSender) Topic(recipientID string) string {
	return s.prefix + "/" + recipientID
}

// Send implements Sender.
func (s *PushSender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoAddress
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(pushPayload{
		Subject:  msg.Subject,
		Body:     msg.Body,
		Priority: msg.Priority,
		Metadata: msg.Metadata,
		SentAt:   s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode push payload: %w", err)
	}
	return s.publisher.Publish(s.Topic(msg.To), 1, false, payload)
}
