package mq

import (
	"context"
	"errors"
	"strings"
	"sync"

	"cloud.google.com/go/pubsub"
	"github.com/attendance-hq/apiserver/config"
	"google.golang.org/api/option"
)

// PubSubClient publishes attendance events to Google Cloud Pub/Sub topics.
// Messages carrying AttrOrderingKey are published with message ordering so
// one employee's check-in and check-out reach subscribers in order.
type PubSubClient struct {
	client             *pubsub.Client
	subscriptionSuffix string

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
}

// NewPubSubClient constructs a Pub/Sub client from config.
func NewPubSubClient(ctx context.Context, cfg config.PubSubConfig) (*PubSubClient, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errors.New("pubsub project id is required")
	}

	var opts []option.ClientOption
	if strings.TrimSpace(cfg.CredentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, err
	}

	suffix := cfg.SubscriptionSuffix
	if suffix == "" {
		suffix = "-sub"
	}

	return &PubSubClient{
		client:             client,
		subscriptionSuffix: suffix,
		topics:             make(map[string]*pubsub.Topic),
	}, nil
}

// Publish sends a message to the named topic and waits for the server ack.
func (p *PubSubClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("pubsub channel is required")
	}

	topic, err := p.topic(ctx, channel)
	if err != nil {
		return "", err
	}

	msg := pubsubMessage(data, attrs)
	id, err := topic.Publish(ctx, msg).Get(ctx)
	if err != nil && msg.OrderingKey != "" {
		// A failed ordered publish pauses the key until resumed.
		topic.ResumePublish(msg.OrderingKey)
	}
	return id, err
}

// Subscribe consumes messages from the subscription attached to channel.
func (p *PubSubClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("pubsub channel is required")
	}

	topic, err := p.topic(ctx, channel)
	if err != nil {
		return err
	}

	sub, err := p.ensureSubscription(ctx, p.subscriptionName(channel), topic)
	if err != nil {
		return err
	}

	return sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if err := handler(ctx, messageFromPubSub(msg)); err != nil {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// Close flushes pending publishes and closes the underlying client.
func (p *PubSubClient) Close() error {
	p.mu.Lock()
	for name, topic := range p.topics {
		topic.Stop()
		delete(p.topics, name)
	}
	p.mu.Unlock()
	return p.client.Close()
}

// topic returns the cached handle for name, creating the topic on first use.
func (p *PubSubClient) topic(ctx context.Context, name string) (*pubsub.Topic, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if topic, ok := p.topics[name]; ok {
		return topic, nil
	}

	topic := p.client.Topic(name)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		topic, err = p.client.CreateTopic(ctx, name)
		if err != nil {
			return nil, err
		}
	}
	topic.EnableMessageOrdering = true
	p.topics[name] = topic
	return topic, nil
}

func (p *PubSubClient) ensureSubscription(ctx context.Context, name string, topic *pubsub.Topic) (*pubsub.Subscription, error) {
	sub := p.client.Subscription(name)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return p.client.CreateSubscription(ctx, name, pubsub.SubscriptionConfig{
			Topic:                 topic,
			EnableMessageOrdering: true,
		})
	}
	return sub, nil
}

func (p *PubSubClient) subscriptionName(channel string) string {
	if p.subscriptionSuffix == "" {
		return channel
	}
	return channel + p.subscriptionSuffix
}

// pubsubMessage moves AttrOrderingKey out of the attributes and into the
// message ordering key.
func pubsubMessage(data []byte, attrs map[string]string) *pubsub.Message {
	msg := &pubsub.Message{Data: data}
	if len(attrs) == 0 {
		return msg
	}

	msg.Attributes = make(map[string]string, len(attrs))
	for key, value := range attrs {
		if key == AttrOrderingKey {
			msg.OrderingKey = value
			continue
		}
		msg.Attributes[key] = value
	}
	return msg
}

// messageFromPubSub restores the ordering key as an attribute so handlers
// see the same attributes under every backend.
func messageFromPubSub(msg *pubsub.Message) Message {
	attrs := make(map[string]string, len(msg.Attributes)+1)
	for key, value := range msg.Attributes {
		attrs[key] = value
	}
	if msg.OrderingKey != "" {
		attrs[AttrOrderingKey] = msg.OrderingKey
	}
	return Message{ID: msg.ID, Data: msg.Data, Attributes: attrs}
}
