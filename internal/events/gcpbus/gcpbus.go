// Package gcpbus carries events over Google Cloud Pub/Sub.
package gcpbus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"limitguard/internal/domain"
	"limitguard/internal/events"
)

// Config holds Pub/Sub connection settings.
type Config struct {
	ProjectID       string
	Topic           string
	Subscription    string
	CredentialsJSON string
	MaxOutstanding  int
}

// Bus publishes envelopes to a topic and receives them from a subscription.
// Failed deliveries are nacked so Pub/Sub redelivers them.
type Bus struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	sub    *pubsub.Subscription
	log    logrus.FieldLogger
	now    func() time.Time
}

// New connects to Pub/Sub, creating the topic and subscription when absent.
func New(ctx context.Context, cfg Config, log logrus.FieldLogger) (*Bus, error) {
	if cfg.ProjectID == "" || cfg.Topic == "" {
		return nil, errors.New("gcpbus.New: project id and topic are required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcpbus.New: client: %w", err)
	}

	topic, err := ensureTopic(ctx, client, cfg.Topic)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	b := &Bus{
		client: client,
		topic:  topic,
		log:    log.WithFields(logrus.Fields{"component": "gcpbus", "topic": cfg.Topic}),
		now:    time.Now,
	}

	if cfg.Subscription != "" {
		sub, err := ensureSubscription(ctx, client, cfg.Subscription, topic)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		if cfg.MaxOutstanding > 0 {
			sub.ReceiveSettings.MaxOutstandingMessages = cfg.MaxOutstanding
		}
		b.sub = sub
	}
	return b, nil
}

func ensureTopic(ctx context.Context, c *pubsub.Client, name string) (*pubsub.Topic, error) {
	t := c.Topic(name)
	ok, err := t.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcpbus: topic %q exists: %w", name, err)
	}
	if ok {
		return t, nil
	}
	t, err = c.CreateTopic(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("gcpbus: create topic %q: %w", name, err)
	}
	return t, nil
}

func ensureSubscription(ctx context.Context, c *pubsub.Client, name string, topic *pubsub.Topic) (*pubsub.Subscription, error) {
	sub := c.Subscription(name)
	ok, err := sub.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcpbus: subscription %q exists: %w", name, err)
	}
	if ok {
		return sub, nil
	}
	sub, err = c.CreateSubscription(ctx, name, pubsub.SubscriptionConfig{
		Topic:       topic,
		AckDeadline: 60 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("gcpbus: create subscription %q: %w", name, err)
	}
	return sub, nil
}

// Publish encodes event and waits for the server to accept it.
func (b *Bus) Publish(ctx context.Context, event domain.Event) error {
	data, err := events.Encode(event, b.now())
	if err != nil {
		return fmt.Errorf("gcpbus.Publish: %w", err)
	}
	result := b.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"name": string(event.Name()), "tenant_id": event.Tenant()},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("gcpbus.Publish: %w", err)
	}
	return nil
}

// Run receives messages until ctx is canceled. Undecodable messages are acked
// and dropped; handler failures are nacked for redelivery.
func (b *Bus) Run(ctx context.Context, dispatcher *events.Dispatcher) error {
	if b.sub == nil {
		return errors.New("gcpbus.Run: no subscription configured")
	}
	err := b.sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		_, event, err := events.Decode(msg.Data)
		if err != nil {
			b.log.WithError(err).WithField("message_id", msg.ID).Error("dropping undecodable message")
			msg.Ack()
			return
		}
		if err := dispatcher.Dispatch(ctx, event); err != nil {
			b.log.WithError(err).WithFields(logrus.Fields{
				"message_id": msg.ID,
				"event":      event.Name(),
				"tenant_id":  event.Tenant(),
			}).Error("processing failed")
			msg.Nack()
			return
		}
		msg.Ack()
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("gcpbus.Run: %w", err)
	}
	return nil
}

// Close stops the publisher and closes the client.
func (b *Bus) Close() error {
	b.topic.Stop()
	return b.client.Close()
}
