// Package redisbus carries events over Redis pub/sub.
package redisbus

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"limitguard/internal/domain"
	"limitguard/internal/events"
)

// Bus publishes event envelopes to a Redis channel and feeds received
// envelopes to a dispatcher. Redis pub/sub does not buffer for absent
// subscribers, so delivery is best-effort.
type Bus struct {
	client  redis.UniversalClient
	channel string
	log     logrus.FieldLogger
	now     func() time.Time
}

// New creates a Bus on channel.
func New(client redis.UniversalClient, channel string, log logrus.FieldLogger) *Bus {
	return &Bus{
		client:  client,
		channel: channel,
		log:     log.WithFields(logrus.Fields{"component": "redisbus", "channel": channel}),
		now:     time.Now,
	}
}

// Publish encodes event and publishes it on the bus channel.
func (b *Bus) Publish(ctx context.Context, event domain.Event) error {
	data, err := events.Encode(event, b.now())
	if err != nil {
		return fmt.Errorf("redisbus.Publish: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("redisbus.Publish: %w", err)
	}
	return nil
}

// Run subscribes to the channel and dispatches every message until ctx is
// canceled. Messages that fail to decode are logged and dropped.
func (b *Bus) Run(ctx context.Context, dispatcher *events.Dispatcher) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redisbus.Run: receive confirmation: %w", err)
	}
	b.log.Info("subscribed")

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			if err := dispatcher.DispatchRaw(ctx, []byte(msg.Payload)); err != nil {
				b.log.WithError(err).Error("dispatch failed")
			}
		}
	}
}
