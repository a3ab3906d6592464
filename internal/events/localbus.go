package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"limitguard/internal/domain"
)

// ErrQueueFull is returned by LocalBus.Publish when the buffer is saturated.
var ErrQueueFull = errors.New("event queue full")

// LocalBusConfig holds settings for the in-process bus.
type LocalBusConfig struct {
	QueueSize      int
	Concurrency    int
	MaxAttempts    int
	RetryBackoff   time.Duration
	HandlerTimeout time.Duration
}

func (c *LocalBusConfig) applyDefaults() {
	if c.QueueSize <= 0 {
		c.QueueSize = 1024
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 200 * time.Millisecond
	}
	if c.HandlerTimeout <= 0 {
		c.HandlerTimeout = 30 * time.Second
	}
}

// LocalBus is an in-process event channel. Publish only enqueues; a bounded
// pool of workers runs the dispatcher, so slow handlers never block publishers.
type LocalBus struct {
	dispatcher *Dispatcher
	cfg        LocalBusConfig
	queue      chan domain.Event
	log        logrus.FieldLogger
	wg         sync.WaitGroup
}

// NewLocalBus creates a LocalBus feeding dispatcher.
func NewLocalBus(dispatcher *Dispatcher, cfg LocalBusConfig, log logrus.FieldLogger) *LocalBus {
	cfg.applyDefaults()
	return &LocalBus{
		dispatcher: dispatcher,
		cfg:        cfg,
		queue:      make(chan domain.Event, cfg.QueueSize),
		log:        log.WithField("component", "localbus"),
	}
}

// Publish enqueues event without waiting for handlers.
func (b *LocalBus) Publish(ctx context.Context, event domain.Event) error {
	select {
	case b.queue <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Start runs the worker loop until ctx is canceled. It blocks until all
// in-flight handlers have finished.
func (b *LocalBus) Start(ctx context.Context) {
	sem := make(chan struct{}, b.cfg.Concurrency)

	b.log.WithFields(logrus.Fields{
		"concurrency":  b.cfg.Concurrency,
		"max_attempts": b.cfg.MaxAttempts,
	}).Info("started")

	for {
		select {
		case <-ctx.Done():
			b.log.Info("shutting down, waiting for in-flight handlers")
			b.wg.Wait()
			b.log.Info("shutdown complete")
			return
		case event := <-b.queue:
			sem <- struct{}{}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				defer func() { <-sem }()
				b.deliver(event)
			}()
		}
	}
}

// deliver runs the handlers with a context detached from the bus lifetime so
// an event in flight during shutdown still completes.
func (b *LocalBus) deliver(event domain.Event) {
	entry := b.log.WithFields(logrus.Fields{"event": event.Name(), "tenant_id": event.Tenant()})
	for attempt := 1; attempt <= b.cfg.MaxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), b.cfg.HandlerTimeout)
		err := b.dispatcher.Dispatch(ctx, event)
		cancel()
		if err == nil {
			return
		}
		entry.WithError(err).WithField("attempt", attempt).Warn("handler failed")
		if attempt < b.cfg.MaxAttempts {
			time.Sleep(b.cfg.RetryBackoff * time.Duration(attempt))
		}
	}
	entry.Error("dropping event after final attempt")
}
