package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"limitguard/internal/domain"
	"limitguard/internal/events"
)

func TestEncodeDecode_FieldsUpdated(t *testing.T) {
	in := domain.FieldsUpdated{
		DocumentID:   "doc-1",
		TenantID:     "tenant-1",
		ChangedPaths: []string{"totals.gross_amount"},
		DocumentDate: "2024-03-10",
	}
	at := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

	data, err := events.Encode(in, at)
	require.NoError(t, err)

	env, out, err := events.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, domain.EventFieldsUpdated, env.Name)
	assert.Equal(t, at, env.OccurredAt)
	assert.NotEqual(t, uuid.Nil, env.ID)
	assert.Equal(t, in, out)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Payload, &raw))
	assert.Equal(t, "doc-1", raw["doc_id"])
}

func TestDecode_LimitsRecalculatedKeepsDecimals(t *testing.T) {
	data, err := events.Encode(domain.LimitsRecalculated{
		TenantID:    "tenant-1",
		Year:        2024,
		State:       domain.StateAtLimit,
		Accumulated: decimal.RequireFromString("1000.10"),
		Forecast:    decimal.RequireFromString("1200"),
	}, time.Now())
	require.NoError(t, err)

	_, out, err := events.Decode(data)
	require.NoError(t, err)
	got, ok := out.(domain.LimitsRecalculated)
	require.True(t, ok)
	assert.True(t, got.Accumulated.Equal(decimal.RequireFromString("1000.1")))
	assert.Equal(t, domain.StateAtLimit, got.State)
}

func TestDecode_Rejects(t *testing.T) {
	_, _, err := events.Decode([]byte(`{"name":"DocumentDeleted","payload":{}}`))
	assert.ErrorIs(t, err, domain.ErrUnknownEvent)

	_, _, err = events.Decode([]byte(`{"name":"FieldsUpdated","payload":{"doc_id":"d"}}`))
	assert.Error(t, err)

	_, _, err = events.Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestDispatcher_RunsAllHandlersAndJoinsErrors(t *testing.T) {
	d := events.NewDispatcher()
	boom := errors.New("boom")
	var calls []string
	d.Register(domain.EventFieldsUpdated, func(context.Context, domain.Event) error {
		calls = append(calls, "first")
		return boom
	})
	d.Register(domain.EventFieldsUpdated, func(context.Context, domain.Event) error {
		calls = append(calls, "second")
		return nil
	})

	err := d.Dispatch(context.Background(), domain.FieldsUpdated{DocumentID: "d", TenantID: "t"})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first", "second"}, calls)
	assert.True(t, d.HasHandlers(domain.EventFieldsUpdated))
	assert.False(t, d.HasHandlers(domain.EventLimitsRecalculated))
	assert.NoError(t, d.Dispatch(context.Background(), domain.LimitsRecalculated{TenantID: "t"}))
}

func TestLocalBus_DeliversAndRetries(t *testing.T) {
	logger, _ := test.NewNullLogger()
	d := events.NewDispatcher()

	var attempts int32
	done := make(chan struct{})
	var once sync.Once
	d.Register(domain.EventFieldsUpdated, func(context.Context, domain.Event) error {
		if atomic.AddInt32(&attempts, 1) < 2 {
			return errors.New("transient")
		}
		once.Do(func() { close(done) })
		return nil
	})

	bus := events.NewLocalBus(d, events.LocalBusConfig{
		Concurrency:  2,
		MaxAttempts:  3,
		RetryBackoff: time.Millisecond,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		bus.Start(ctx)
		close(stopped)
	}()

	require.NoError(t, bus.Publish(context.Background(), domain.FieldsUpdated{DocumentID: "d", TenantID: "t"}))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("event not delivered")
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))

	cancel()
	<-stopped
}

func TestLocalBus_PublishReportsFullQueue(t *testing.T) {
	logger := logrus.New()
	bus := events.NewLocalBus(events.NewDispatcher(), events.LocalBusConfig{QueueSize: 1}, logger)

	require.NoError(t, bus.Publish(context.Background(), domain.FieldsUpdated{DocumentID: "d", TenantID: "t"}))
	assert.ErrorIs(t, bus.Publish(context.Background(), domain.FieldsUpdated{DocumentID: "d", TenantID: "t"}), events.ErrQueueFull)
}
