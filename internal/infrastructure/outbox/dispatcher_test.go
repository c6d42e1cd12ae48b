package outbox_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/go-softwarelab/common/pkg/slogx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/domain/event"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/infrastructure/outbox"
)

type fakeBus struct {
	published []event.Event
	fail      bool
}

func (f *fakeBus) Publish(evt event.Event) error {
	if f.fail {
		return errors.New("bus down")
	}
	f.published = append(f.published, evt)
	return nil
}

type countingBus struct {
	mu    sync.Mutex
	count int
}

func (c *countingBus) Publish(event.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	return nil
}

func TestDispatcher_ConcurrentDispatchPublishesOnce(t *testing.T) {
	db := setupTestDB(t)
	repo := outbox.NewSQLiteRepository(db)
	bus := &countingBus{}

	dispatcher := &outbox.Dispatcher{
		Repo:      repo,
		EventBus:  bus,
		BatchSize: 10,
		Logger:    slogx.NewTestLogger(t),
	}

	recorder := &outbox.Recorder{Repo: repo}
	require.NoError(t, recorder.Record(event.Event{
		Type:    event.PaymentAbandoned,
		Payload: event.PaymentAbandonedPayload{OrderRef: "order-3", Attempts: 48},
	}))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dispatcher.DispatchOnce(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, bus.count)
}

func TestDispatcher_ShouldPublishAndMarkEvent(t *testing.T) {
	db := setupTestDB(t)
	repo := outbox.NewSQLiteRepository(db)
	bus := &fakeBus{}

	dispatcher := &outbox.Dispatcher{
		Repo:      repo,
		EventBus:  bus,
		BatchSize: 10,
		Logger:    slogx.NewTestLogger(t),
	}

	recorder := &outbox.Recorder{Repo: repo}
	err := recorder.Record(event.Event{
		Type: event.PaymentAbandoned,
		Payload: event.PaymentAbandonedPayload{
			OrderRef: "order-1",
			Attempts: 49,
			Reason:   "server unreachable",
		},
	})
	require.NoError(t, err)

	dispatcher.DispatchOnce(context.Background())

	require.Len(t, bus.published, 1)
	payload, ok := bus.published[0].Payload.(event.PaymentAbandonedPayload)
	require.True(t, ok)
	assert.Equal(t, "order-1", payload.OrderRef)
	assert.Equal(t, 49, payload.Attempts)

	events, err := repo.FindUnpublished(10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestDispatcher_KeepsEventWhenPublishFails(t *testing.T) {
	db := setupTestDB(t)
	repo := outbox.NewSQLiteRepository(db)

	dispatcher := &outbox.Dispatcher{
		Repo:      repo,
		EventBus:  &fakeBus{fail: true},
		BatchSize: 10,
		Logger:    slogx.NewTestLogger(t),
	}

	recorder := &outbox.Recorder{Repo: repo}
	require.NoError(t, recorder.Record(event.Event{
		Type:    event.PaymentAbandoned,
		Payload: event.PaymentAbandonedPayload{OrderRef: "order-2"},
	}))

	dispatcher.DispatchOnce(context.Background())

	events, err := repo.FindUnpublished(10)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
