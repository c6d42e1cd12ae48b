package outbox

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/domain/event"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/infra/logging"
)

type EventPublisher interface {
	Publish(event.Event) error
}

// Dispatcher publishes outbox events. Batches never overlap, so the poll loop
// and the retry scheduler can share one dispatcher without publishing an
// event twice.
type Dispatcher struct {
	Repo         Repository
	EventBus     EventPublisher
	PollInterval time.Duration
	BatchSize    int
	Logger       *slog.Logger

	mu sync.Mutex
}

func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.DispatchOnce(ctx)
		}
	}
}

// DispatchOnce publishes one batch. Events that fail to publish stay in the
// outbox for the next run.
func (d *Dispatcher) DispatchOnce(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	log := logging.DefaultIfNil(d.Logger)

	events, err := d.Repo.FindUnpublished(d.BatchSize)
	if err != nil {
		log.ErrorContext(ctx, "failed to read outbox", logging.Error(err))
		return
	}

	for _, evt := range events {
		payload, err := decodePayload(evt)
		if err != nil {
			log.ErrorContext(ctx, "dropping undecodable outbox event",
				slog.String("id", evt.ID), logging.Error(err))
			_ = d.Repo.MarkPublished(evt.ID)
			continue
		}

		if err := d.EventBus.Publish(event.Event{Type: evt.Type, Payload: payload}); err != nil {
			log.WarnContext(ctx, "failed to publish outbox event",
				slog.String("id", evt.ID), logging.Error(err))
			continue
		}

		if err := d.Repo.MarkPublished(evt.ID); err != nil {
			log.ErrorContext(ctx, "failed to mark outbox event", slog.String("id", evt.ID), logging.Error(err))
		}
	}
}

func decodePayload(evt OutboxEvent) (any, error) {
	switch evt.Type {
	case event.PaymentAbandoned:
		var p event.PaymentAbandonedPayload
		err := json.Unmarshal(evt.Payload, &p)
		return p, err
	default:
		var p any
		err := json.Unmarshal(evt.Payload, &p)
		return p, err
	}
}
