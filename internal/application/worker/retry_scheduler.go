package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/infra/logging"
)

// DefaultInterval paces sweeps so that DefaultMaxAttempts spans two days.
const DefaultInterval = time.Hour

type UnsentSender interface {
	SendUnsent(ctx context.Context) (SweepResult, error)
}

type OutboxDispatcher interface {
	DispatchOnce(ctx context.Context)
}

// RetryScheduler periodically resends unsent payments and flushes the
// outbox. Sweeps never overlap.
type RetryScheduler struct {
	Sender     UnsentSender
	Dispatcher OutboxDispatcher
	Interval   time.Duration
	Logger     *slog.Logger
}

func (r *RetryScheduler) Run(ctx context.Context) {
	interval := r.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick runs one sweep followed by an outbox flush.
func (r *RetryScheduler) Tick(ctx context.Context) {
	log := logging.DefaultIfNil(r.Logger)

	result, err := r.Sender.SendUnsent(ctx)
	if err != nil {
		log.ErrorContext(ctx, "unsent payment sweep failed", logging.Error(err))
	} else if len(result.Sent)+len(result.Failed)+len(result.Abandoned) > 0 {
		log.InfoContext(ctx, "unsent payment sweep done",
			slog.Int("sent", len(result.Sent)),
			slog.Int("failed", len(result.Failed)),
			slog.Int("abandoned", len(result.Abandoned)))
	}

	if r.Dispatcher != nil {
		r.Dispatcher.DispatchOnce(ctx)
	}
}
