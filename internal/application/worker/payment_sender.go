package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/application/contracts"
	paymentApp "github.com/rcarvalho-pb/mycryptocheckout-go/internal/application/payment"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/domain/event"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/domain/order"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/domain/payment"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/infra/logging"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/infra/metrics"
)

// DefaultMaxAttempts is two days of hourly sweeps.
const DefaultMaxAttempts = 48

type PaymentAdder interface {
	Add(ctx context.Context, p *payment.Payment) (int64, error)
	Save(ctx context.Context, p *payment.Payment) error
}

// PaymentSender registers order payments with the server. At most one
// creation call per order is in flight at any time.
type PaymentSender struct {
	Orders      order.Repository
	Payments    PaymentAdder
	Recorder    contracts.EventRecorder
	Tenant      *payment.Tenant
	MaxAttempts int
	Logger      *slog.Logger
	Metrics     *metrics.Counters

	inflight singleflight.Group
}

// SweepResult summarises one SendUnsent run.
type SweepResult struct {
	Sent      []string `json:"sent"`
	Failed    []string `json:"failed"`
	Abandoned []string `json:"abandoned"`
}

// Send creates the payment of the order and returns its server id. Orders
// that already have an id, including the give-up sentinel, are not resent.
func (s *PaymentSender) Send(ctx context.Context, ref string) (int64, error) {
	v, err, _ := s.inflight.Do(ref, func() (any, error) {
		return s.send(ctx, ref)
	})
	id, _ := v.(int64)
	return id, err
}

func (s *PaymentSender) send(ctx context.Context, ref string) (int64, error) {
	log := logging.DefaultIfNil(s.Logger).With(slog.String("order", ref))

	o, err := s.Orders.FindByRef(ctx, ref)
	if err != nil {
		return 0, err
	}
	if !o.Unsent() {
		log.DebugContext(ctx, "order already has a payment id", slog.Int64("payment_id", o.PaymentID))
		return o.PaymentID, nil
	}

	p := paymentApp.FromOrder(o, s.Tenant)

	id, sendErr := s.Payments.Add(ctx, p)
	if sendErr == nil {
		return id, s.succeeded(ctx, log, o, p, id)
	}

	return 0, s.failed(ctx, log, o, sendErr)
}

func (s *PaymentSender) succeeded(ctx context.Context, log *slog.Logger, o *order.Order, p *payment.Payment, id int64) error {
	if err := s.Orders.SetPaymentID(ctx, o.Ref, id); err != nil {
		// The server already holds this payment; a later sweep would create
		// another one.
		log.ErrorContext(ctx, "payment created on server but not recorded on order",
			slog.Int64("payment_id", id), logging.Error(err))
		return fmt.Errorf("record payment id %d for order %s: %w", id, o.Ref, err)
	}
	if err := s.Orders.SetAttempts(ctx, o.Ref, 0); err != nil {
		return err
	}

	p.Attempts = 0
	if err := p.SetID(id); err != nil {
		return err
	}
	if err := s.Payments.Save(ctx, p); err != nil {
		return err
	}

	s.metrics().IncSendsSucceeded()
	log.InfoContext(ctx, "payment sent", slog.Int64("payment_id", id))
	return nil
}

func (s *PaymentSender) failed(ctx context.Context, log *slog.Logger, o *order.Order, sendErr error) error {
	s.metrics().IncSendsFailed()

	attempts := o.Attempts + 1
	if attempts <= s.maxAttempts() {
		if err := s.Orders.SetAttempts(ctx, o.Ref, attempts); err != nil {
			return errors.Join(sendErr, err)
		}
		log.WarnContext(ctx, "payment send failed, will retry",
			slog.Int("attempts", attempts), logging.Error(sendErr))
		return fmt.Errorf("send payment for order %s: %w", o.Ref, sendErr)
	}

	if err := s.Orders.SetPaymentID(ctx, o.Ref, payment.FailedID); err != nil {
		return errors.Join(sendErr, err)
	}
	s.metrics().IncSendsAbandoned()

	if s.Recorder != nil {
		err := s.Recorder.Record(event.Event{
			Type: event.PaymentAbandoned,
			Payload: event.PaymentAbandonedPayload{
				OrderRef: o.Ref,
				Attempts: attempts,
				Reason:   sendErr.Error(),
			},
		})
		if err != nil {
			log.ErrorContext(ctx, "failed to record abandoned payment", logging.Error(err))
		}
	}

	budgetErr := &contracts.RetryBudgetExceededError{OrderRef: o.Ref, Attempts: attempts, Err: sendErr}
	log.ErrorContext(ctx, "giving up on payment", logging.Error(budgetErr))
	return budgetErr
}

// SendUnsent sends every order without a payment id, one after another. A
// failing order never stops the sweep.
func (s *PaymentSender) SendUnsent(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	refs, err := s.Orders.FindUnsent(ctx)
	if err != nil {
		return result, err
	}

	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		_, err := s.Send(ctx, ref)

		var budgetErr *contracts.RetryBudgetExceededError
		switch {
		case err == nil:
			result.Sent = append(result.Sent, ref)
		case errors.As(err, &budgetErr):
			result.Abandoned = append(result.Abandoned, ref)
		default:
			result.Failed = append(result.Failed, ref)
		}
	}

	return result, nil
}

func (s *PaymentSender) maxAttempts() int {
	if s.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return s.MaxAttempts
}

func (s *PaymentSender) metrics() *metrics.Counters {
	if s.Metrics == nil {
		return &metrics.Counters{}
	}
	return s.Metrics
}
