package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-softwarelab/common/pkg/to"

	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/application/contracts"
	domainAccount "github.com/rcarvalho-pb/mycryptocheckout-go/internal/domain/account"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/domain/message"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/domain/payment"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/infra/logging"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/infra/metrics"
)

type AccountStore interface {
	Account(ctx context.Context) (*domainAccount.Account, error)
	ConsumeRetrieveKey(ctx context.Context, key string) (bool, error)
	Adopt(ctx context.Context, data json.RawMessage) error
	SetData(ctx context.Context, data json.RawMessage) error
}

type PaymentStore interface {
	Locate(ctx context.Context, id int64, fields json.RawMessage, tenant *payment.Tenant) (*payment.Payment, error)
	CompleteLocal(ctx context.Context, p *payment.Payment, transactionID string) (int, error)
	CancelLocal(ctx context.Context, p *payment.Payment) (int, error)
}

type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.Counters
	Tenant  *payment.Tenant
}

// Processor applies server envelopes to the account and payment stores.
// Envelopes are processed one at a time.
type Processor struct {
	mu       sync.Mutex
	accounts AccountStore
	payments PaymentStore
	log      *slog.Logger
	metrics  *metrics.Counters
	tenant   *payment.Tenant
}

func New(accounts AccountStore, payments PaymentStore, opts ...func(*Options)) *Processor {
	cfg := to.OptionsWithDefault(Options{
		Logger:  slog.Default(),
		Metrics: &metrics.Counters{},
	}, opts...)

	return &Processor{
		accounts: accounts,
		payments: payments,
		log:      logging.Child(cfg.Logger, "MessageProcessor"),
		metrics:  cfg.Metrics,
		tenant:   cfg.Tenant,
	}
}

// Outcome records what happened to one message of an envelope.
type Outcome struct {
	Index   int
	Type    message.Type
	Applied int
	Err     error
}

// Failed reports whether the message hit an error other than the shop
// declining the action.
func (o Outcome) Failed() bool {
	var notApplied *contracts.ActionNotAppliedError
	return o.Err != nil && !errors.As(o.Err, &notApplied)
}

// Report summarises an envelope. Stale is set when the envelope was dropped
// before the dispatch pass.
type Report struct {
	Stale    *contracts.StaleEnvelopeError
	Outcomes []Outcome
}

// Process authenticates and applies env. A failing message is recorded on its
// outcome and the rest of the envelope still runs. An unknown message type
// stops the envelope; messages applied before it stay applied.
func (p *Processor) Process(ctx context.Context, env *message.Envelope) (Report, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var report Report

	if env == nil || env.Messages == nil {
		p.metrics.IncEnvelopesRejected()
		return report, message.ErrNoMessages
	}

	if err := p.retrieveAccounts(ctx, env); err != nil {
		p.metrics.IncEnvelopesRejected()
		return report, err
	}

	acc, err := p.accounts.Account(ctx)
	if err != nil {
		return report, err
	}

	if !acc.Valid() {
		report.Stale = &contracts.StaleEnvelopeError{Reason: contracts.StaleNoAccount}
	} else if acc.DomainKey != env.DomainKeyEcho {
		report.Stale = &contracts.StaleEnvelopeError{
			Reason:   contracts.StaleDomainKeyMismatch,
			Received: env.DomainKeyEcho,
		}
	}
	if report.Stale != nil {
		p.metrics.IncEnvelopesStale()
		p.log.InfoContext(ctx, "ignoring envelope",
			slog.String("reason", string(report.Stale.Reason)),
			logging.Error(report.Stale))
		return report, nil
	}

	for i, raw := range env.Messages {
		outcome, err := p.dispatch(ctx, i, raw)
		report.Outcomes = append(report.Outcomes, outcome)
		if err != nil {
			p.metrics.IncEnvelopesRejected()
			return report, err
		}
	}

	p.metrics.IncEnvelopesProcessed()
	return report, nil
}

// retrieveAccounts runs before anything else: a retrieve_account message is
// the only one that may create the account the other messages depend on.
func (p *Processor) retrieveAccounts(ctx context.Context, env *message.Envelope) error {
	for i, raw := range env.Messages {
		if raw.Type != message.TypeRetrieveAccount {
			continue
		}

		decoded, err := raw.Decode()
		if err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
		msg := decoded.(message.RetrieveAccount)

		ok, err := p.accounts.ConsumeRetrieveKey(ctx, msg.RetrieveKey)
		if err != nil {
			return err
		}
		if !ok {
			authErr := &contracts.AuthenticationError{Got: msg.RetrieveKey}
			p.log.ErrorContext(ctx, "retrieve keys do not match, rejecting envelope",
				slog.Int("index", i), logging.Error(authErr))
			return authErr
		}

		p.log.DebugContext(ctx, "setting new account data", slog.String("account", string(msg.Account)))
		if err := p.accounts.Adopt(ctx, msg.Account); err != nil {
			return err
		}
	}
	return nil
}

// dispatch applies one message. Only an unknown message type is returned as
// an error; every other failure is recorded on the outcome.
func (p *Processor) dispatch(ctx context.Context, index int, raw message.Raw) (Outcome, error) {
	outcome := Outcome{Index: index, Type: raw.Type}

	p.log.DebugContext(ctx, "processing message",
		slog.Int("index", index),
		slog.String("type", string(raw.Type)),
		slog.String("message", string(raw.Body())))

	decoded, err := raw.Decode()
	if errors.Is(err, message.ErrUnknownType) {
		err = &contracts.UnknownMessageError{Index: index, Type: string(raw.Type), Err: err}
		p.log.ErrorContext(ctx, "aborting envelope", slog.Int("index", index), logging.Error(err))
		outcome.Err = err
		return outcome, err
	}
	if err != nil {
		outcome.Err = fmt.Errorf("message %d: %w", index, err)
		return p.failed(ctx, outcome), nil
	}

	switch msg := decoded.(type) {
	case message.RetrieveAccount:
		// Applied in the first pass.

	case message.UpdateAccount:
		if outcome.Err = p.accounts.SetData(ctx, msg.Account); outcome.Err == nil {
			outcome.Applied = 1
		}

	case message.CompletePayment:
		outcome.Applied, outcome.Err = p.applyPayment(ctx, msg.Payment, func(pay *payment.Payment) (int, error) {
			return p.payments.CompleteLocal(ctx, pay, msg.Payment.TransactionID)
		})

	case message.CancelPayment:
		outcome.Applied, outcome.Err = p.applyPayment(ctx, msg.Payment, func(pay *payment.Payment) (int, error) {
			return p.payments.CancelLocal(ctx, pay)
		})
	}

	if outcome.Err != nil {
		var notApplied *contracts.ActionNotAppliedError
		if errors.As(outcome.Err, &notApplied) {
			p.metrics.IncActionsNotApplied()
			p.log.InfoContext(ctx, "action not applied", logging.Error(outcome.Err))
			return outcome, nil
		}
		return p.failed(ctx, outcome), nil
	}

	if outcome.Applied > 0 {
		p.metrics.IncMessagesApplied()
	}
	return outcome, nil
}

func (p *Processor) failed(ctx context.Context, outcome Outcome) Outcome {
	p.metrics.IncMessagesFailed()
	p.log.ErrorContext(ctx, "message failed, continuing with envelope",
		slog.Int("index", outcome.Index),
		slog.String("type", string(outcome.Type)),
		logging.Error(outcome.Err))
	return outcome
}

func (p *Processor) applyPayment(
	ctx context.Context,
	ref message.PaymentRef,
	apply func(*payment.Payment) (int, error),
) (int, error) {
	pay, err := p.payments.Locate(ctx, ref.PaymentID, ref.Fields, p.tenant)
	if err != nil {
		return 0, fmt.Errorf("locate payment %d: %w", ref.PaymentID, err)
	}
	return apply(pay)
}
