package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/go-softwarelab/common/pkg/to"
	"github.com/shopspring/decimal"

	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/application/contracts"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/domain/event"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/domain/order"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/domain/payment"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/infra/logging"
)

// PathAdd is the server endpoint registering a new payment.
const PathAdd = "payment/add"

var ErrNoPaymentID = errors.New("server reply does not contain a payment id")

// Sender posts authenticated requests to the payment server.
type Sender interface {
	SendWithAccount(ctx context.Context, path string, fields map[string]string) (map[string]json.RawMessage, error)
}

type Options struct {
	Logger *slog.Logger
}

type Store struct {
	repo    payment.Repository
	actions contracts.ActionExecutor
	locker  contracts.Locker
	sender  Sender
	log     *slog.Logger
}

func NewStore(
	repo payment.Repository,
	actions contracts.ActionExecutor,
	locker contracts.Locker,
	sender Sender,
	opts ...func(*Options),
) *Store {
	cfg := to.OptionsWithDefault(Options{Logger: slog.Default()}, opts...)

	return &Store{
		repo:    repo,
		actions: actions,
		locker:  locker,
		sender:  sender,
		log:     logging.Child(cfg.Logger, "PaymentStore"),
	}
}

// CreateNew materialises a payment from a server payload.
func CreateNew(fields json.RawMessage, tenant *payment.Tenant) (*payment.Payment, error) {
	p := payment.New()

	if len(bytes.TrimSpace(fields)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(fields))
		dec.UseNumber()

		var m map[string]any
		if err := dec.Decode(&m); err != nil {
			return nil, fmt.Errorf("decode payment payload: %w", err)
		}

		amount, err := decimalField(m["amount"])
		if err != nil {
			return nil, err
		}
		p.Amount = amount
		p.CurrencyID = stringField(m["currency_id"])
		p.To = stringField(m["to"])
		p.CreatedAt = intField(m["created_at"])
		p.TimeoutHours = int(intField(m["timeout_hours"]))
		p.Confirmations = int(intField(m["confirmations"]))
		if data, ok := m["data"].(map[string]any); ok {
			p.Data = data
		}
	}

	p.Tag(tenant)
	return p, nil
}

// FromOrder builds the snapshot sent to the server for an order.
func FromOrder(o *order.Order, tenant *payment.Tenant) *payment.Payment {
	p := payment.New()
	p.Amount = o.Amount
	p.Confirmations = o.Confirmations
	p.CreatedAt = o.CreatedAt
	p.CurrencyID = o.CurrencyID
	p.TimeoutHours = o.TimeoutHours
	p.To = o.To
	p.Attempts = o.Attempts
	for k, v := range o.PaymentData {
		p.Data[k] = v
	}

	p.Tag(tenant)
	return p
}

func (s *Store) Get(ctx context.Context, id int64) (*payment.Payment, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Store) Save(ctx context.Context, p *payment.Payment) error {
	unlock := s.locker.Lock(lockKey(p.ID))
	defer unlock()

	return s.repo.Save(ctx, p)
}

// Locate returns the stored payment, or one materialised from fields when the
// id is unknown locally.
func (s *Store) Locate(ctx context.Context, id int64, fields json.RawMessage, tenant *payment.Tenant) (*payment.Payment, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, payment.ErrPaymentNotFound) {
		return nil, err
	}

	p, err = CreateNew(fields, tenant)
	if err != nil {
		return nil, err
	}
	if err := p.SetID(id); err != nil {
		return nil, err
	}
	return p, nil
}

// Add registers the payment with the server and returns the assigned id.
func (s *Store) Add(ctx context.Context, p *payment.Payment) (int64, error) {
	fields, err := creationFields(p)
	if err != nil {
		return 0, err
	}

	reply, err := s.sender.SendWithAccount(ctx, PathAdd, fields)
	if err != nil {
		return 0, err
	}

	raw, ok := reply["payment_id"]
	if !ok {
		return 0, ErrNoPaymentID
	}
	id, err := strconv.ParseInt(scalar(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrNoPaymentID, string(raw))
	}

	return id, nil
}

// CompleteLocal applies a server completion through the shop's action hook.
// The transaction id may be empty.
func (s *Store) CompleteLocal(ctx context.Context, p *payment.Payment, transactionID string) (int, error) {
	return s.doLocal(ctx, event.CompletePayment, p, transactionID, func(p *payment.Payment) error {
		return p.Complete(transactionID)
	})
}

// CancelLocal applies a server cancellation through the shop's action hook.
func (s *Store) CancelLocal(ctx context.Context, p *payment.Payment) (int, error) {
	return s.doLocal(ctx, event.CancelPayment, p, "", func(p *payment.Payment) error {
		return p.Cancel()
	})
}

func (s *Store) doLocal(
	ctx context.Context,
	action event.Type,
	p *payment.Payment,
	transactionID string,
	transition func(*payment.Payment) error,
) (int, error) {
	unlock := s.locker.Lock(lockKey(p.ID))
	defer unlock()

	if stored, err := s.repo.FindByID(ctx, p.ID); err == nil {
		p = stored
	}

	applied, err := s.actions.Execute(ctx, event.Event{
		Type: action,
		Payload: event.PaymentActionPayload{
			Payment:       p,
			TransactionID: transactionID,
		},
	})
	if err != nil {
		return applied, fmt.Errorf("%s action for payment %d: %w", action, p.ID, err)
	}
	if applied < 1 {
		return 0, &contracts.ActionNotAppliedError{Action: action, PaymentID: p.ID}
	}

	s.log.DebugContext(ctx, "action applied",
		slog.String("action", string(action)),
		slog.Int64("payment_id", p.ID),
		slog.Int("applied", applied),
	)

	if p.Final() {
		s.log.WarnContext(ctx, "payment already final, keeping stored state",
			slog.Int64("payment_id", p.ID), slog.String("status", string(p.Status)))
		return applied, nil
	}
	if err := transition(p); err != nil {
		return applied, err
	}

	return applied, s.repo.Save(ctx, p)
}

func lockKey(id int64) string {
	return "payment:" + strconv.FormatInt(id, 10)
}

func creationFields(p *payment.Payment) (map[string]string, error) {
	data := p.Data
	if data == nil {
		data = map[string]any{}
	}
	rawData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode payment data: %w", err)
	}

	return map[string]string{
		"amount":        p.Amount.String(),
		"confirmations": strconv.Itoa(p.Confirmations),
		"created_at":    strconv.FormatInt(p.CreatedAt, 10),
		"currency_id":   p.CurrencyID,
		"timeout_hours": strconv.Itoa(p.TimeoutHours),
		"to":            p.To,
		"data":          string(rawData),
	}, nil
}

func decimalField(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case nil:
		return decimal.Zero, nil
	case json.Number:
		return decimal.NewFromString(x.String())
	case string:
		if x == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(x)
	default:
		return decimal.Zero, fmt.Errorf("invalid amount %v", v)
	}
}

func stringField(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	default:
		return ""
	}
}

func intField(v any) int64 {
	n, _ := strconv.ParseInt(stringField(v), 10, 64)
	return n
}

func scalar(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}
