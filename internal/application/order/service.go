package order

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	domainOrder "github.com/rcarvalho-pb/mycryptocheckout-go/internal/domain/order"
)

var (
	ErrInvalidOrder  = errors.New("invalid order")
	ErrAlreadyExists = errors.New("order already exists")
)

type Service struct {
	Repo domainOrder.Repository
}

type PlaceOrder struct {
	Ref           string
	Amount        decimal.Decimal
	Confirmations int
	CurrencyID    string
	TimeoutHours  int
	To            string
	PaymentData   map[string]any
}

// Place stores a new checkout with an unsent payment.
func (s *Service) Place(ctx context.Context, req PlaceOrder) (*domainOrder.Order, error) {
	if req.Ref == "" || req.CurrencyID == "" || req.To == "" || !req.Amount.IsPositive() {
		return nil, ErrInvalidOrder
	}

	if _, err := s.Repo.FindByRef(ctx, req.Ref); err == nil {
		return nil, ErrAlreadyExists
	} else if !errors.Is(err, domainOrder.ErrOrderNotFound) {
		return nil, err
	}

	o := &domainOrder.Order{
		Ref:           req.Ref,
		Amount:        req.Amount,
		Confirmations: req.Confirmations,
		CreatedAt:     time.Now().Unix(),
		CurrencyID:    req.CurrencyID,
		TimeoutHours:  req.TimeoutHours,
		To:            req.To,
		PaymentData:   req.PaymentData,
		Status:        domainOrder.StatusPending,
	}

	if err := s.Repo.Save(ctx, o); err != nil {
		return nil, err
	}

	return o, nil
}
