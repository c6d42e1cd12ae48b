package payment

import (
	"context"
	"errors"
)

var ErrPaymentNotFound = errors.New("payment not found")

type Repository interface {
	Save(ctx context.Context, p *Payment) error
	FindByID(ctx context.Context, id int64) (*Payment, error)
}
