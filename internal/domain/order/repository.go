package order

import (
	"context"
	"errors"
)

var ErrOrderNotFound = errors.New("order not found")

type Repository interface {
	Save(ctx context.Context, o *Order) error
	FindByRef(ctx context.Context, ref string) (*Order, error)
	FindByPaymentID(ctx context.Context, paymentID int64) (*Order, error)
	FindUnsent(ctx context.Context) ([]string, error)
	SetPaymentID(ctx context.Context, ref string, paymentID int64) error
	SetAttempts(ctx context.Context, ref string, attempts int) error
	UpdateStatus(ctx context.Context, ref string, status Status) error
}
