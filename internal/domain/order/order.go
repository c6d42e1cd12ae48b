package order

import (
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusPaid     Status = "PAID"
	StatusCanceled Status = "CANCELED"
)

// Order holds what the shop stored about a checkout: the payment fields shown
// to the buyer and the bookkeeping needed to register the payment remotely.
// PaymentID is 0 while unsent and payment.FailedID once the send was given up.
type Order struct {
	Ref           string
	Amount        decimal.Decimal
	Confirmations int
	CreatedAt     int64
	CurrencyID    string
	TimeoutHours  int
	To            string
	PaymentData   map[string]any
	PaymentID     int64
	Attempts      int
	Status        Status
}

func (o *Order) Unsent() bool {
	return o.PaymentID == 0
}
