package event

import "github.com/rcarvalho-pb/mycryptocheckout-go/internal/domain/payment"

type PaymentActionPayload struct {
	Payment       *payment.Payment
	TransactionID string
}

type PaymentAbandonedPayload struct {
	OrderRef string `json:"order_ref"`
	Attempts int    `json:"attempts"`
	Reason   string `json:"reason"`
}
