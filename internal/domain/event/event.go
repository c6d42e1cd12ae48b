package event

type Type string

const (
	// Local actions the shop applies when the server finalises a payment.
	CompletePayment Type = "complete_payment"
	CancelPayment   Type = "cancel_payment"

	// Operator notifications.
	PaymentAbandoned Type = "payment_abandoned"
)

type Event struct {
	Type    Type
	Payload any
}
