package order

import (
	"context"
	"errors"

	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/domain/event"
	domainOrder "github.com/rcarvalho-pb/mycryptocheckout-go/internal/domain/order"
)

// PaymentEventHandler is the shop-side hook for completions and
// cancellations. It reports false for unknown payments and for orders already
// in the target state, so duplicate deliveries apply nothing.
type PaymentEventHandler struct {
	Repo domainOrder.Repository
}

func (h *PaymentEventHandler) Handle(ctx context.Context, evt event.Event) (bool, error) {
	payload, ok := evt.Payload.(event.PaymentActionPayload)
	if !ok || payload.Payment == nil {
		return false, errors.New("invalid payload for " + string(evt.Type))
	}

	var target domainOrder.Status
	switch evt.Type {
	case event.CompletePayment:
		target = domainOrder.StatusPaid
	case event.CancelPayment:
		target = domainOrder.StatusCanceled
	default:
		return false, nil
	}

	o, err := h.Repo.FindByPaymentID(ctx, payload.Payment.ID)
	if errors.Is(err, domainOrder.ErrOrderNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if o.Status != domainOrder.StatusPending {
		return false, nil
	}

	if err := h.Repo.UpdateStatus(ctx, o.Ref, target); err != nil {
		return false, err
	}
	return true, nil
}
