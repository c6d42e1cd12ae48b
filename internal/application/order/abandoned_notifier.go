package order

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/domain/event"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/infra/logging"
)

// AbandonedNotifier tells the operator about orders whose payment could not
// be delivered to the server.
type AbandonedNotifier struct {
	Logger *slog.Logger
}

func (n *AbandonedNotifier) Handle(ctx context.Context, evt event.Event) (bool, error) {
	payload, ok := evt.Payload.(event.PaymentAbandonedPayload)
	if !ok {
		return false, errors.New("invalid payload for " + string(evt.Type))
	}

	logging.DefaultIfNil(n.Logger).WarnContext(ctx, "payment abandoned, order needs attention",
		slog.String("order", payload.OrderRef),
		slog.Int("attempts", payload.Attempts),
		slog.String("reason", payload.Reason))
	return true, nil
}
