package contracts

import (
	"context"

	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/domain/event"
)

// Transport reaches the payment server. Implementations bound every call
// with a timeout.
type Transport interface {
	SendGet(ctx context.Context, url string) ([]byte, error)
	SendPost(ctx context.Context, url string, fields map[string]string) ([]byte, error)
}

// Storage is the opaque key/value store behind account and payment records.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, value []byte) error
}

// ActionExecutor runs the shop's side effects for an event and reports how
// many handlers actually applied it.
type ActionExecutor interface {
	Execute(ctx context.Context, evt event.Event) (int, error)
}

type EventRecorder interface {
	Record(event.Event) error
}

// Locker serialises read-modify-persist sequences on a single entity.
type Locker interface {
	Lock(key string) (unlock func())
}
