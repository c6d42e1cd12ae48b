package outbox

import (
	"time"

	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/domain/event"
)

// OutboxEvent is an operator notification waiting to be published. Payload
// holds the JSON encoded event payload.
type OutboxEvent struct {
	ID        string
	Type      event.Type
	Payload   []byte
	Published bool
	CreatedAt time.Time
}

// Repository stores outbox events until the dispatcher publishes them.
// FindUnpublished returns the oldest events first.
type Repository interface {
	Save(OutboxEvent) error
	FindUnpublished(limit int) ([]OutboxEvent, error)
	MarkPublished(id string) error
}
