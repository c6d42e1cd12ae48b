package inmemory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/domain/order"
)

type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*order.Order
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders: make(map[string]*order.Order),
	}
}

func (r *OrderRepository) Save(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.orders[o.Ref] = clone(o)
	return nil
}

func (r *OrderRepository) FindByRef(_ context.Context, ref string) (*order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[ref]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return clone(o), nil
}

func (r *OrderRepository) FindByPaymentID(_ context.Context, paymentID int64) (*order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, o := range r.orders {
		if o.PaymentID == paymentID {
			return clone(o), nil
		}
	}
	return nil, order.ErrOrderNotFound
}

func (r *OrderRepository) FindUnsent(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var refs []string
	for ref, o := range r.orders {
		if o.Unsent() {
			refs = append(refs, ref)
		}
	}
	slices.Sort(refs)
	return refs, nil
}

func (r *OrderRepository) SetPaymentID(ctx context.Context, ref string, paymentID int64) error {
	return r.update(ref, func(o *order.Order) { o.PaymentID = paymentID })
}

func (r *OrderRepository) SetAttempts(ctx context.Context, ref string, attempts int) error {
	return r.update(ref, func(o *order.Order) { o.Attempts = attempts })
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, ref string, status order.Status) error {
	return r.update(ref, func(o *order.Order) { o.Status = status })
}

func (r *OrderRepository) update(ref string, fn func(*order.Order)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[ref]
	if !ok {
		return order.ErrOrderNotFound
	}
	fn(o)
	return nil
}

func clone(o *order.Order) *order.Order {
	c := *o
	c.PaymentData = maps.Clone(o.PaymentData)
	return &c
}
