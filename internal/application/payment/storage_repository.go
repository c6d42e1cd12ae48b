package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/application/contracts"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/domain/payment"
)

// StorageRepository keeps one JSON record per payment in the key/value store.
type StorageRepository struct {
	storage contracts.Storage
}

func NewStorageRepository(storage contracts.Storage) *StorageRepository {
	return &StorageRepository{storage: storage}
}

func recordKey(id int64) string {
	return "payment_" + strconv.FormatInt(id, 10)
}

func (r *StorageRepository) Save(ctx context.Context, p *payment.Payment) error {
	if p.ID <= 0 {
		return payment.ErrInvalidID
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return r.storage.Save(ctx, recordKey(p.ID), raw)
}

func (r *StorageRepository) FindByID(ctx context.Context, id int64) (*payment.Payment, error) {
	raw, ok, err := r.storage.Get(ctx, recordKey(id))
	if err != nil {
		return nil, err
	}
	if !ok || len(raw) == 0 {
		return nil, payment.ErrPaymentNotFound
	}

	var p payment.Payment
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode payment %d: %w", id, err)
	}
	return &p, nil
}
