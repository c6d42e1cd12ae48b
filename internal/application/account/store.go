package account

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-softwarelab/common/pkg/to"
	"github.com/google/uuid"

	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/application/contracts"
	domainAccount "github.com/rcarvalho-pb/mycryptocheckout-go/internal/domain/account"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/infra/logging"
)

// Storage keys.
const (
	KeyAccountData = "account_data"
	KeyDomainKey   = "domain_key"
	KeyRetrieveKey = "retrieve_key"
)

const (
	DefaultRetrieveKeyTTL = 10 * time.Minute

	lockKey = "account"
)

type Options struct {
	Logger         *slog.Logger
	RetrieveKeyTTL time.Duration
	Clock          func() time.Time
}

// Store owns the single account record of this installation.
type Store struct {
	storage contracts.Storage
	locker  contracts.Locker
	log     *slog.Logger
	ttl     time.Duration
	now     func() time.Time
}

func NewStore(storage contracts.Storage, locker contracts.Locker, opts ...func(*Options)) *Store {
	cfg := to.OptionsWithDefault(Options{
		Logger:         slog.Default(),
		RetrieveKeyTTL: DefaultRetrieveKeyTTL,
		Clock:          time.Now,
	}, opts...)

	return &Store{
		storage: storage,
		locker:  locker,
		log:     logging.Child(cfg.Logger, "AccountStore"),
		ttl:     cfg.RetrieveKeyTTL,
		now:     cfg.Clock,
	}
}

func (s *Store) Account(ctx context.Context) (*domainAccount.Account, error) {
	data, err := s.get(ctx, KeyAccountData)
	if err != nil {
		return nil, err
	}
	key, err := s.get(ctx, KeyDomainKey)
	if err != nil {
		return nil, err
	}

	return &domainAccount.Account{
		DomainKey: string(key),
		Data:      data,
	}, nil
}

func (s *Store) DomainKey(ctx context.Context) (string, error) {
	key, err := s.get(ctx, KeyDomainKey)
	return string(key), err
}

func (s *Store) Valid(ctx context.Context) (bool, error) {
	acc, err := s.Account(ctx)
	if err != nil {
		return false, err
	}
	return acc.Valid(), nil
}

// SetData overwrites the account payload. The domain key is left alone.
func (s *Store) SetData(ctx context.Context, data json.RawMessage) error {
	unlock := s.locker.Lock(lockKey)
	defer unlock()

	return s.save(ctx, KeyAccountData, data)
}

// Adopt stores the payload of an authenticated retrieve_account reply. The
// domain key it carries is taken only if none is stored yet.
func (s *Store) Adopt(ctx context.Context, data json.RawMessage) error {
	unlock := s.locker.Lock(lockKey)
	defer unlock()

	if err := s.save(ctx, KeyAccountData, data); err != nil {
		return err
	}

	received := domainAccount.DomainKeyOf(data)
	if received == "" {
		return nil
	}

	current, err := s.get(ctx, KeyDomainKey)
	if err != nil {
		return err
	}

	switch {
	case len(current) == 0:
		s.log.InfoContext(ctx, "domain key received")
		return s.save(ctx, KeyDomainKey, []byte(received))
	case string(current) != received:
		s.log.WarnContext(ctx, "ignoring different domain key in account data")
	}
	return nil
}

// NewRetrieveKey issues the single-use key proving that the next
// retrieve_account reply answers our own request.
func (s *Store) NewRetrieveKey(ctx context.Context) (string, error) {
	unlock := s.locker.Lock(lockKey)
	defer unlock()

	key := domainAccount.RetrieveKey{
		Value:     uuid.NewString(),
		ExpiresAt: s.now().Add(s.ttl),
	}

	raw, err := json.Marshal(key)
	if err != nil {
		return "", err
	}
	if err := s.save(ctx, KeyRetrieveKey, raw); err != nil {
		return "", err
	}

	return key.Value, nil
}

// ConsumeRetrieveKey reports whether candidate is the outstanding retrieve
// key. A match or an expired key clears it; a mismatch leaves it in place.
func (s *Store) ConsumeRetrieveKey(ctx context.Context, candidate string) (bool, error) {
	unlock := s.locker.Lock(lockKey)
	defer unlock()

	raw, err := s.get(ctx, KeyRetrieveKey)
	if err != nil || len(raw) == 0 {
		return false, err
	}

	var key domainAccount.RetrieveKey
	if err := json.Unmarshal(raw, &key); err != nil {
		return false, fmt.Errorf("decode retrieve key: %w", err)
	}

	if key.Expired(s.now()) {
		s.log.DebugContext(ctx, "retrieve key expired")
		return false, s.save(ctx, KeyRetrieveKey, nil)
	}

	if candidate == "" || subtle.ConstantTimeCompare([]byte(candidate), []byte(key.Value)) != 1 {
		return false, nil
	}

	return true, s.save(ctx, KeyRetrieveKey, nil)
}

func (s *Store) get(ctx context.Context, key string) ([]byte, error) {
	v, _, err := s.storage.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return v, nil
}

func (s *Store) save(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	if err := s.storage.Save(ctx, key, value); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
