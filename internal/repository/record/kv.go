package record

import (
	"context"
	"errors"

	"github.com/tether-home/tether/internal/db"
	"github.com/tether-home/tether/internal/domain"
)

// DefaultKey is the Valkey key holding the pass record.
const DefaultKey = "tether:passes"

// store is the consumer interface for record operations (ISP).
type store interface {
	Ping(ctx context.Context) error
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// KVStore keeps the pass record as a single value in Valkey/Redis.
// A SET replaces the whole value, so readers never see a partial record.
type KVStore struct {
	store store
	key   string
}

// NewKVStore creates a store writing the record under key.
// An empty key falls back to DefaultKey.
func NewKVStore(s store, key string) *KVStore {
	if key == "" {
		key = DefaultKey
	}
	return &KVStore{store: s, key: key}
}

// Location returns the key.
func (s *KVStore) Location() string { return s.key }

// Read returns the stored value, or domain.ErrRecordNotFound when the key
// does not exist.
func (s *KVStore) Read(ctx context.Context) ([]byte, error) {
	data, err := s.store.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, domain.NewStorageError(domain.ErrReadFailure, domain.OpGet, s.key, err)
	}
	return data, nil
}

// Prepare verifies the server answers.
func (s *KVStore) Prepare(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return domain.NewStorageError(domain.ErrStorageUnavailable, db.OpPing, s.key, err)
	}
	return nil
}

// Write replaces the stored value with data.
func (s *KVStore) Write(ctx context.Context, data []byte) error {
	if err := s.store.Set(ctx, s.key, data); err != nil {
		return domain.NewStorageError(domain.ErrWriteFailure, domain.OpSet, s.key, err)
	}
	return nil
}

// Ping checks connectivity.
func (s *KVStore) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
