package kvstore

import (
	"context"
	"sync/atomic"

	"github.com/patrickmn/go-cache"
)

// Memory is an in-process Store. Data is lost when the process exits.
type Memory struct {
	items  *cache.Cache
	closed atomic.Bool
}

// NewMemory returns an empty in-memory store. Entries never expire.
func NewMemory() *Memory {
	return &Memory{items: cache.New(cache.NoExpiration, 0)}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	if err := m.check(ctx, key); err != nil {
		return nil, err
	}
	v, ok := m.items.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	return clone(v.([]byte)), nil
}

func (m *Memory) Put(ctx context.Context, key string, value []byte) error {
	if err := m.check(ctx, key); err != nil {
		return err
	}
	m.items.Set(key, clone(value), cache.NoExpiration)
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	if err := m.check(ctx, key); err != nil {
		return err
	}
	m.items.Delete(key)
	return nil
}

func (m *Memory) Close() error {
	m.closed.Store(true)
	m.items.Flush()
	return nil
}

func (m *Memory) check(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.closed.Load() {
		return ErrClosed
	}
	return nil
}
