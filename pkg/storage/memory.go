package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jdziat/persisted-jobs/pkg/core"
)

// MemoryKV implements core.KV with an in-process map.
type MemoryKV struct {
	mu      sync.RWMutex
	data    map[string][]byte
	latency time.Duration
	writes  atomic.Int64
}

// MemoryOption configures a MemoryKV.
type MemoryOption func(*MemoryKV)

// WithLatency delays every operation by d. Useful for exercising write
// reordering in tests.
func WithLatency(d time.Duration) MemoryOption {
	return func(m *MemoryKV) {
		m.latency = d
	}
}

// NewMemoryKV creates an empty in-memory store.
func NewMemoryKV(opts ...MemoryOption) *MemoryKV {
	m := &MemoryKV{data: make(map[string][]byte)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryKV) wait(ctx context.Context) error {
	if m.latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(m.latency)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get returns a copy of the value stored under key.
func (m *MemoryKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := m.wait(ctx); err != nil {
		return nil, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set stores value under key.
func (m *MemoryKV) Set(ctx context.Context, key string, value []byte) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	m.writes.Add(1)
	return nil
}

// Remove deletes key. Removing a missing key is not an error.
func (m *MemoryKV) Remove(ctx context.Context, key string) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	m.writes.Add(1)
	return nil
}

// BatchSet stores all entries under a single lock.
func (m *MemoryKV) BatchSet(ctx context.Context, entries []core.Entry) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		m.data[e.Key] = append([]byte(nil), e.Value...)
	}
	m.writes.Add(1)
	return nil
}

// BatchRemove deletes all keys under a single lock.
func (m *MemoryKV) BatchRemove(ctx context.Context, keys []string) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	m.writes.Add(1)
	return nil
}

// Writes returns the number of mutating calls made so far.
func (m *MemoryKV) Writes() int64 {
	return m.writes.Load()
}

// Keys returns the stored keys in no particular order.
func (m *MemoryKV) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys
}

var _ core.KV = (*MemoryKV)(nil)
