package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"metalab/pkg/platform/sentinel"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process Cache for single-instance deployments and tests.
// Expired entries are dropped lazily on access and by an occasional sweep
// during writes.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time

	writes int
}

// MemoryOption configures a Memory cache.
type MemoryOption func(*Memory)

// WithNow replaces the clock; tests use it to force expiry.
func WithNow(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.now = now
	}
}

// NewMemory creates an empty in-process cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, fmt.Errorf("cache key %q: %w", key, sentinel.ErrNotFound)
	}
	if m.now().After(e.expiresAt) {
		delete(m.entries, key)
		return nil, fmt.Errorf("cache key %q: %w", key, sentinel.ErrNotFound)
	}
	return e.value, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = entry{value: value, expiresAt: m.now().Add(ttl)}

	// Sweep every 64 writes so abandoned ids do not accumulate forever.
	m.writes++
	if m.writes%64 == 0 {
		now := m.now()
		for k, e := range m.entries {
			if now.After(e.expiresAt) {
				delete(m.entries, k)
			}
		}
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
