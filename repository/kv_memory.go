package repository

import (
	"context"
	"sync"
	"time"

	"github.com/mailio/go-vault-server/types"
)

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// MemoryKeyValueStore is a process local KeyValueStore. Expired entries are invisible to Get
// and are physically removed by RemoveExpired (scheduled by cron).
type MemoryKeyValueStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryKeyValueStore() *MemoryKeyValueStore {
	return &MemoryKeyValueStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// WithClock replaces the time source (tests)
func (m *MemoryKeyValueStore) WithClock(now func() time.Time) *MemoryKeyValueStore {
	m.now = now
	return m
}

func (m *MemoryKeyValueStore) expired(e memoryEntry) bool {
	return !e.expires.IsZero() && !m.now().Before(e.expires)
}

func (m *MemoryKeyValueStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

func (m *MemoryKeyValueStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok || m.expired(e) {
		return nil, types.ErrNotFound
	}
	return append([]byte(nil), e.value...), nil
}

func (m *MemoryKeyValueStore) DeleteIfPresent(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return false, nil
	}
	delete(m.entries, key)
	return !m.expired(e), nil
}

// RemoveExpired drops every expired entry and returns how many were removed
func (m *MemoryKeyValueStore) RemoveExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for k, e := range m.entries {
		if m.expired(e) {
			delete(m.entries, k)
			removed++
		}
	}
	return removed
}
