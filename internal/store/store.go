package store

import (
	"errors"
	"fmt"
	"sync"
)

// Persisted keys. The names match what the browser edition wrote to local
// storage so exported profiles stay readable.
const (
	KeyTitle = "codepen-title"
	KeyHTML  = "codepen-html"
	KeyCSS   = "codepen-css"
	KeyJS    = "codepen-js"
)

// DefaultQuota mirrors the common 5 MiB local storage allowance.
const DefaultQuota int64 = 5 << 20

var (
	// ErrQuotaExceeded is returned when a write would grow the store past its quota.
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrEmptyKey is returned for writes without a key.
	ErrEmptyKey = errors.New("key required")
)

// Store is a synchronous string key/value store.
type Store interface {
	// Get returns the value and whether the key is present.
	Get(key string) (string, bool, error)
	// Set writes value under key.
	Set(key, value string) error
}

// MemoryStore keeps entries in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	data  map[string]string
	quota int64
}

// NewMemoryStore creates an empty in-memory store. A non-positive quota
// selects DefaultQuota.
func NewMemoryStore(quota int64) *MemoryStore {
	if quota <= 0 {
		quota = DefaultQuota
	}
	return &MemoryStore{data: make(map[string]string), quota: quota}
}

// Get implements Store.
func (m *MemoryStore) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.data[key]
	return value, ok, nil
}

// Set implements Store.
func (m *MemoryStore) Set(key, value string) error {
	if key == "" {
		return fmt.Errorf("store: set: %w", ErrEmptyKey)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if usageAfter(m.data, key, value) > m.quota {
		return fmt.Errorf("store: set %q: %w", key, ErrQuotaExceeded)
	}
	m.data[key] = value
	return nil
}

// usageAfter reports the byte usage the map would have with key set to value.
func usageAfter(data map[string]string, key, value string) int64 {
	var total int64
	for k, v := range data {
		if k == key {
			continue
		}
		total += int64(len(k) + len(v))
	}
	return total + int64(len(key)+len(value))
}
