// Package storage provides the key-value substrate behind player
// history and streak persistence. Callers never see a failed read as
// an error worth surfacing: missing and unreadable both mean "no data".
package storage

import (
	"errors"
	"sync"
)

// ErrCapacityExceeded is returned by Set when a write would push the
// store past its configured byte capacity. Callers are expected to
// evict and retry or give up gracefully.
var ErrCapacityExceeded = errors.New("storage capacity exceeded")

type KV interface {
	// Get returns the stored value and whether the key was present.
	Get(key string) (string, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(key, value string) error
	// Delete removes key; deleting a missing key is not an error.
	Delete(key string) error
	// Len reports the number of stored keys.
	Len() (int, error)
}

// MemoryStore is an in-process KV with the same capacity semantics as
// the durable store. It backs tests and serves as a fallback when the
// database cannot be opened.
type MemoryStore struct {
	mu       sync.RWMutex
	data     map[string]string
	maxBytes int // 0 means unlimited
}

func NewMemoryStore(maxBytes int) *MemoryStore {
	return &MemoryStore{
		data:     make(map[string]string),
		maxBytes: maxBytes,
	}
}

func (m *MemoryStore) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.maxBytes > 0 {
		total := len(value)
		for k, v := range m.data {
			if k == key {
				continue
			}
			total += len(v)
		}
		if total > m.maxBytes {
			return ErrCapacityExceeded
		}
	}
	m.data[key] = value
	return nil
}

func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryStore) Len() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data), nil
}
