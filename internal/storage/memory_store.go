package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory Store, used in tests and for dry runs.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	types   map[string]string
	calls   MemoryCalls
	// FailPut, when set, is returned by every Put.
	FailPut error
}

// MemoryCalls tracks method invocations for test verification.
type MemoryCalls struct {
	Put    int
	Get    int
	Delete int
	List   int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

// Put stores a copy of data.
func (m *MemoryStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	k, err := CleanKey(key)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Put++
	if m.FailPut != nil {
		return m.FailPut
	}
	m.objects[k] = append([]byte(nil), data...)
	m.types[k] = contentType
	return nil
}

// Get returns a copy of the stored data.
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	k, err := CleanKey(key)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Get++
	data, ok := m.objects[k]
	if !ok {
		return nil, ErrNotFound{Key: key}
	}
	return append([]byte(nil), data...), nil
}

// Delete removes key.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	k, err := CleanKey(key)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Delete++
	if _, ok := m.objects[k]; !ok {
		return ErrNotFound{Key: key}
	}
	delete(m.objects, k)
	delete(m.types, k)
	return nil
}

// List returns keys starting with prefix, sorted.
func (m *MemoryStore) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.List++
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Location returns a mem:// address for key.
func (m *MemoryStore) Location(key string) string { return "mem://" + key }

// ContentType returns the content type recorded for key.
func (m *MemoryStore) ContentType(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.types[key]
}

// Calls returns a snapshot of the call counters.
func (m *MemoryStore) Calls() MemoryCalls {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
