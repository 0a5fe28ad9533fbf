package blobstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory Store for tests. Objects live in a single
// flat map keyed by "bucket/key". Keys listed in FailKeys return an
// error from Get, simulating fetch failures.
type MemoryStore struct {
	mu       sync.RWMutex
	objects  map[string][]byte
	FailKeys map[string]bool

	getCalls int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects:  make(map[string][]byte),
		FailKeys: make(map[string]bool),
	}
}

// Put stores an object.
func (m *MemoryStore) Put(bucket, key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[bucket+"/"+key] = data
}

// List returns keys under prefix in lexical order.
func (m *MemoryStore) List(_ context.Context, bucket, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for fullKey := range m.objects {
		b, key, ok := strings.Cut(fullKey, "/")
		if !ok || b != bucket {
			continue
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Get returns the stored object, or an error for missing or failing keys.
func (m *MemoryStore) Get(_ context.Context, bucket, key string) ([]byte, error) {
	m.mu.Lock()
	m.getCalls++
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.FailKeys[key] {
		return nil, fmt.Errorf("simulated fetch failure for %s", key)
	}

	data, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, fmt.Errorf("object not found: %s/%s", bucket, key)
	}
	return data, nil
}

// GetCalls reports how many times Get was invoked.
func (m *MemoryStore) GetCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getCalls
}
