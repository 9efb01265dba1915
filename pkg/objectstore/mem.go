package objectstore

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/quarry-data/quarry/pkg/errors"
)

// MemStore is an in-memory Store used by tests and local dry runs
type MemStore struct {
	mu      sync.RWMutex
	buckets map[string]map[string][]byte
}

// NewMemStore creates an empty in-memory store
func NewMemStore() *MemStore {
	return &MemStore{
		buckets: make(map[string]map[string][]byte),
	}
}

// Get downloads an entire object into memory
func (m *MemStore) Get(_ context.Context, bucket, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	objects, ok := m.buckets[bucket]
	if !ok {
		return nil, errors.New(errors.ErrorTypeRead, "bucket not found").
			WithDetail("bucket", bucket)
	}
	data, ok := objects[key]
	if !ok {
		return nil, errors.New(errors.ErrorTypeRead, "object not found").
			WithDetail("bucket", bucket).
			WithDetail("key", key)
	}

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Put uploads an object, overwriting any prior version
func (m *MemStore) Put(_ context.Context, bucket, key string, body io.Reader, _ string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeWrite, "failed to read upload body")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.buckets[bucket] == nil {
		m.buckets[bucket] = make(map[string][]byte)
	}
	m.buckets[bucket][key] = data
	return nil
}

// List returns up to max object keys under prefix in lexicographic order
func (m *MemStore) List(_ context.Context, bucket, prefix string, max int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, max)
	for key := range m.buckets[bucket] {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	if len(keys) > max {
		keys = keys[:max]
	}
	return keys, nil
}

// Exists reports whether an object is present
func (m *MemStore) Exists(bucket, key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.buckets[bucket][key]
	return ok
}
