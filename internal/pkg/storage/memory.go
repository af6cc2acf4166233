package storage

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is an in-process ObjectStore for local development when no
// bucket is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string]Object
}

type Object struct {
	Body        []byte
	ContentType string
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		objects: make(map[string]Object),
	}
}

func (m *MemoryStore) Upload(_ context.Context, key string, body []byte, contentType string) error {
	buf := make([]byte, len(body))
	copy(buf, body)
	m.mu.Lock()
	m.objects[key] = Object{Body: buf, ContentType: contentType}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return ErrObjectNotFound
	}
	delete(m.objects, key)
	return nil
}

func (m *MemoryStore) PublicURL(key string) string {
	return m.baseURL + "/" + key
}

// Get returns a stored object.
func (m *MemoryStore) Get(key string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj, ok
}

// Keys lists stored keys in no particular order.
func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	return keys
}
