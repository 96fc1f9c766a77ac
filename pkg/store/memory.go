package store

import (
	"context"
	"sync"
)

// MemoryStore is a process-local Store used for tests and the "memory" backend.
// Failures can be injected to exercise callers' error paths.
type MemoryStore struct {
	mu    sync.RWMutex
	state map[string]string
	blobs map[string]string

	// ReadErr and WriteErr, when set, are returned by GetBlob and SetBlob.
	ReadErr  error
	WriteErr error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: make(map[string]string),
		blobs: make(map[string]string),
	}
}

func (m *MemoryStore) GetState(_ context.Context, key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.state[key]
	return val, ok
}

func (m *MemoryStore) SetState(_ context.Context, key, val string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state[key] = val
	return nil
}

func (m *MemoryStore) DeleteState(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.state, key)
	return nil
}

func (m *MemoryStore) GetBlob(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ReadErr != nil {
		return "", false, m.ReadErr
	}
	val, ok := m.blobs[key]
	return val, ok, nil
}

func (m *MemoryStore) SetBlob(_ context.Context, key, val string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.blobs[key] = val
	return nil
}

func (m *MemoryStore) Close() error { return nil }
