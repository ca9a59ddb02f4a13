package designsession

import (
	"errors"
	"sync"
)

// ErrStorageUnavailable mimics a medium that refuses access, e.g. browser
// storage in privacy mode.
var ErrStorageUnavailable = errors.New("designsession: storage unavailable")

// MemoryStorage is the in-process Storage adapter.
type MemoryStorage struct {
	mu          sync.Mutex
	values      map[string][]byte
	unavailable bool
}

// NewMemoryStorage constructs an empty in-memory adapter.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string][]byte)}
}

// SetUnavailable toggles simulated storage unavailability.
func (m *MemoryStorage) SetUnavailable(unavailable bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unavailable = unavailable
}

func (m *MemoryStorage) Read(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return nil, ErrStorageUnavailable
	}
	value, ok := m.values[key]
	if !ok {
		return nil, nil
	}
	copied := make([]byte, len(value))
	copy(copied, value)
	return copied, nil
}

func (m *MemoryStorage) Write(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return ErrStorageUnavailable
	}
	copied := make([]byte, len(value))
	copy(copied, value)
	m.values[key] = copied
	return nil
}

func (m *MemoryStorage) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return ErrStorageUnavailable
	}
	delete(m.values, key)
	return nil
}
