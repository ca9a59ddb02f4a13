package templatestore

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend keeps the directory in a process-local map. Losing it on
// restart only pushes clients back to create mode.
type MemoryBackend struct {
	mu           sync.Mutex
	records      map[string]Record
	productIndex map[string]string
}

// NewMemoryBackend constructs an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		records:      make(map[string]Record),
		productIndex: make(map[string]string),
	}
}

func (m *MemoryBackend) Get(_ context.Context, storeID string) (Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[storeID]
	return record, ok, nil
}

func (m *MemoryBackend) LookupProduct(_ context.Context, externalProductID string) (Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	storeID, ok := m.productIndex[externalProductID]
	if !ok {
		return Record{}, false, nil
	}
	record, ok := m.records[storeID]
	return record, ok, nil
}

func (m *MemoryBackend) Put(_ context.Context, record Record, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.TemplateStoreID] = record
	m.productIndex[record.ExternalProductID] = record.TemplateStoreID
	return nil
}

// PurgeExpired drops records created before the cutoff, plus any product
// index entries left dangling. Full-map scan; fine at directory scale.
func (m *MemoryBackend) PurgeExpired(_ context.Context, cutoff time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for storeID, record := range m.records {
		if time.Unix(record.CreatedAtSeconds, 0).Before(cutoff) || time.Unix(record.CreatedAtSeconds, 0).Equal(cutoff) {
			delete(m.records, storeID)
		}
	}
	for productID, storeID := range m.productIndex {
		if _, ok := m.records[storeID]; !ok {
			delete(m.productIndex, productID)
		}
	}
	return nil
}
