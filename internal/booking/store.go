package booking

import (
	"context"
	"sync"
)

// Store persists the full booking table. It gives no isolation between
// LoadAll and a later write; callers serialise through a Locker.
type Store interface {
	LoadAll(ctx context.Context) ([]Record, error)
	AppendOne(ctx context.Context, r Record) error
	OverwriteAll(ctx context.Context, records []Record) error
}

// MemoryStore keeps the table in process. Used by tests and STORE_BACKEND=memory.
type MemoryStore struct {
	mu      sync.Mutex
	records []Record
}

// NewMemoryStore seeds a store with records.
func NewMemoryStore(records ...Record) *MemoryStore {
	return &MemoryStore{records: cloneRecords(records)}
}

// LoadAll returns a copy of every row in insertion order.
func (s *MemoryStore) LoadAll(_ context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRecords(s.records), nil
}

// AppendOne adds a row at the end.
func (s *MemoryStore) AppendOne(_ context.Context, r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, cloneRecords([]Record{r})...)
	return nil
}

// OverwriteAll replaces the table.
func (s *MemoryStore) OverwriteAll(_ context.Context, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = cloneRecords(records)
	return nil
}
