package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ticketlens/ticketlens/internal/core"
)

// MemoryStore is an in-memory RecordStore for tests and ephemeral runs.
type MemoryStore struct {
	mu      sync.RWMutex
	tenants map[string]map[int]core.Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tenants: make(map[string]map[int]core.Record)}
}

// InsertRecords commits records for a tenant. Re-inserting a committed id
// fails the whole batch, matching the SQLite primary key behavior.
func (s *MemoryStore) InsertRecords(_ context.Context, tenant string, records []core.Record) ([]core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := s.tenants[tenant]
	if bucket == nil {
		bucket = make(map[int]core.Record)
		s.tenants[tenant] = bucket
	}

	for _, r := range records {
		if _, exists := bucket[r.ID]; exists {
			return nil, fmt.Errorf("record %d already committed for tenant %s", r.ID, tenant)
		}
	}

	committed := make([]core.Record, 0, len(records))
	for _, r := range records {
		r.Tenant = tenant
		if r.CreatedAt.IsZero() {
			r.CreatedAt = time.Now().UTC()
		}
		bucket[r.ID] = r
		committed = append(committed, r)
	}
	return committed, nil
}

// QueryExistingIDs returns the subset of candidateIDs already committed.
func (s *MemoryStore) QueryExistingIDs(_ context.Context, tenant string, candidateIDs []int) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bucket := s.tenants[tenant]
	var existing []int
	for _, id := range candidateIDs {
		if _, ok := bucket[id]; ok {
			existing = append(existing, id)
		}
	}
	sort.Ints(existing)
	return existing, nil
}

// HighestID returns the highest committed id, or false when empty.
func (s *MemoryStore) HighestID(_ context.Context, tenant string) (int, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	highest, ok := 0, false
	for id := range s.tenants[tenant] {
		if id > highest {
			highest, ok = id, true
		}
	}
	return highest, ok, nil
}

// ListRecords returns all committed records ordered by id.
func (s *MemoryStore) ListRecords(_ context.Context, tenant string) ([]core.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bucket := s.tenants[tenant]
	records := make([]core.Record, 0, len(bucket))
	for _, r := range bucket {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}
