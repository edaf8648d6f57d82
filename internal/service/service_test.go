package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ticketlens/ticketlens/internal/core"
)

// fakeInvoker is a scriptable ModelInvoker for tests.
type fakeInvoker struct {
	mu      sync.Mutex
	calls   int
	byFlow  map[string]int
	handler func(req core.InvokeRequest, call int) (*core.RawResponse, error)
}

func newFakeInvoker(handler func(req core.InvokeRequest, call int) (*core.RawResponse, error)) *fakeInvoker {
	return &fakeInvoker{byFlow: make(map[string]int), handler: handler}
}

func (f *fakeInvoker) Invoke(_ context.Context, req core.InvokeRequest) (*core.RawResponse, error) {
	f.mu.Lock()
	f.calls++
	f.byFlow[req.Flow]++
	call := f.byFlow[req.Flow]
	f.mu.Unlock()
	return f.handler(req, call)
}

func (f *fakeInvoker) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeInvoker) flowCalls(flow string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byFlow[flow]
}

// jsonResponse wraps a value as a raw model response body.
func jsonResponse(v interface{}) *core.RawResponse {
	buf, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return &core.RawResponse{Body: buf}
}

// textResponse returns a raw response with pre-extracted text.
func textResponse(text string) *core.RawResponse {
	return &core.RawResponse{Text: text}
}

// fragmentsFor builds a well-formed fragment array body for the records.
func fragmentsFor(records []core.Record) *core.RawResponse {
	fragments := make([]map[string]interface{}, len(records))
	for i, r := range records {
		fragments[i] = map[string]interface{}{
			"id":        r.ID,
			"sentiment": "neutral",
			"category":  "billing",
		}
	}
	return jsonResponse(fragments)
}

// makeRecords builds n sequential test records starting at id 1.
func makeRecords(n int) []core.Record {
	records := make([]core.Record, n)
	for i := range records {
		records[i] = core.Record{
			ID:      i + 1,
			Tenant:  "acme",
			Subject: fmt.Sprintf("ticket %d", i+1),
			Status:  "open",
		}
	}
	return records
}

// memStore is an in-memory RecordStore for tests.
type memStore struct {
	mu      sync.Mutex
	records map[string]map[int]core.Record
	failOn  string
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]map[int]core.Record)}
}

func (s *memStore) seed(tenant string, ids ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records[tenant] == nil {
		s.records[tenant] = make(map[int]core.Record)
	}
	for _, id := range ids {
		s.records[tenant][id] = core.Record{ID: id, Tenant: tenant}
	}
}

func (s *memStore) InsertRecords(_ context.Context, tenant string, records []core.Record) ([]core.Record, error) {
	if s.failOn == "insert" {
		return nil, fmt.Errorf("store down")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records[tenant] == nil {
		s.records[tenant] = make(map[int]core.Record)
	}
	for _, r := range records {
		s.records[tenant][r.ID] = r
	}
	return records, nil
}

func (s *memStore) QueryExistingIDs(_ context.Context, tenant string, candidateIDs []int) ([]int, error) {
	if s.failOn == "query" {
		return nil, fmt.Errorf("store down")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var existing []int
	for _, id := range candidateIDs {
		if _, ok := s.records[tenant][id]; ok {
			existing = append(existing, id)
		}
	}
	return existing, nil
}

func (s *memStore) HighestID(_ context.Context, tenant string) (int, bool, error) {
	if s.failOn == "highest" {
		return 0, false, fmt.Errorf("store down")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	highest, ok := 0, false
	for id := range s.records[tenant] {
		if id > highest {
			highest, ok = id, true
		}
	}
	return highest, ok, nil
}

func (s *memStore) ListRecords(_ context.Context, tenant string) ([]core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Record, 0, len(s.records[tenant]))
	for _, r := range s.records[tenant] {
		out = append(out, r)
	}
	return out, nil
}

// noDelayRetry returns a retry policy that does not sleep in tests.
func noDelayRetry(attempts int) *RetryPolicy {
	return NewRetryPolicy(
		WithMaxAttempts(attempts),
		WithBaseDelay(0),
		WithJitterMax(0),
	)
}
