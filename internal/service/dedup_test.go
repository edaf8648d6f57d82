package service

import (
	"context"
	"errors"
	"testing"

	"github.com/ticketlens/ticketlens/internal/core"
)

func recordsWithIDs(ids ...int) []core.Record {
	out := make([]core.Record, len(ids))
	for i, id := range ids {
		out[i] = core.Record{ID: id, Tenant: "acme", Subject: "ticket"}
	}
	return out
}

func TestDedupGuard_NextStartID_EmptyTenant(t *testing.T) {
	guard := NewDedupGuard(newMemStore(), 0, nil)

	id, err := guard.NextStartID(context.Background(), "acme")
	if err != nil {
		t.Fatalf("NextStartID() error = %v", err)
	}
	if id != DefaultIDFloor {
		t.Errorf("id = %d, want %d", id, DefaultIDFloor)
	}
}

func TestDedupGuard_NextStartID_AfterHighest(t *testing.T) {
	store := newMemStore()
	store.seed("acme", 1001, 1002, 1050)
	guard := NewDedupGuard(store, 0, nil)

	id, err := guard.NextStartID(context.Background(), "acme")
	if err != nil {
		t.Fatalf("NextStartID() error = %v", err)
	}
	if id != 1051 {
		t.Errorf("id = %d, want 1051", id)
	}
}

func TestDedupGuard_NextStartID_CustomFloor(t *testing.T) {
	guard := NewDedupGuard(newMemStore(), 5000, nil)

	id, err := guard.NextStartID(context.Background(), "acme")
	if err != nil {
		t.Fatalf("NextStartID() error = %v", err)
	}
	if id != 5000 {
		t.Errorf("id = %d, want 5000", id)
	}
}

func TestDedupGuard_NextStartID_StoreError(t *testing.T) {
	store := newMemStore()
	store.failOn = "highest"
	guard := NewDedupGuard(store, 0, nil)

	_, err := guard.NextStartID(context.Background(), "acme")
	if !core.IsCategory(err, core.ErrCatStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestDedupGuard_FilterNew_DropsCommitted(t *testing.T) {
	store := newMemStore()
	store.seed("acme", 100, 101, 102)
	guard := NewDedupGuard(store, 0, nil)

	fresh, err := guard.FilterNew(context.Background(), "acme", recordsWithIDs(101, 102, 103, 104))
	if err != nil {
		t.Fatalf("FilterNew() error = %v", err)
	}
	if len(fresh) != 2 || fresh[0].ID != 103 || fresh[1].ID != 104 {
		t.Errorf("fresh ids = %v, want [103 104]", core.RecordIDs(fresh))
	}
}

func TestDedupGuard_FilterNew_AllNew(t *testing.T) {
	guard := NewDedupGuard(newMemStore(), 0, nil)

	fresh, err := guard.FilterNew(context.Background(), "acme", recordsWithIDs(1, 2, 3))
	if err != nil {
		t.Fatalf("FilterNew() error = %v", err)
	}
	if len(fresh) != 3 {
		t.Errorf("len(fresh) = %d, want 3", len(fresh))
	}
}

func TestDedupGuard_FilterNew_AllDuplicatesFatal(t *testing.T) {
	store := newMemStore()
	store.seed("acme", 201, 202)
	guard := NewDedupGuard(store, 0, nil)

	_, err := guard.FilterNew(context.Background(), "acme", recordsWithIDs(201, 202))
	var domErr *core.DomainError
	if !errors.As(err, &domErr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	if domErr.Code != core.CodeAllDuplicates {
		t.Errorf("Code = %q, want %q", domErr.Code, core.CodeAllDuplicates)
	}
}

func TestDedupGuard_FilterNew_EmptyCandidates(t *testing.T) {
	guard := NewDedupGuard(newMemStore(), 0, nil)

	_, err := guard.FilterNew(context.Background(), "acme", nil)
	var domErr *core.DomainError
	if !errors.As(err, &domErr) || domErr.Code != core.CodeEmptyCandidates {
		t.Fatalf("expected EMPTY_CANDIDATES, got %v", err)
	}
}

func TestDedupGuard_FilterNew_TenantsIsolated(t *testing.T) {
	store := newMemStore()
	store.seed("acme", 301)
	guard := NewDedupGuard(store, 0, nil)

	fresh, err := guard.FilterNew(context.Background(), "globex", recordsWithIDs(301))
	if err != nil {
		t.Fatalf("FilterNew() error = %v", err)
	}
	if len(fresh) != 1 {
		t.Errorf("len(fresh) = %d, want 1", len(fresh))
	}
}
