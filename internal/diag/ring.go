// Package diag provides a bounded, concurrency-safe ring buffer of model
// traffic entries. It exists purely for observability: appends are cheap,
// never block, and never fail the caller.
package diag

import (
	"sync"

	"github.com/ticketlens/ticketlens/internal/core"
)

const defaultCapacity = 256

// Ring is a fixed-capacity ring buffer of flow entries. When full, the
// oldest entry is evicted. Safe for concurrent appends.
type Ring struct {
	mu      sync.Mutex
	entries []core.FlowEntry
	start   int
	count   int
	dropped int64
}

// NewRing creates a ring buffer with the given capacity.
// Non-positive capacities fall back to the default.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Ring{
		entries: make([]core.FlowEntry, capacity),
	}
}

// Append adds an entry, evicting the oldest when full.
func (r *Ring) Append(entry core.FlowEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count < len(r.entries) {
		r.entries[(r.start+r.count)%len(r.entries)] = entry
		r.count++
		return
	}

	// Full: overwrite the oldest slot.
	r.entries[r.start] = entry
	r.start = (r.start + 1) % len(r.entries)
	r.dropped++
}

// Drain returns a copy of the buffered entries in append order.
func (r *Ring) Drain() []core.FlowEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]core.FlowEntry, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.entries[(r.start+i)%len(r.entries)]
	}
	return out
}

// Clear empties the buffer.
func (r *Ring) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.start = 0
	r.count = 0
}

// Len returns the number of buffered entries.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Dropped returns how many entries have been evicted since creation.
func (r *Ring) Dropped() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}
