package service

import (
	"sort"
	"sync"
	"time"

	"github.com/ticketlens/ticketlens/internal/core"
)

const defaultPerformanceWindow = 500

// PerformanceLog keeps a bounded rolling window of per-agent performance
// records. Appends are safe for concurrent use; the oldest rows are
// evicted when the window is full.
type PerformanceLog struct {
	mu      sync.RWMutex
	records []core.PerformanceRecord
	max     int
}

// NewPerformanceLog creates a log with the given window size.
// Non-positive sizes fall back to the default.
func NewPerformanceLog(max int) *PerformanceLog {
	if max <= 0 {
		max = defaultPerformanceWindow
	}
	return &PerformanceLog{
		records: make([]core.PerformanceRecord, 0, max),
		max:     max,
	}
}

// Append adds a record, evicting the oldest when the window is full.
func (l *PerformanceLog) Append(rec core.PerformanceRecord) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	if rec.Duration < 0 {
		rec.Duration = 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.records) == l.max {
		copy(l.records, l.records[1:])
		l.records = l.records[:l.max-1]
	}
	l.records = append(l.records, rec)
}

// Records returns a copy of the window in append order.
func (l *PerformanceLog) Records() []core.PerformanceRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]core.PerformanceRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Len returns the number of buffered records.
func (l *PerformanceLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// StatsByAgent aggregates the window per agent, sorted by agent name.
func (l *PerformanceLog) StatsByAgent() []core.AgentStats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	byAgent := make(map[string]*core.AgentStats)
	totals := make(map[string]time.Duration)
	for _, rec := range l.records {
		s, ok := byAgent[rec.Agent]
		if !ok {
			s = &core.AgentStats{Agent: rec.Agent}
			byAgent[rec.Agent] = s
		}
		s.Invocations++
		if !rec.Success {
			s.Failures++
		}
		totals[rec.Agent] += rec.Duration
	}

	stats := make([]core.AgentStats, 0, len(byAgent))
	for name, s := range byAgent {
		if s.Invocations > 0 {
			s.AvgDuration = totals[name] / time.Duration(s.Invocations)
			s.SuccessRate = float64(s.Invocations-s.Failures) / float64(s.Invocations)
		}
		stats = append(stats, *s)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Agent < stats[j].Agent })
	return stats
}
