package service

import (
	"context"
	"fmt"

	"github.com/ticketlens/ticketlens/internal/core"
	"github.com/ticketlens/ticketlens/internal/logging"
	"golang.org/x/sync/errgroup"
)

// PerChunkOp analyzes one chunk of records and returns fragments keyed by
// record id. Implementations are expected to wrap the model call in a
// retry policy; the batcher itself never retries.
type PerChunkOp func(ctx context.Context, chunkIndex int, records []core.Record) ([]core.AnalysisFragment, error)

// BatchResult is the merged outcome of a chunked run.
type BatchResult struct {
	Fragments    []core.AnalysisFragment `json:"fragments"`
	FailedChunks []int                   `json:"failed_chunks,omitempty"`
	Warnings     []string                `json:"warnings,omitempty"`
}

// EmptyBatchResult returns the safe empty fallback shape.
func EmptyBatchResult() *BatchResult {
	return &BatchResult{
		Fragments:    []core.AnalysisFragment{},
		FailedChunks: []int{},
	}
}

// ChunkBatcher splits an ordered record collection into bounded chunks and
// runs them concurrently, isolating per-chunk failures.
type ChunkBatcher struct {
	maxConcurrency int
	logger         *logging.Logger
}

// NewChunkBatcher creates a chunk batcher. maxConcurrency bounds the
// number of in-flight chunks; <=0 means unbounded.
func NewChunkBatcher(maxConcurrency int, logger *logging.Logger) *ChunkBatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ChunkBatcher{
		maxConcurrency: maxConcurrency,
		logger:         logger,
	}
}

// SplitChunks partitions records into ordered chunks of at most chunkSize.
func SplitChunks(records []core.Record, chunkSize int) [][]core.Record {
	if chunkSize <= 0 || len(records) == 0 {
		return nil
	}
	chunks := make([][]core.Record, 0, (len(records)+chunkSize-1)/chunkSize)
	for start := 0; start < len(records); start += chunkSize {
		end := start + chunkSize
		if end > len(records) {
			end = len(records)
		}
		chunks = append(chunks, records[start:end])
	}
	return chunks
}

// Process partitions records, dispatches every chunk concurrently, and
// merges the fragments after all chunks settle. A failed chunk contributes
// an empty fragment set and its index; siblings are unaffected. That holds
// for cancellation too: chunks finished before the cancel keep their
// fragments and the shortfall surfaces as a warning. Only when every chunk
// fails does Process return an error.
func (b *ChunkBatcher) Process(ctx context.Context, records []core.Record, chunkSize int, op PerChunkOp) (*BatchResult, error) {
	if len(records) == 0 {
		return nil, core.ErrValidation(core.CodeNoRecords, "no records to process")
	}
	if chunkSize <= 0 {
		return nil, core.ErrValidation(core.CodeInvalidChunkSize, fmt.Sprintf("chunk size must be positive, got %d", chunkSize))
	}
	if err := validateUniqueIDs(records); err != nil {
		return nil, err
	}

	chunks := SplitChunks(records, chunkSize)
	b.logger.Info("dispatching chunks",
		"records", len(records),
		"chunk_size", chunkSize,
		"chunks", len(chunks),
	)

	// One result slot per chunk; merging happens only after the join
	// barrier, so no locking on shared accumulators.
	slots := make([][]core.AnalysisFragment, len(chunks))
	failures := make([]error, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	if b.maxConcurrency > 0 {
		g.SetLimit(b.maxConcurrency)
	}
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			fragments, err := op(gctx, i, chunk)
			if err != nil {
				// Chunk failures are isolated, never propagated to
				// siblings. A cancelled chunk is recorded like any
				// other failure so completed fragments survive.
				if gctx.Err() == nil {
					b.logger.Warn("chunk failed",
						"chunk", i,
						"records", len(chunk),
						"error", err,
					)
				}
				failures[i] = err
				return nil
			}
			slots[i] = fragments
			return nil
		})
	}

	// Goroutines never return an error; the barrier only joins.
	_ = g.Wait()

	result := &BatchResult{Fragments: []core.AnalysisFragment{}}
	failed := 0
	for i := range chunks {
		if failures[i] != nil {
			failed++
			result.FailedChunks = append(result.FailedChunks, i)
		}
	}
	if failed == len(chunks) {
		return nil, core.ErrPipeline(core.CodeAllChunksFailed,
			fmt.Sprintf("all %d chunks failed", len(chunks))).
			WithCause(failures[0])
	}

	result.Fragments = b.merge(chunks, slots, failures, result)
	if err := ctx.Err(); err != nil {
		warn := fmt.Sprintf("run cancelled: %d of %d chunks did not complete", failed, len(chunks))
		result.Warnings = append(result.Warnings, warn)
		b.logger.Warn("batch cancelled before all chunks completed",
			"failed_chunks", failed,
			"chunks", len(chunks),
		)
	}
	return result, nil
}

// merge combines per-chunk fragments keyed by record id and verifies that
// the merged id set covers exactly the ids sent to successful chunks.
// Coverage defects are warnings, not failures.
func (b *ChunkBatcher) merge(chunks [][]core.Record, slots [][]core.AnalysisFragment, failures []error, result *BatchResult) []core.AnalysisFragment {
	expected := make(map[int]bool)
	for i, chunk := range chunks {
		if failures[i] != nil {
			continue
		}
		for _, r := range chunk {
			expected[r.ID] = true
		}
	}

	merged := make([]core.AnalysisFragment, 0, len(expected))
	seen := make(map[int]bool)
	for i, fragments := range slots {
		if failures[i] != nil {
			continue
		}
		for _, f := range fragments {
			if seen[f.RecordID] {
				warn := fmt.Sprintf("duplicate fragment for record %d dropped", f.RecordID)
				result.Warnings = append(result.Warnings, warn)
				b.logger.Warn("duplicate fragment dropped", "record_id", f.RecordID)
				continue
			}
			if !expected[f.RecordID] {
				warn := fmt.Sprintf("fragment for unknown record %d dropped", f.RecordID)
				result.Warnings = append(result.Warnings, warn)
				b.logger.Warn("fragment for unknown record dropped", "record_id", f.RecordID)
				continue
			}
			seen[f.RecordID] = true
			merged = append(merged, f)
		}
	}

	if len(seen) < len(expected) {
		missing := make([]int, 0)
		for id := range expected {
			if !seen[id] {
				missing = append(missing, id)
			}
		}
		cerr := core.ErrCoverage(fmt.Sprintf("%d records received no fragment", len(missing))).
			WithDetail("missing", missing)
		result.Warnings = append(result.Warnings, cerr.Error())
		b.logger.Warn("coverage gap in merged fragments",
			"expected", len(expected),
			"covered", len(seen),
			"missing", len(missing),
		)
	}

	return merged
}

func validateUniqueIDs(records []core.Record) error {
	seen := make(map[int]bool, len(records))
	for _, r := range records {
		if seen[r.ID] {
			return core.ErrValidation("DUPLICATE_RECORD_ID",
				fmt.Sprintf("record id %d appears more than once", r.ID))
		}
		seen[r.ID] = true
	}
	return nil
}
