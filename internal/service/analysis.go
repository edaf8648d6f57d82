package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ticketlens/ticketlens/internal/core"
	"github.com/ticketlens/ticketlens/internal/logging"
)

// AnalyzerConfig configures the batch analyzer.
type AnalyzerConfig struct {
	Model          string
	ChunkSize      int
	MaxConcurrency int
	CallTimeout    time.Duration
	Anonymize      bool
}

// DefaultAnalyzerConfig returns sensible defaults.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		Model:          "gpt-4o-mini",
		ChunkSize:      200,
		MaxConcurrency: 4,
		CallTimeout:    2 * time.Minute,
		Anonymize:      true,
	}
}

// Analyzer drives chunked batch analysis of ticket records through the
// model backend.
type Analyzer struct {
	config   AnalyzerConfig
	runner   *ModelRunner
	batcher  *ChunkBatcher
	prompts  *PromptBuilder
	scrubber core.Scrubber
	logger   *logging.Logger
}

// NewAnalyzer creates a batch analyzer.
func NewAnalyzer(cfg AnalyzerConfig, runner *ModelRunner, scrubber core.Scrubber, logger *logging.Logger) *Analyzer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Analyzer{
		config:   cfg,
		runner:   runner,
		batcher:  NewChunkBatcher(cfg.MaxConcurrency, logger),
		prompts:  NewPromptBuilder(),
		scrubber: scrubber,
		logger:   logger,
	}
}

// RunBatchAnalysis splits records into chunks and produces one fragment
// per record. A fresh pseudonym map is built for the request and shared by
// all chunks, so identifier continuity holds across the whole run.
func (a *Analyzer) RunBatchAnalysis(ctx context.Context, records []core.Record, chunkSize int, goal string) (*BatchResult, error) {
	if chunkSize <= 0 {
		chunkSize = a.config.ChunkSize
	}

	runID := uuid.NewString()
	log := a.logger.WithRun(runID)
	log.Info("starting batch analysis",
		"records", len(records),
		"chunk_size", chunkSize,
		"goal", goal,
	)

	var pseudo *Pseudonymizer
	if a.config.Anonymize {
		pseudo = NewPseudonymizer(a.scrubber)
		// Register every assignee up front so free-text scrubbing sees
		// the full mapping regardless of chunk completion order.
		for _, r := range records {
			if r.AssignedTo != "" {
				pseudo.TokenFor(r.AssignedTo)
			}
		}
	}

	op := func(ctx context.Context, chunkIndex int, chunk []core.Record) ([]core.AnalysisFragment, error) {
		outbound := chunk
		if pseudo != nil {
			outbound = make([]core.Record, len(chunk))
			for i, r := range chunk {
				outbound[i] = pseudo.ScrubRecord(r)
			}
		}

		payload, err := a.runner.Run(ctx, core.InvokeRequest{
			Flow:    "batch_analysis",
			Model:   a.config.Model,
			Prompt:  a.prompts.BatchAnalysis(outbound, goal),
			Shape:   core.ShapeFragmentArray,
			Timeout: a.config.CallTimeout,
		})
		if err != nil {
			return nil, err
		}

		fragments, err := payload.Fragments()
		if err != nil {
			return nil, err
		}

		if pseudo != nil {
			for i := range fragments {
				fragments[i].Summary = pseudo.RestoreText(fragments[i].Summary)
				fragments[i].Category = pseudo.RestoreText(fragments[i].Category)
			}
		}
		return fragments, nil
	}

	result, err := a.batcher.Process(ctx, records, chunkSize, op)
	if err != nil {
		return nil, err
	}

	log.Info("batch analysis complete",
		"fragments", len(result.Fragments),
		"failed_chunks", len(result.FailedChunks),
	)
	return result, nil
}
