package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"

	"github.com/ticketlens/ticketlens/internal/adapters/model"
	"github.com/ticketlens/ticketlens/internal/adapters/scrub"
	"github.com/ticketlens/ticketlens/internal/adapters/store"
	"github.com/ticketlens/ticketlens/internal/config"
	"github.com/ticketlens/ticketlens/internal/core"
	"github.com/ticketlens/ticketlens/internal/diag"
	"github.com/ticketlens/ticketlens/internal/service"
)

// app bundles the wired service graph shared by all subcommands.
type app struct {
	analyzer  *service.Analyzer
	pipeline  *service.PhasePipeline
	agents    *service.AgentCoordinator
	generator *service.Generator
	store     core.RecordStore
	flows     *diag.Ring
	perf      *service.PerformanceLog

	closers []func() error
}

func (a *app) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// buildApp wires adapters and services from the loaded configuration.
func buildApp(cfg *config.Config) (*app, error) {
	var invokerOpts []model.Option
	if cfg.Backend.BaseURL != "" {
		invokerOpts = append(invokerOpts, model.WithBaseURL(cfg.Backend.BaseURL))
	}
	invoker := model.NewOpenAIInvoker(cfg.Backend.APIKey, logger, invokerOpts...)

	retry := service.NewRetryPolicy(
		service.WithMaxAttempts(cfg.Retry.MaxAttempts),
		service.WithBaseDelay(cfg.Retry.BaseDelay),
		service.WithMaxDelay(cfg.Retry.MaxDelay),
		service.WithJitterMax(cfg.Retry.JitterMax),
		service.WithMultiplier(cfg.Retry.Multiplier),
	)

	flows := diag.NewRing(cfg.Diag.Capacity)
	runner := service.NewModelRunner(invoker, retry, flows, logger)

	scrubber := scrub.NewRegexScrubber()
	for _, rule := range cfg.Privacy.ScrubRules {
		if err := scrubber.AddRule(rule.Pattern, rule.Placeholder); err != nil {
			return nil, fmt.Errorf("scrub rule %q: %w", rule.Pattern, err)
		}
	}

	a := &app{flows: flows}

	switch cfg.Store.Driver {
	case "memory":
		a.store = store.NewMemoryStore()
	default:
		sqliteStore, err := store.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("opening record store: %w", err)
		}
		a.store = sqliteStore
		a.closers = append(a.closers, sqliteStore.Close)
	}

	a.analyzer = service.NewAnalyzer(service.AnalyzerConfig{
		Model:          cfg.Analysis.Model,
		ChunkSize:      cfg.Analysis.ChunkSize,
		MaxConcurrency: cfg.Analysis.MaxConcurrency,
		CallTimeout:    cfg.Analysis.CallTimeout,
		Anonymize:      cfg.Analysis.Anonymize,
	}, runner, scrubber, logger)

	a.pipeline = service.NewPhasePipeline(service.PipelineConfig{
		Model:       cfg.Pipeline.Model,
		CallTimeout: cfg.Pipeline.CallTimeout,
		Anonymize:   cfg.Pipeline.Anonymize,
	}, runner, scrubber, logger)

	a.perf = service.NewPerformanceLog(cfg.Agents.MetricsWindow)
	a.agents = service.NewAgentCoordinator(runner, a.perf, cfg.Agents.MaxGroup, logger)

	a.generator = service.NewGenerator(service.GeneratorConfig{
		Model:       cfg.Generation.Model,
		CallTimeout: cfg.Generation.CallTimeout,
		IDFloor:     cfg.Generation.IDFloor,
	}, runner, a.store, logger)

	return a, nil
}

// loadRecordsFile reads a JSON array of records from disk.
func loadRecordsFile(path string) ([]core.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading records file: %w", err)
	}
	var records []core.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing records file %s: %w", path, err)
	}
	return records, nil
}

// resolveInput loads records from a file when given, falling back to the
// tenant's committed records.
func resolveInput(cmd *cobra.Command, a *app, inputFile, tenant string) ([]core.Record, error) {
	if inputFile != "" {
		return loadRecordsFile(inputFile)
	}
	if tenant == "" {
		return nil, fmt.Errorf("either --input or --tenant is required")
	}
	return a.store.ListRecords(cmd.Context(), tenant)
}

// writeResult emits the result as JSON, either to stdout or atomically to
// the --out path.
func writeResult(outPath string, v interface{}) error {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	buf = append(buf, '\n')

	if outPath == "" {
		_, err = os.Stdout.Write(buf)
		return err
	}
	if err := renameio.WriteFile(outPath, buf, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	return nil
}
