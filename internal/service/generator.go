package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ticketlens/ticketlens/internal/core"
	"github.com/ticketlens/ticketlens/internal/logging"
	"gopkg.in/yaml.v3"
)

// Scenario describes the shape of synthetic records to generate.
type Scenario struct {
	Name       string   `yaml:"name"`
	Domain     string   `yaml:"domain"`
	Topics     []string `yaml:"topics"`
	Statuses   []string `yaml:"statuses"`
	Priorities []string `yaml:"priorities"`
}

// DefaultScenario returns a generic support scenario.
func DefaultScenario() *Scenario {
	return &Scenario{
		Name:       "generic-support",
		Domain:     "software subscription",
		Statuses:   []string{"open", "pending", "resolved", "closed"},
		Priorities: []string{"low", "medium", "high", "urgent"},
	}
}

// LoadScenario reads a scenario definition from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(buf, &s); err != nil {
		return nil, core.ErrValidation(core.CodeInvalidScenario, "scenario file is not valid YAML").WithCause(err)
	}
	if s.Domain == "" {
		return nil, core.ErrValidation(core.CodeInvalidScenario, "scenario must set a domain")
	}
	return &s, nil
}

// GeneratorConfig configures the record generator.
type GeneratorConfig struct {
	Model       string
	CallTimeout time.Duration
	IDFloor     int
}

// DefaultGeneratorConfig returns sensible defaults.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Model:       "gpt-4o-mini",
		CallTimeout: 2 * time.Minute,
		IDFloor:     DefaultIDFloor,
	}
}

// Generator produces synthetic ticket records, guarded against duplicate
// identifiers by the dedup guard before anything is committed.
type Generator struct {
	config  GeneratorConfig
	runner  *ModelRunner
	guard   *DedupGuard
	store   core.RecordStore
	prompts *PromptBuilder
	logger  *logging.Logger
}

// NewGenerator creates a record generator.
func NewGenerator(cfg GeneratorConfig, runner *ModelRunner, store core.RecordStore, logger *logging.Logger) *Generator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Generator{
		config:  cfg,
		runner:  runner,
		guard:   NewDedupGuard(store, cfg.IDFloor, logger),
		store:   store,
		prompts: NewPromptBuilder(),
		logger:  logger,
	}
}

// Generate asks the model for count fresh records starting at the next
// safe identifier, filters out anything already committed, and commits
// the remainder. All candidates being duplicates is surfaced as a fatal
// generation defect.
func (g *Generator) Generate(ctx context.Context, count int, tenant string, scenario *Scenario) ([]core.Record, error) {
	if count <= 0 {
		return nil, core.ErrValidation(core.CodeEmptyCandidates, fmt.Sprintf("count must be positive, got %d", count))
	}
	if scenario == nil {
		scenario = DefaultScenario()
	}

	startID, err := g.guard.NextStartID(ctx, tenant)
	if err != nil {
		return nil, err
	}

	log := g.logger.WithTenant(tenant)
	log.Info("generating records",
		"count", count,
		"start_id", startID,
		"scenario", scenario.Name,
	)

	payload, err := g.runner.Run(ctx, core.InvokeRequest{
		Flow:    "generate_records",
		Model:   g.config.Model,
		Prompt:  g.prompts.Generation(count, startID, scenario),
		Shape:   core.ShapeFragmentArray,
		Timeout: g.config.CallTimeout,
	})
	if err != nil {
		return nil, err
	}

	candidates, err := decodeGenerated(payload, tenant)
	if err != nil {
		return nil, err
	}

	fresh, err := g.guard.FilterNew(ctx, tenant, candidates)
	if err != nil {
		return nil, err
	}

	committed, err := g.store.InsertRecords(ctx, tenant, fresh)
	if err != nil {
		return nil, core.ErrStorage("committing generated records").WithCause(err).WithDetail("tenant", tenant)
	}

	log.Info("records committed",
		"generated", len(candidates),
		"committed", len(committed),
	)
	return committed, nil
}

// decodeGenerated turns an array payload into candidate records.
func decodeGenerated(payload *Payload, tenant string) ([]core.Record, error) {
	if payload.Shape != ShapeArray {
		return nil, core.ErrUnparseable("generation output is not an array", "")
	}

	records := make([]core.Record, 0, len(payload.Array))
	for i, item := range payload.Array {
		id, ok := item["id"].(float64)
		if !ok || id <= 0 {
			return nil, core.ErrUnparseable("generated record missing id", "").WithDetail("index", i)
		}
		rec := core.Record{
			ID:       int(id),
			Tenant:   tenant,
			Subject:  stringField(item, "subject"),
			Status:   stringField(item, "status"),
			Priority: stringField(item, "priority"),
		}
		rec.Description = stringField(item, "description")
		if ts := stringField(item, "created_at"); ts != "" {
			if t, err := time.Parse(time.RFC3339, ts); err == nil {
				rec.CreatedAt = t
			}
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = time.Now().UTC()
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, core.ErrUnparseable("generation output contained no records", "")
	}
	return records, nil
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
