package service

import (
	"context"
	"time"

	"github.com/ticketlens/ticketlens/internal/core"
	"github.com/ticketlens/ticketlens/internal/logging"
	"golang.org/x/sync/errgroup"
)

// AgentRunResult aggregates a parallel agent group run.
type AgentRunResult struct {
	Results   []core.AgentResult       `json:"results"`
	Synthesis *core.AgentResult        `json:"synthesis,omitempty"`
	Metrics   []core.PerformanceRecord `json:"metrics"`
}

// EmptyAgentRunResult returns the safe empty fallback shape.
func EmptyAgentRunResult() *AgentRunResult {
	return &AgentRunResult{
		Results: []core.AgentResult{},
		Metrics: []core.PerformanceRecord{},
	}
}

// AgentCoordinator runs logically independent specialist agents
// concurrently. One agent failing degrades the aggregate; it never aborts
// the siblings.
type AgentCoordinator struct {
	runner   *ModelRunner
	prompts  *PromptBuilder
	perf     *PerformanceLog
	maxGroup int
	logger   *logging.Logger
}

// NewAgentCoordinator creates an agent coordinator. maxGroup bounds the
// parallel group width; <=0 means unbounded.
func NewAgentCoordinator(runner *ModelRunner, perf *PerformanceLog, maxGroup int, logger *logging.Logger) *AgentCoordinator {
	if perf == nil {
		perf = NewPerformanceLog(0)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &AgentCoordinator{
		runner:   runner,
		prompts:  NewPromptBuilder(),
		perf:     perf,
		maxGroup: maxGroup,
		logger:   logger,
	}
}

// PerformanceLog exposes the rolling metrics store.
func (c *AgentCoordinator) PerformanceLog() *PerformanceLog {
	return c.perf
}

// RunAgents executes all tasks concurrently and returns per-task results
// plus the performance records appended during the run. Metrics are
// recorded for every agent regardless of outcome.
func (c *AgentCoordinator) RunAgents(ctx context.Context, tasks []core.AgentTask) (*AgentRunResult, error) {
	if len(tasks) == 0 {
		return nil, core.ErrValidation(core.CodeNoTasks, "no agent tasks to run")
	}

	results := make([]core.AgentResult, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	if c.maxGroup > 0 {
		g.SetLimit(c.maxGroup)
	}
	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			results[i] = c.runAgent(gctx, task)
			return nil
		})
	}
	// Agent failures, cancellation included, are captured in their
	// result slot; the barrier never carries an error of its own.
	_ = g.Wait()

	metrics := make([]core.PerformanceRecord, 0, len(tasks))
	for i, task := range tasks {
		rec := core.PerformanceRecord{
			Agent:     task.Name,
			Model:     task.Model,
			Duration:  results[i].Duration(),
			Success:   results[i].Success,
			Error:     results[i].Error,
			Timestamp: results[i].EndedAt,
		}
		c.perf.Append(rec)
		metrics = append(metrics, rec)
	}

	return &AgentRunResult{Results: results, Metrics: metrics}, nil
}

// RunWithSynthesis runs the parallel group, then feeds the full aggregate
// (failed agents included) to the synthesis task. Synthesis sees failures
// as explicit error payloads, so one broken specialist degrades rather
// than aborts the analysis.
func (c *AgentCoordinator) RunWithSynthesis(ctx context.Context, tasks []core.AgentTask, synthesis core.AgentTask) (*AgentRunResult, error) {
	run, err := c.RunAgents(ctx, tasks)
	if err != nil {
		return nil, err
	}

	result := c.runSynthesis(ctx, synthesis, run.Results)
	rec := core.PerformanceRecord{
		Agent:     synthesis.Name,
		Model:     synthesis.Model,
		Duration:  result.Duration(),
		Success:   result.Success,
		Error:     result.Error,
		Timestamp: result.EndedAt,
	}
	c.perf.Append(rec)
	run.Metrics = append(run.Metrics, rec)
	run.Synthesis = &result
	return run, nil
}

// runAgent executes one specialist task, capturing failure in the result.
func (c *AgentCoordinator) runAgent(ctx context.Context, task core.AgentTask) core.AgentResult {
	log := c.logger.WithAgent(task.Name)
	result := core.AgentResult{Agent: task.Name, StartedAt: time.Now()}

	payload, err := c.runner.Run(ctx, core.InvokeRequest{
		Flow:         "agent_" + task.Name,
		Model:        task.Model,
		SystemPrompt: task.RolePrompt,
		Prompt:       c.prompts.AgentPrompt(task),
		Shape:        core.ShapeObject,
		Timeout:      task.Timeout,
	})
	result.EndedAt = time.Now()

	if err != nil {
		log.Warn("agent failed", "error", err, "duration", result.Duration().String())
		result.Error = err.Error()
		return result
	}

	result.Success = true
	result.Payload = payload.Object
	log.Info("agent completed", "duration", result.Duration().String())
	return result
}

func (c *AgentCoordinator) runSynthesis(ctx context.Context, task core.AgentTask, results []core.AgentResult) core.AgentResult {
	log := c.logger.WithAgent(task.Name)
	result := core.AgentResult{Agent: task.Name, StartedAt: time.Now()}

	payload, err := c.runner.Run(ctx, core.InvokeRequest{
		Flow:         "agent_synthesis",
		Model:        task.Model,
		SystemPrompt: task.RolePrompt,
		Prompt:       c.prompts.SynthesisAgentPrompt(task, results),
		Shape:        core.ShapeObject,
		Timeout:      task.Timeout,
	})
	result.EndedAt = time.Now()

	if err != nil {
		log.Warn("synthesis agent failed", "error", err)
		result.Error = err.Error()
		return result
	}

	result.Success = true
	result.Payload = payload.Object
	return result
}
