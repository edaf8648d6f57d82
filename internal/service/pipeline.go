package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ticketlens/ticketlens/internal/core"
	"github.com/ticketlens/ticketlens/internal/logging"
)

// PhaseError names the phase that broke the pipeline.
type PhaseError struct {
	Phase core.Phase
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("phase %s failed: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// PipelineConfig configures the phase pipeline.
type PipelineConfig struct {
	Model       string
	CallTimeout time.Duration
	Anonymize   bool
}

// DefaultPipelineConfig returns sensible defaults.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Model:       "gpt-4o",
		CallTimeout: 3 * time.Minute,
		Anonymize:   true,
	}
}

// PhasePipeline executes the sequential agentic analysis: discovery,
// hypothesis, targeted analysis, cross-validation, synthesis. Each phase
// consumes the accumulated output of prior phases plus the immutable
// shared context; a failed phase stops the pipeline. There is no
// skip-phase or retry-phase transition; retry lives inside the model
// runner wrapping each phase's call.
type PhasePipeline struct {
	config   PipelineConfig
	runner   *ModelRunner
	prompts  *PromptBuilder
	scrubber core.Scrubber
	logger   *logging.Logger
}

// NewPhasePipeline creates a phase pipeline.
func NewPhasePipeline(cfg PipelineConfig, runner *ModelRunner, scrubber core.Scrubber, logger *logging.Logger) *PhasePipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &PhasePipeline{
		config:   cfg,
		runner:   runner,
		prompts:  NewPromptBuilder(),
		scrubber: scrubber,
		logger:   logger,
	}
}

// Run folds the pipeline state over all phases and returns the terminal
// synthesis artifact.
func (p *PhasePipeline) Run(ctx context.Context, records []core.Record, businessContext string) (*core.SynthesisResult, error) {
	if len(records) == 0 {
		return nil, core.ErrValidation(core.CodeNoRecords, "no records to analyze")
	}

	runID := uuid.NewString()
	log := p.logger.WithRun(runID)

	var pseudo *Pseudonymizer
	shared := records
	if p.config.Anonymize {
		pseudo = NewPseudonymizer(p.scrubber)
		shared = make([]core.Record, len(records))
		for _, r := range records {
			if r.AssignedTo != "" {
				pseudo.TokenFor(r.AssignedTo)
			}
		}
		for i, r := range records {
			shared[i] = pseudo.ScrubRecord(r)
		}
	}

	state := &core.PipelineState{
		RunID:           runID,
		Records:         shared,
		BusinessContext: businessContext,
		CurrentPhase:    core.PhaseDiscovery,
	}

	for _, phase := range core.AllPhases() {
		state.CurrentPhase = phase
		log.WithPhase(phase.String()).Info("running phase", "history", len(state.History))

		output, err := p.runPhase(ctx, phase, state)
		if err != nil {
			log.WithPhase(phase.String()).Error("phase failed", "error", err)
			return nil, &PhaseError{Phase: phase, Err: err}
		}

		state.History = append(state.History, *output)
	}
	state.CurrentPhase = core.PhaseDone

	result := p.buildResult(state, pseudo)
	log.Info("pipeline complete", "confidence", result.Confidence)
	return result, nil
}

// runPhase executes one phase's model call and decodes its output.
func (p *PhasePipeline) runPhase(ctx context.Context, phase core.Phase, state *core.PipelineState) (*core.PhaseOutput, error) {
	// A phase must never run ahead of its input: phase N+1 requires the
	// full history of phases 0..N.
	if len(state.History) != core.PhaseOrder(phase) {
		return nil, core.ErrPipeline(core.CodeMissingPhaseInput,
			fmt.Sprintf("phase %s requires %d upstream outputs, have %d",
				phase, core.PhaseOrder(phase), len(state.History)))
	}

	started := time.Now()
	payload, err := p.runner.Run(ctx, core.InvokeRequest{
		Flow:    "pipeline_" + phase.String(),
		Model:   p.config.Model,
		Prompt:  p.prompts.PhasePrompt(phase, state),
		Shape:   core.ShapeObject,
		Timeout: p.config.CallTimeout,
	})
	if err != nil {
		return nil, err
	}

	findings, _ := payload.Object["findings"].(map[string]interface{})
	if findings == nil {
		// A phase that returns no findings object cannot feed the next
		// phase; treat the whole object as the findings payload.
		findings = payload.Object
	}

	return &core.PhaseOutput{
		Phase:      phase,
		Findings:   findings,
		Confidence: clampConfidence(numberField(payload.Object, "confidence")),
		Duration:   time.Since(started),
	}, nil
}

// buildResult assembles the terminal artifact from the completed state.
// The confidence is the synthesis phase's own holistic number, not a
// mechanical rollup; when synthesis omits it, the minimum upstream phase
// confidence is used as a conservative fallback.
func (p *PhasePipeline) buildResult(state *core.PipelineState, pseudo *Pseudonymizer) *core.SynthesisResult {
	result := core.EmptySynthesisResult(state.RunID)
	result.Phases = state.History

	synthesis := state.OutputFor(core.PhaseSynthesis)
	if synthesis == nil {
		return result
	}

	report := synthesis.Findings
	if pseudo != nil {
		report = pseudo.RestorePayload(report)
	}
	result.Report = report

	confidence := synthesis.Confidence
	if confidence == 0 {
		confidence = 1
		for _, out := range state.History {
			if out.Phase == core.PhaseSynthesis {
				continue
			}
			if out.Confidence < confidence {
				confidence = out.Confidence
			}
		}
		result.Warnings = append(result.Warnings, "synthesis omitted confidence; using minimum upstream phase confidence")
	}
	result.Confidence = clampConfidence(confidence)
	return result
}

func numberField(m map[string]interface{}, key string) float64 {
	if m == nil {
		return 0
	}
	if v, ok := m[key].(float64); ok {
		return v
	}
	return 0
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
