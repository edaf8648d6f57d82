package core

import "fmt"

// Phase represents a stage in the agentic analysis pipeline.
type Phase string

const (
	// PhaseDiscovery is the first phase. The model surveys the raw tickets
	// and reports notable patterns without any steering.
	PhaseDiscovery Phase = "discovery"

	// PhaseHypothesis is the second phase. Discovery findings are turned
	// into concrete, falsifiable hypotheses about the ticket population.
	PhaseHypothesis Phase = "hypothesis"

	// PhaseTargetedAnalysis is the third phase. Each hypothesis is tested
	// against the records that are relevant to it.
	PhaseTargetedAnalysis Phase = "targeted_analysis"

	// PhaseCrossValidation is the fourth phase. Targeted findings are
	// checked against each other and against the full record set.
	PhaseCrossValidation Phase = "cross_validation"

	// PhaseSynthesis is the final executable phase. Validated findings are
	// folded into one report with a holistic confidence score.
	PhaseSynthesis Phase = "synthesis"

	// PhaseDone is the terminal state after synthesis completes.
	// It is NOT an executable phase.
	PhaseDone Phase = "done"
)

// AllPhases returns all executable phases in execution order.
func AllPhases() []Phase {
	return []Phase{PhaseDiscovery, PhaseHypothesis, PhaseTargetedAnalysis, PhaseCrossValidation, PhaseSynthesis}
}

// PhaseOrder returns the numeric order of a phase (0-indexed).
func PhaseOrder(p Phase) int {
	switch p {
	case PhaseDiscovery:
		return 0
	case PhaseHypothesis:
		return 1
	case PhaseTargetedAnalysis:
		return 2
	case PhaseCrossValidation:
		return 3
	case PhaseSynthesis:
		return 4
	case PhaseDone:
		return 5
	default:
		return -1
	}
}

// NextPhase returns the phase following the given phase.
// Synthesis transitions to Done; Done has no successor.
func NextPhase(p Phase) Phase {
	switch p {
	case PhaseDiscovery:
		return PhaseHypothesis
	case PhaseHypothesis:
		return PhaseTargetedAnalysis
	case PhaseTargetedAnalysis:
		return PhaseCrossValidation
	case PhaseCrossValidation:
		return PhaseSynthesis
	case PhaseSynthesis:
		return PhaseDone
	default:
		return ""
	}
}

// ValidPhase checks if a phase string is valid.
func ValidPhase(p Phase) bool {
	switch p {
	case PhaseDiscovery, PhaseHypothesis, PhaseTargetedAnalysis, PhaseCrossValidation, PhaseSynthesis, PhaseDone:
		return true
	default:
		return false
	}
}

// ParsePhase converts a string to a Phase with validation.
func ParsePhase(s string) (Phase, error) {
	p := Phase(s)
	if !ValidPhase(p) {
		return "", fmt.Errorf("invalid phase: %s", s)
	}
	return p, nil
}

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}

// Description returns a human-readable description of the phase.
func (p Phase) Description() string {
	switch p {
	case PhaseDiscovery:
		return "Survey records for notable patterns"
	case PhaseHypothesis:
		return "Form falsifiable hypotheses from discovered patterns"
	case PhaseTargetedAnalysis:
		return "Test each hypothesis against the relevant records"
	case PhaseCrossValidation:
		return "Cross-check targeted findings for contradictions"
	case PhaseSynthesis:
		return "Fold validated findings into a final report"
	case PhaseDone:
		return "Pipeline completed"
	default:
		return "Unknown phase"
	}
}
