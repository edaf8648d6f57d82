package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ticketlens/ticketlens/internal/core"
)

// PromptBuilder renders the templated strings sent to the model backend.
// The orchestration engine treats the wording as opaque; only the typed
// input/output contract matters to callers.
type PromptBuilder struct{}

// NewPromptBuilder creates a prompt builder.
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// encodeRecords renders records as a compact JSON block for the prompt.
func encodeRecords(records []core.Record) string {
	buf, err := json.Marshal(records)
	if err != nil {
		return "[]"
	}
	return string(buf)
}

// BatchAnalysis renders the per-chunk sentiment/category prompt. The
// response contract is a JSON array with one object per input record id.
func (b *PromptBuilder) BatchAnalysis(records []core.Record, goal string) string {
	var sb strings.Builder
	sb.WriteString("Analyze the following support tickets")
	if goal != "" {
		sb.WriteString(" with this goal: ")
		sb.WriteString(goal)
	}
	sb.WriteString(".\n")
	sb.WriteString("Return ONLY a JSON array with one object per ticket: ")
	sb.WriteString(`{"id": <ticket id>, "sentiment": "positive|neutral|negative", "category": "<short label>", "summary": "<one sentence>"}`)
	sb.WriteString("\nEvery input id must appear exactly once.\n\nTickets:\n")
	sb.WriteString(encodeRecords(records))
	return sb.String()
}

// PhasePrompt renders the prompt for one pipeline phase from the
// accumulated state. Earlier phase findings are threaded in verbatim.
func (b *PromptBuilder) PhasePrompt(phase core.Phase, state *core.PipelineState) string {
	var sb strings.Builder
	sb.WriteString(phase.Description())
	sb.WriteString(".\n")
	if state.BusinessContext != "" {
		sb.WriteString("Business context: ")
		sb.WriteString(state.BusinessContext)
		sb.WriteString("\n")
	}
	for _, prev := range state.History {
		buf, err := json.Marshal(prev.Findings)
		if err != nil {
			continue
		}
		fmt.Fprintf(&sb, "Output of %s phase: %s\n", prev.Phase, buf)
	}
	sb.WriteString(`Return ONLY a JSON object: {"findings": {...}, "confidence": <0..1>}`)
	sb.WriteString("\n\nTickets:\n")
	sb.WriteString(encodeRecords(state.Records))
	return sb.String()
}

// AgentPrompt renders a specialist agent's prompt from its role and the
// shared input payload.
func (b *PromptBuilder) AgentPrompt(task core.AgentTask) string {
	var sb strings.Builder
	sb.WriteString(task.RolePrompt)
	sb.WriteString("\nReturn ONLY a JSON object with your findings.\n")
	if len(task.Tools) > 0 {
		sb.WriteString("Available capabilities: ")
		sb.WriteString(strings.Join(task.Tools, ", "))
		sb.WriteString("\n")
	}
	buf, err := json.Marshal(task.Input)
	if err == nil {
		sb.WriteString("\nInput:\n")
		sb.Write(buf)
	}
	return sb.String()
}

// Generation renders the synthetic record generation prompt. startID is the
// first identifier the model must use; ids must ascend without gaps.
func (b *PromptBuilder) Generation(count, startID int, scenario *Scenario) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Generate %d realistic support tickets for a %s business.\n", count, scenario.Domain)
	fmt.Fprintf(&sb, "Use sequential integer ids starting at %d.\n", startID)
	if len(scenario.Topics) > 0 {
		sb.WriteString("Draw subjects from these topics: ")
		sb.WriteString(strings.Join(scenario.Topics, ", "))
		sb.WriteString(".\n")
	}
	if len(scenario.Statuses) > 0 {
		sb.WriteString("Allowed statuses: ")
		sb.WriteString(strings.Join(scenario.Statuses, ", "))
		sb.WriteString(".\n")
	}
	if len(scenario.Priorities) > 0 {
		sb.WriteString("Allowed priorities: ")
		sb.WriteString(strings.Join(scenario.Priorities, ", "))
		sb.WriteString(".\n")
	}
	sb.WriteString("Return ONLY a JSON array of objects: ")
	sb.WriteString(`{"id": <int>, "subject": "...", "description": "...", "status": "...", "priority": "...", "created_at": "<RFC3339>"}`)
	return sb.String()
}

// SynthesisAgentPrompt renders the aggregate-consuming synthesis prompt
// for the multi-agent coordinator.
func (b *PromptBuilder) SynthesisAgentPrompt(task core.AgentTask, results []core.AgentResult) string {
	var sb strings.Builder
	sb.WriteString(task.RolePrompt)
	sb.WriteString("\nYou receive the findings of every specialist, including failures. ")
	sb.WriteString("Weigh failed specialists as missing evidence, not as zero risk.\n")
	buf, err := json.Marshal(results)
	if err == nil {
		sb.WriteString("\nSpecialist results:\n")
		sb.Write(buf)
	}
	sb.WriteString("\nReturn ONLY a JSON object with your combined findings and a \"confidence\" number in [0,1].")
	return sb.String()
}
