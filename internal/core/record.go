package core

import "time"

// Sender identifies who wrote a conversation turn.
type Sender string

const (
	SenderCustomer Sender = "customer"
	SenderAgent    Sender = "agent"
)

// ConversationTurn is a single message in a ticket conversation.
type ConversationTurn struct {
	Sender  Sender `json:"sender"`
	Message string `json:"message"`
}

// Record is one analyzable support ticket. It is immutable once fetched for
// a pipeline run; mutations flow back only through the record store.
type Record struct {
	ID           int                `json:"id"`
	Tenant       string             `json:"tenant"`
	Subject      string             `json:"subject"`
	Description  string             `json:"description"`
	Conversation []ConversationTurn `json:"conversation,omitempty"`
	Status       string             `json:"status"`
	Priority     string             `json:"priority"`
	Satisfaction *int               `json:"satisfaction,omitempty"`
	AssignedTo   string             `json:"assigned_to,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
}

// AnalysisFragment is the structured result for one record produced by a
// single chunk. The union of fragments across chunks is keyed by RecordID.
type AnalysisFragment struct {
	RecordID  int     `json:"id"`
	Sentiment string  `json:"sentiment,omitempty"`
	Category  string  `json:"category,omitempty"`
	Cluster   string  `json:"cluster,omitempty"`
	Risk      string  `json:"risk,omitempty"`
	Summary   string  `json:"summary,omitempty"`
	Score     float64 `json:"score,omitempty"`
}

// RecordIDs returns the identifiers of a record slice in input order.
func RecordIDs(records []Record) []int {
	ids := make([]int, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}

// PhaseOutput is the typed result of one pipeline phase. Findings is the
// structured payload the next phase consumes; RawText is kept for
// diagnostics only.
type PhaseOutput struct {
	Phase      Phase                  `json:"phase"`
	Findings   map[string]interface{} `json:"findings"`
	Confidence float64                `json:"confidence"`
	Duration   time.Duration          `json:"duration"`
	RawText    string                 `json:"-"`
}

// PipelineState threads the accumulated phase history plus immutable shared
// context through the phase fold.
type PipelineState struct {
	RunID           string        `json:"run_id"`
	Records         []Record      `json:"-"`
	BusinessContext string        `json:"business_context"`
	History         []PhaseOutput `json:"history"`
	CurrentPhase    Phase         `json:"current_phase"`
}

// OutputFor returns the output of a completed phase, or nil.
func (s *PipelineState) OutputFor(p Phase) *PhaseOutput {
	for i := range s.History {
		if s.History[i].Phase == p {
			return &s.History[i]
		}
	}
	return nil
}

// SynthesisResult is the terminal artifact of the agentic pipeline.
type SynthesisResult struct {
	RunID      string                 `json:"run_id"`
	Report     map[string]interface{} `json:"report"`
	Confidence float64                `json:"confidence"`
	Phases     []PhaseOutput          `json:"phases"`
	Warnings   []string               `json:"warnings,omitempty"`
}

// EmptySynthesisResult returns the safe empty fallback shape so downstream
// consumers never branch on nil.
func EmptySynthesisResult(runID string) *SynthesisResult {
	return &SynthesisResult{
		RunID:  runID,
		Report: map[string]interface{}{},
		Phases: []PhaseOutput{},
	}
}
