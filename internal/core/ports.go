package core

import (
	"context"
	"time"
)

// =============================================================================
// Model Invoker Port
// =============================================================================

// OutputShape describes the structural contract the caller expects back
// from the model. The invoker never inspects prompt content.
type OutputShape string

const (
	ShapeFragmentArray OutputShape = "fragment_array" // JSON array of per-record objects
	ShapeObject        OutputShape = "object"         // single JSON object
)

// InvokeRequest is the typed input for one model invocation.
type InvokeRequest struct {
	Flow         string // logical flow name, for diagnostics
	Model        string // backend model identifier
	SystemPrompt string
	Prompt       string
	Shape        OutputShape
	MaxTokens    int
	Temperature  float64
	Timeout      time.Duration // mandatory; invoker must not block indefinitely
}

// RawResponse is the unprocessed backend output. Exactly one of the fields
// may be populated depending on the backend's response envelope; the
// normalizer owns shape detection.
type RawResponse struct {
	Body      []byte // raw response body
	Text      string // extracted text segment, when the adapter found one
	Model     string // model that actually served the call
	TokensIn  int
	TokensOut int
	Duration  time.Duration
}

// ModelInvoker wraps a single call to the external inference backend.
// It performs exactly one outbound call per invocation and no internal
// retry; retry is the caller's concern.
type ModelInvoker interface {
	Invoke(ctx context.Context, req InvokeRequest) (*RawResponse, error)
}

// =============================================================================
// Record Store Port (persistence collaborator, opaque to the core)
// =============================================================================

// RecordStore is the external persistence collaborator. The orchestration
// engine treats it as an opaque ledger plus record sink.
type RecordStore interface {
	// InsertRecords commits records for a tenant and returns the committed rows.
	InsertRecords(ctx context.Context, tenant string, records []Record) ([]Record, error)

	// QueryExistingIDs returns the subset of candidate ids already committed
	// for the tenant.
	QueryExistingIDs(ctx context.Context, tenant string, candidateIDs []int) ([]int, error)

	// HighestID returns the highest committed id for the tenant.
	// ok is false when the tenant has no records.
	HighestID(ctx context.Context, tenant string) (id int, ok bool, err error)

	// ListRecords returns all committed records for a tenant.
	ListRecords(ctx context.Context, tenant string) ([]Record, error)
}

// =============================================================================
// Content Scrubber Port
// =============================================================================

// Scrubber redacts PII from free text before it leaves the process
// boundary toward the model backend.
type Scrubber interface {
	Scrub(text string) string
}

// =============================================================================
// Diagnostics Sink Port
// =============================================================================

// FlowDirection tags a diagnostic entry.
type FlowDirection string

const (
	FlowSent     FlowDirection = "sent"
	FlowReceived FlowDirection = "received"
	FlowError    FlowDirection = "error"
)

// FlowEntry is one diagnostic record of model traffic.
type FlowEntry struct {
	Timestamp   time.Time     `json:"timestamp"`
	Direction   FlowDirection `json:"direction"`
	Flow        string        `json:"flow"`
	RunID       string        `json:"run_id,omitempty"`
	PayloadSize int           `json:"payload_size"`
	DurationMS  int64         `json:"duration_ms,omitempty"`
	Note        string        `json:"note,omitempty"`
}

// DiagnosticSink receives flow entries. Appends are best-effort: a failing
// sink must never fail the pipeline.
type DiagnosticSink interface {
	Append(entry FlowEntry)
}

// NopSink is a DiagnosticSink that discards everything.
type NopSink struct{}

func (NopSink) Append(FlowEntry) {}
