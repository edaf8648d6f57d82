package core

import "time"

// AgentTask is a specialist unit of work: a role prompt bound to a model
// and a capability set, sharing one input payload with its siblings.
type AgentTask struct {
	Name       string                 `json:"name"`
	Model      string                 `json:"model"`
	RolePrompt string                 `json:"role_prompt"`
	Tools      []string               `json:"tools,omitempty"`
	Input      map[string]interface{} `json:"input"`
	Timeout    time.Duration          `json:"timeout"`
}

// AgentResult is the outcome of one agent task. A failed agent yields an
// explicit error payload, never a propagated failure.
type AgentResult struct {
	Agent     string                 `json:"agent"`
	Success   bool                   `json:"success"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Error     string                 `json:"error,omitempty"`
	StartedAt time.Time              `json:"started_at"`
	EndedAt   time.Time              `json:"ended_at"`
}

// Duration returns the elapsed task time. Never negative.
func (r AgentResult) Duration() time.Duration {
	d := r.EndedAt.Sub(r.StartedAt)
	if d < 0 {
		return 0
	}
	return d
}

// PerformanceRecord is an append-only metric row for one agent invocation.
type PerformanceRecord struct {
	Agent     string        `json:"agent"`
	Model     string        `json:"model"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// AgentStats is the aggregate view over a window of performance records.
type AgentStats struct {
	Agent       string        `json:"agent"`
	Invocations int           `json:"invocations"`
	Failures    int           `json:"failures"`
	AvgDuration time.Duration `json:"avg_duration"`
	SuccessRate float64       `json:"success_rate"`
}
