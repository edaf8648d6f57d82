package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ticketlens/ticketlens/internal/core"
)

func specialistTasks(names ...string) []core.AgentTask {
	tasks := make([]core.AgentTask, len(names))
	for i, name := range names {
		tasks[i] = core.AgentTask{
			Name:       name,
			Model:      "gpt-4o",
			RolePrompt: "You are the " + name + " specialist.",
			Input:      map[string]interface{}{"window": "30d"},
			Timeout:    time.Minute,
		}
	}
	return tasks
}

func TestAgentCoordinator_RunAgents_AllSucceed(t *testing.T) {
	inv := newFakeInvoker(func(req core.InvokeRequest, call int) (*core.RawResponse, error) {
		return jsonResponse(map[string]interface{}{"verdict": "ok"}), nil
	})
	c := NewAgentCoordinator(newTestRunner(inv), nil, 0, nil)

	run, err := c.RunAgents(context.Background(), specialistTasks("sentiment", "churn", "escalation"))
	if err != nil {
		t.Fatalf("RunAgents() error = %v", err)
	}
	if len(run.Results) != 3 {
		t.Fatalf("len(Results) = %d, want 3", len(run.Results))
	}
	for _, r := range run.Results {
		if !r.Success {
			t.Errorf("agent %s failed: %s", r.Agent, r.Error)
		}
		if r.Payload["verdict"] != "ok" {
			t.Errorf("agent %s payload = %v", r.Agent, r.Payload)
		}
	}
	if len(run.Metrics) != 3 {
		t.Errorf("len(Metrics) = %d, want 3", len(run.Metrics))
	}
}

func TestAgentCoordinator_RunAgents_FailureIsolated(t *testing.T) {
	inv := newFakeInvoker(func(req core.InvokeRequest, call int) (*core.RawResponse, error) {
		if req.Flow == "agent_churn" {
			return nil, core.ErrValidation("BACKEND_REJECTED", "churn agent rejected")
		}
		return jsonResponse(map[string]interface{}{"verdict": "ok"}), nil
	})
	c := NewAgentCoordinator(newTestRunner(inv), nil, 0, nil)

	run, err := c.RunAgents(context.Background(), specialistTasks("sentiment", "churn", "escalation"))
	if err != nil {
		t.Fatalf("RunAgents() error = %v", err)
	}

	byName := make(map[string]core.AgentResult)
	for _, r := range run.Results {
		byName[r.Agent] = r
	}
	if byName["churn"].Success {
		t.Error("churn agent should have failed")
	}
	if byName["churn"].Error == "" {
		t.Error("failed agent should carry its error")
	}
	if !byName["sentiment"].Success || !byName["escalation"].Success {
		t.Error("sibling agents should be unaffected by one failure")
	}
}

func TestAgentCoordinator_RunAgents_MetricsForEveryOutcome(t *testing.T) {
	inv := newFakeInvoker(func(req core.InvokeRequest, call int) (*core.RawResponse, error) {
		if req.Flow == "agent_churn" {
			return nil, core.ErrValidation("BACKEND_REJECTED", "nope")
		}
		return jsonResponse(map[string]interface{}{}), nil
	})
	perf := NewPerformanceLog(0)
	c := NewAgentCoordinator(newTestRunner(inv), perf, 0, nil)

	if _, err := c.RunAgents(context.Background(), specialistTasks("sentiment", "churn")); err != nil {
		t.Fatalf("RunAgents() error = %v", err)
	}

	if perf.Len() != 2 {
		t.Fatalf("perf.Len() = %d, want 2 (failures recorded too)", perf.Len())
	}
	stats := perf.StatsByAgent()
	for _, s := range stats {
		if s.Agent == "churn" && s.Failures != 1 {
			t.Errorf("churn failures = %d, want 1", s.Failures)
		}
	}
}

func TestAgentCoordinator_RunAgents_NoTasks(t *testing.T) {
	c := NewAgentCoordinator(newTestRunner(newFakeInvoker(nil)), nil, 0, nil)

	_, err := c.RunAgents(context.Background(), nil)
	var domErr *core.DomainError
	if !errors.As(err, &domErr) || domErr.Code != core.CodeNoTasks {
		t.Fatalf("expected NO_TASKS, got %v", err)
	}
}

func TestAgentCoordinator_RunWithSynthesis_SeesFailures(t *testing.T) {
	inv := newFakeInvoker(func(req core.InvokeRequest, call int) (*core.RawResponse, error) {
		switch req.Flow {
		case "agent_churn":
			return nil, core.ErrValidation("BACKEND_REJECTED", "churn down")
		case "agent_synthesis":
			// The synthesis prompt must include the failed specialist.
			if !strings.Contains(req.Prompt, "churn down") {
				t.Errorf("synthesis prompt omits the failed agent's error")
			}
			return jsonResponse(map[string]interface{}{"overall_risk": "medium"}), nil
		default:
			return jsonResponse(map[string]interface{}{"verdict": "ok"}), nil
		}
	})
	c := NewAgentCoordinator(newTestRunner(inv), nil, 0, nil)

	synthesis := core.AgentTask{Name: "synthesis", Model: "gpt-4o", RolePrompt: "Combine the findings."}
	run, err := c.RunWithSynthesis(context.Background(), specialistTasks("sentiment", "churn"), synthesis)
	if err != nil {
		t.Fatalf("RunWithSynthesis() error = %v", err)
	}
	if run.Synthesis == nil || !run.Synthesis.Success {
		t.Fatalf("synthesis result = %+v", run.Synthesis)
	}
	if run.Synthesis.Payload["overall_risk"] != "medium" {
		t.Errorf("synthesis payload = %v", run.Synthesis.Payload)
	}
	// Two specialists plus synthesis.
	if len(run.Metrics) != 3 {
		t.Errorf("len(Metrics) = %d, want 3", len(run.Metrics))
	}
}

func TestAgentCoordinator_RunAgents_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The first specialist finishes, then the caller cancels. Completed
	// results are kept; cancelled agents report failure in their slot.
	inv := newFakeInvoker(func(req core.InvokeRequest, call int) (*core.RawResponse, error) {
		if req.Flow == "agent_sentiment" {
			resp := jsonResponse(map[string]interface{}{"verdict": "ok"})
			cancel()
			return resp, nil
		}
		return nil, ctx.Err()
	})
	c := NewAgentCoordinator(newTestRunner(inv), nil, 1, nil)

	run, err := c.RunAgents(ctx, specialistTasks("sentiment", "churn"))
	if err != nil {
		t.Fatalf("RunAgents() error = %v", err)
	}
	if len(run.Results) != 2 {
		t.Fatalf("len(Results) = %d, want 2", len(run.Results))
	}
	if !run.Results[0].Success || run.Results[0].Payload["verdict"] != "ok" {
		t.Errorf("sentiment result = %+v, want success", run.Results[0])
	}
	if run.Results[1].Success {
		t.Errorf("churn result = %+v, want failure after cancel", run.Results[1])
	}
	if run.Results[1].Error == "" {
		t.Errorf("churn result carries no error")
	}
	// Metrics are still recorded for every agent, cancelled or not.
	if len(run.Metrics) != 2 {
		t.Errorf("len(Metrics) = %d, want 2", len(run.Metrics))
	}
}
