package service

import (
	"context"
	"sync"
	"testing"

	"github.com/ticketlens/ticketlens/internal/core"
)

type captureSink struct {
	mu      sync.Mutex
	entries []core.FlowEntry
}

func (s *captureSink) Append(e core.FlowEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
}

func (s *captureSink) directions() []core.FlowDirection {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.FlowDirection, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Direction
	}
	return out
}

func TestModelRunner_Run_MirrorsTrafficToSink(t *testing.T) {
	inv := newFakeInvoker(func(req core.InvokeRequest, call int) (*core.RawResponse, error) {
		return jsonResponse(map[string]interface{}{"ok": true}), nil
	})
	sink := &captureSink{}
	r := NewModelRunner(inv, noDelayRetry(3), sink, nil)

	_, err := r.Run(context.Background(), core.InvokeRequest{
		Flow:   "batch_analysis",
		Model:  "gpt-4o-mini",
		Prompt: "analyze",
		Shape:  core.ShapeObject,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	dirs := sink.directions()
	if len(dirs) != 2 || dirs[0] != core.FlowSent || dirs[1] != core.FlowReceived {
		t.Errorf("directions = %v, want [sent received]", dirs)
	}
	if sink.entries[0].Flow != "batch_analysis" {
		t.Errorf("Flow = %q", sink.entries[0].Flow)
	}
}

func TestModelRunner_Run_RecordsErrorEntries(t *testing.T) {
	inv := newFakeInvoker(func(req core.InvokeRequest, call int) (*core.RawResponse, error) {
		if call == 1 {
			return nil, core.ErrNetwork("connection refused")
		}
		return jsonResponse(map[string]interface{}{"ok": true}), nil
	})
	sink := &captureSink{}
	r := NewModelRunner(inv, noDelayRetry(3), sink, nil)

	_, err := r.Run(context.Background(), core.InvokeRequest{
		Flow:  "agent_churn",
		Model: "gpt-4o",
		Shape: core.ShapeObject,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	dirs := sink.directions()
	want := []core.FlowDirection{core.FlowSent, core.FlowError, core.FlowSent, core.FlowReceived}
	if len(dirs) != len(want) {
		t.Fatalf("directions = %v, want %v", dirs, want)
	}
	for i := range want {
		if dirs[i] != want[i] {
			t.Errorf("directions[%d] = %v, want %v", i, dirs[i], want[i])
		}
	}
}

func TestModelRunner_Run_NormalizationNotRetried(t *testing.T) {
	inv := newFakeInvoker(func(req core.InvokeRequest, call int) (*core.RawResponse, error) {
		return textResponse("not json"), nil
	})
	r := NewModelRunner(inv, noDelayRetry(5), nil, nil)

	_, err := r.Run(context.Background(), core.InvokeRequest{
		Flow:  "batch_analysis",
		Model: "gpt-4o-mini",
		Shape: core.ShapeObject,
	})
	if !core.IsCategory(err, core.ErrCatUnparseable) {
		t.Fatalf("expected unparseable error, got %v", err)
	}
	if inv.totalCalls() != 1 {
		t.Errorf("totalCalls = %d, want 1 (malformed responses are terminal)", inv.totalCalls())
	}
}

func TestModelRunner_Run_RateLimiterBlocksWhenDrained(t *testing.T) {
	inv := newFakeInvoker(func(req core.InvokeRequest, call int) (*core.RawResponse, error) {
		return jsonResponse(map[string]interface{}{}), nil
	})
	r := NewModelRunner(inv, noDelayRetry(1), nil, nil)
	r.Limits().SetConfig("gpt-4o", RateLimiterConfig{MaxTokens: 1, RefillRate: 0.001})

	req := core.InvokeRequest{Flow: "f", Model: "gpt-4o", Shape: core.ShapeObject}
	if _, err := r.Run(context.Background(), req); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Run(ctx, req); err == nil {
		t.Error("expected the drained limiter to surface cancellation")
	}
	if inv.totalCalls() != 1 {
		t.Errorf("totalCalls = %d, want 1 (second call never reached the backend)", inv.totalCalls())
	}
}
