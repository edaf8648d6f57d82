package service

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiter_TryAcquireDrainsBucket(t *testing.T) {
	limiter := NewRateLimiter(RateLimiterConfig{MaxTokens: 3, RefillRate: 0.001})

	for i := 0; i < 3; i++ {
		if !limiter.TryAcquire() {
			t.Fatalf("acquire %d should succeed", i+1)
		}
	}
	if limiter.TryAcquire() {
		t.Error("acquire past capacity should fail")
	}
}

func TestRateLimiter_AcquireImmediateWhenTokensAvailable(t *testing.T) {
	limiter := NewRateLimiter(RateLimiterConfig{MaxTokens: 1, RefillRate: 1})

	start := time.Now()
	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("Acquire with a free token blocked for %v", elapsed)
	}
}

func TestRateLimiter_AcquireRespectsContextCancel(t *testing.T) {
	limiter := NewRateLimiter(RateLimiterConfig{MaxTokens: 1, RefillRate: 0.001})
	if !limiter.TryAcquire() {
		t.Fatal("drain should succeed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := limiter.Acquire(ctx); err != context.Canceled {
		t.Errorf("Acquire() error = %v, want context.Canceled", err)
	}
}

func TestRateLimiter_Refills(t *testing.T) {
	limiter := NewRateLimiter(RateLimiterConfig{MaxTokens: 2, RefillRate: 100})

	limiter.TryAcquire()
	limiter.TryAcquire()
	if limiter.TryAcquire() {
		t.Fatal("bucket should be empty")
	}

	time.Sleep(50 * time.Millisecond)
	if !limiter.TryAcquire() {
		t.Error("bucket should have refilled")
	}
}

func TestRateLimiter_AvailableCapsAtMax(t *testing.T) {
	limiter := NewRateLimiter(RateLimiterConfig{MaxTokens: 5, RefillRate: 1000})

	time.Sleep(20 * time.Millisecond)
	if got := limiter.Available(); got > 5 {
		t.Errorf("Available() = %v, want at most 5", got)
	}
}

func TestRateLimiterRegistry_PerModelIsolation(t *testing.T) {
	registry := NewRateLimiterRegistry()
	registry.SetConfig("slow-model", RateLimiterConfig{MaxTokens: 1, RefillRate: 0.001})

	slow := registry.Get("slow-model")
	fast := registry.Get("fast-model")
	if slow == fast {
		t.Fatal("distinct models must get distinct limiters")
	}

	if !slow.TryAcquire() {
		t.Fatal("slow limiter first acquire should succeed")
	}
	if slow.TryAcquire() {
		t.Error("slow limiter should be drained")
	}
	if !fast.TryAcquire() {
		t.Error("fast limiter should be unaffected")
	}
}

func TestRateLimiterRegistry_GetReturnsSameLimiter(t *testing.T) {
	registry := NewRateLimiterRegistry()
	if registry.Get("gpt-4o") != registry.Get("gpt-4o") {
		t.Error("repeated Get for the same model must return one limiter")
	}
}
