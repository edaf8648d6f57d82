package service

import (
	"context"
	"time"

	"github.com/ticketlens/ticketlens/internal/core"
	"github.com/ticketlens/ticketlens/internal/logging"
)

// ModelRunner composes the invocation path every flow goes through: rate
// limit acquisition, retry with backoff around a single model call, and
// response normalization, with flow traffic mirrored to the diagnostic
// sink. Normalization failures are not retried; a malformed response is a
// terminal outcome for the attempt's caller.
type ModelRunner struct {
	invoker    core.ModelInvoker
	retry      *RetryPolicy
	normalizer *Normalizer
	limits     *RateLimiterRegistry
	sink       core.DiagnosticSink
	logger     *logging.Logger
}

// NewModelRunner creates a model runner. sink may be nil.
func NewModelRunner(invoker core.ModelInvoker, retry *RetryPolicy, sink core.DiagnosticSink, logger *logging.Logger) *ModelRunner {
	if retry == nil {
		retry = DefaultRetryPolicy()
	}
	if sink == nil {
		sink = core.NopSink{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ModelRunner{
		invoker:    invoker,
		retry:      retry,
		normalizer: NewNormalizer(),
		limits:     NewRateLimiterRegistry(),
		sink:       sink,
		logger:     logger,
	}
}

// Limits exposes the per-model rate limiter registry for configuration.
func (r *ModelRunner) Limits() *RateLimiterRegistry {
	return r.limits
}

// Run performs one logical model call: acquire the model's rate limit
// slot, invoke with retry, then normalize into the requested shape.
func (r *ModelRunner) Run(ctx context.Context, req core.InvokeRequest) (*Payload, error) {
	if err := r.limits.Get(req.Model).Acquire(ctx); err != nil {
		return nil, err
	}

	log := r.logger.WithFlow(req.Flow)

	var raw *core.RawResponse
	err := r.retry.ExecuteWithNotify(ctx, func(ctx context.Context) error {
		r.sink.Append(core.FlowEntry{
			Timestamp:   time.Now(),
			Direction:   core.FlowSent,
			Flow:        req.Flow,
			PayloadSize: len(req.Prompt) + len(req.SystemPrompt),
		})

		started := time.Now()
		var invErr error
		raw, invErr = r.invoker.Invoke(ctx, req)
		if invErr != nil {
			r.sink.Append(core.FlowEntry{
				Timestamp:  time.Now(),
				Direction:  core.FlowError,
				Flow:       req.Flow,
				DurationMS: time.Since(started).Milliseconds(),
				Note:       core.Truncate(invErr.Error(), 200),
			})
			return invErr
		}

		r.sink.Append(core.FlowEntry{
			Timestamp:   time.Now(),
			Direction:   core.FlowReceived,
			Flow:        req.Flow,
			PayloadSize: len(raw.Body) + len(raw.Text),
			DurationMS:  raw.Duration.Milliseconds(),
		})
		return nil
	}, func(attempt int, err error, delay time.Duration) {
		log.Info("retrying model invocation",
			"attempt", attempt,
			"error", err.Error(),
			"delay", delay.String(),
		)
	})
	if err != nil {
		return nil, err
	}

	payload, err := r.normalizer.Normalize(raw, req.Shape)
	if err != nil {
		log.Warn("response normalization failed", "error", err)
		return nil, err
	}
	return payload, nil
}
