package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
)

// MaxRetries is the default number of attempts for a service call.
const MaxRetries = 3

// Policy bounds a service call: each attempt gets its own deadline and
// transient failures are retried with jittered exponential backoff.
type Policy struct {
	Attempts uint
	Delay    time.Duration
	MaxDelay time.Duration
	Timeout  time.Duration // per attempt; 0 means no deadline
	Log      *slog.Logger
}

// DefaultPolicy returns the policy used for embedding and generation calls.
func DefaultPolicy(timeout time.Duration) Policy {
	return Policy{
		Attempts: MaxRetries,
		Delay:    time.Second,
		MaxDelay: 30 * time.Second,
		Timeout:  timeout,
	}
}

// Call runs fn under the policy. Only RetryableError failures are retried.
func (p Policy) Call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts == 0 {
		attempts = MaxRetries
	}
	delay := p.Delay
	if delay <= 0 {
		delay = time.Second
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}

	return retry.Do(
		func() error {
			callCtx := ctx
			if p.Timeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(ctx, p.Timeout)
				defer cancel()
			}
			return fn(callCtx)
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(delay),
		retry.MaxDelay(maxDelay),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.MaxJitter(delay/2),
		retry.RetryIf(IsRetryable),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			if p.Log != nil {
				p.Log.Warn("retryable service error", "op", op, "attempt", n, "error", err)
			}
		}),
	)
}
