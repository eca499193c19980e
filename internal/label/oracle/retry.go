package oracle

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

// Transport retry defaults. This layer only absorbs transient upstream
// trouble; decision-level retries (malformed verdicts, conflicts) are
// counted by the resolution protocol, not here.
const (
	defaultRetryBase = 500 * time.Millisecond
	defaultRetries   = 2
)

type retryOracle struct {
	inner   Oracle
	base    time.Duration
	retries uint64
}

// WithRetry wraps an oracle with fibonacci-backoff retries on timeouts
// and rate limits. maxRetries below one falls back to the default.
func WithRetry(inner Oracle, maxRetries int) Oracle {
	return newRetryOracle(inner, maxRetries, defaultRetryBase)
}

func newRetryOracle(inner Oracle, maxRetries int, base time.Duration) *retryOracle {
	retries := uint64(defaultRetries)
	if maxRetries > 0 {
		retries = uint64(maxRetries)
	}
	return &retryOracle{inner: inner, base: base, retries: retries}
}

func (r *retryOracle) Name() string { return r.inner.Name() }

func (r *retryOracle) Decide(ctx context.Context, req Request) (Decision, error) {
	var out Decision
	backoff := retry.NewFibonacci(r.base)
	err := retry.Do(ctx, retry.WithMaxRetries(r.retries, backoff), func(ctx context.Context) error {
		decision, err := r.inner.Decide(ctx, req)
		if err != nil {
			if errors.Is(err, ErrTimeout) || errors.Is(err, ErrRateLimited) {
				return retry.RetryableError(err)
			}
			return err
		}
		out = decision
		return nil
	})
	if err != nil {
		return Decision{}, err
	}
	return out, nil
}
