package processing

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy is the single retry discipline shared by every collaborator
// client. The pipeline assumes a collaborator either eventually resolves or
// rejects once; retries belong here, not in the stage runners.
type RetryPolicy struct {
	MaxAttempts uint64
	BaseDelay   time.Duration
}

// Do runs op with exponential backoff until it succeeds, returns a permanent
// error, or the attempt budget is spent.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}
	bo := backoff.NewExponentialBackOff()
	if p.BaseDelay > 0 {
		bo.InitialInterval = p.BaseDelay
	}
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, attempts-1), ctx))
}

// Permanent marks an error as non-retryable, e.g. a 4xx response.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
