package airdrop

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
)

// RetryPolicy bounds how often one recipient transfer is attempted.
// Token account resolution and submission are retried. A submitted
// transaction that fails to confirm is never re-sent.
type RetryPolicy struct {
	Attempts uint          // total attempts, 0 is treated as 1
	Delay    time.Duration // initial delay, doubled per attempt
}

// NoRetry attempts each transfer exactly once.
var NoRetry = RetryPolicy{Attempts: 1}

// Do runs fn under the policy. Errors wrapped with retry.Unrecoverable stop
// immediately and are returned unwrapped.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := p.Attempts
	if attempts == 0 {
		attempts = 1
	}

	return retry.Do(fn,
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(p.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
}
