package fetcher

import (
	"context"
	"fmt"
	"time"
)

// retry runs call up to MaxAttempts times. Attempt n>1 waits
// BaseBackoff*2^(n-2) first, and every attempt gets its own timeout.
func (f *Fetcher) retry(ctx context.Context, source string, call func(ctx context.Context) error) error {
	var (
		lastErr  error
		lastKind Kind
	)
	for attempt := 1; attempt <= f.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := f.cfg.BaseBackoff * time.Duration(1<<(attempt-2))
			if err := f.sleep(ctx, delay); err != nil {
				return &RetryError{Kind: KindCanceled, Attempts: attempt - 1, Err: err}
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, f.cfg.AttemptTimeout)
		err := call(attemptCtx)
		cancel()
		if err == nil {
			f.metrics.Attempt(source, "success")
			return nil
		}

		kind := Classify(err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			kind = KindCanceled
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		f.metrics.Attempt(source, kind.String())
		if !kind.Retryable() {
			return &RetryError{Kind: kind, Attempts: attempt, Err: err}
		}
		lastErr, lastKind = err, kind
		if attempt < f.cfg.MaxAttempts {
			f.logger.Warn("transient upstream failure, retrying", "source", source, "attempt", attempt, "error", err)
		}
	}
	return &RetryError{Kind: lastKind, Attempts: f.cfg.MaxAttempts, Exhausted: true, Err: lastErr}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
