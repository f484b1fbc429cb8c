// Package retry provides the shared backoff policy applied to all
// rate-limited external calls (translation, embedding, fetching).
package retry

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"chronicle-rag/internal/domain"
)

// Policy describes how an external call is retried. Delay before retrying
// attempt n (zero-based) is BaseDelay<<n + Offset, plus up to Jitter of
// random slack, capped at MaxDelay when set.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Offset      time.Duration
	Jitter      time.Duration
	MaxDelay    time.Duration
	Retryable   func(error) bool

	// sleep is swapped out in tests.
	sleep func(context.Context, time.Duration) error
}

// Do runs op, retrying on errors the Retryable predicate accepts. A nil
// predicate retries everything. The error of the final attempt is returned;
// non-retryable errors return immediately.
func (p Policy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt == attempts-1 {
			break
		}
		if serr := sleep(ctx, p.Backoff(attempt)); serr != nil {
			return serr
		}
	}
	return err
}

// Backoff returns the delay applied after the given zero-based attempt.
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := p.BaseDelay<<uint(attempt) + p.Offset
	if p.Jitter > 0 {
		d += time.Duration(rand.Int63n(int64(p.Jitter)))
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsTransient reports whether an external-call error is a quota or overload
// signal worth retrying. Besides the typed sentinels it recognizes the raw
// markers some backends embed in error text.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, domain.ErrRateLimited) || errors.Is(err, domain.ErrOverloaded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "503") || strings.Contains(msg, "overloaded")
}
