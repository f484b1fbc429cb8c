package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronicle-rag/internal/domain"
)

func instantSleep(waits *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
}

func TestPolicy_Do(t *testing.T) {
	t.Run("succeeds without retry", func(t *testing.T) {
		var waits []time.Duration
		p := Policy{MaxAttempts: 5, BaseDelay: time.Second, sleep: instantSleep(&waits)}

		calls := 0
		err := p.Do(context.Background(), func() error { calls++; return nil })

		require.NoError(t, err)
		assert.Equal(t, 1, calls)
		assert.Empty(t, waits)
	})

	t.Run("two transient failures then success", func(t *testing.T) {
		var waits []time.Duration
		p := Policy{
			MaxAttempts: 5,
			BaseDelay:   30 * time.Second,
			Offset:      10 * time.Second,
			Retryable:   IsTransient,
			sleep:       instantSleep(&waits),
		}

		calls := 0
		err := p.Do(context.Background(), func() error {
			calls++
			if calls < 3 {
				return domain.ErrRateLimited
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
		// two backoff intervals: 30s+10s, 60s+10s
		require.Len(t, waits, 2)
		assert.Equal(t, 40*time.Second, waits[0])
		assert.Equal(t, 70*time.Second, waits[1])
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		var waits []time.Duration
		p := Policy{MaxAttempts: 3, BaseDelay: time.Second, Retryable: IsTransient, sleep: instantSleep(&waits)}

		calls := 0
		err := p.Do(context.Background(), func() error { calls++; return domain.ErrOverloaded })

		require.ErrorIs(t, err, domain.ErrOverloaded)
		assert.Equal(t, 3, calls)
		assert.Len(t, waits, 2)
	})

	t.Run("non-retryable error returns immediately", func(t *testing.T) {
		var waits []time.Duration
		p := Policy{MaxAttempts: 5, BaseDelay: time.Second, Retryable: IsTransient, sleep: instantSleep(&waits)}

		calls := 0
		fatal := errors.New("bad request")
		err := p.Do(context.Background(), func() error { calls++; return fatal })

		require.ErrorIs(t, err, fatal)
		assert.Equal(t, 1, calls)
		assert.Empty(t, waits)
	})

	t.Run("cancelled context stops the loop", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		p := Policy{MaxAttempts: 5, BaseDelay: time.Millisecond, Retryable: IsTransient}

		err := p.Do(ctx, func() error { return domain.ErrRateLimited })
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestPolicy_Backoff(t *testing.T) {
	p := Policy{BaseDelay: 30 * time.Second, Offset: 10 * time.Second}

	assert.Equal(t, 40*time.Second, p.Backoff(0))
	assert.Equal(t, 70*time.Second, p.Backoff(1))
	assert.Equal(t, 130*time.Second, p.Backoff(2))
	assert.Equal(t, 250*time.Second, p.Backoff(3))

	t.Run("cap applies", func(t *testing.T) {
		capped := Policy{BaseDelay: 200 * time.Millisecond, MaxDelay: 5 * time.Second}
		assert.Equal(t, 5*time.Second, capped.Backoff(10))
	})
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(domain.ErrRateLimited))
	assert.True(t, IsTransient(domain.ErrOverloaded))
	assert.True(t, IsTransient(fmt.Errorf("upstream: %w", domain.ErrRateLimited)))
	assert.True(t, IsTransient(errors.New("HTTP 429 Too Many Requests")))
	assert.True(t, IsTransient(errors.New("model is OVERLOADED")))
	assert.False(t, IsTransient(errors.New("invalid api key")))
	assert.False(t, IsTransient(nil))
}
