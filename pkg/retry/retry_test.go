package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datatalk-ai/datatalk-engine/pkg/llm"
)

func fastConfig() *Config {
	return &Config{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDo(t *testing.T) {
	t.Run("succeeds first attempt", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), fastConfig(), func() error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("succeeds after failures", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), fastConfig(), func() error {
			calls++
			if calls < 3 {
				return errors.New("connection refused")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("returns last error when exhausted", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), fastConfig(), func() error {
			calls++
			return fmt.Errorf("attempt %d failed", calls)
		})
		require.Error(t, err)
		assert.Equal(t, 4, calls) // initial attempt plus 3 retries
		assert.Contains(t, err.Error(), "attempt 4")
	})

	t.Run("stops on context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := Do(ctx, fastConfig(), func() error {
			calls++
			cancel()
			return errors.New("timeout")
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	pool, err := DoWithResult(context.Background(), fastConfig(), func() (string, error) {
		calls++
		if calls < 2 {
			return "", errors.New("connection reset")
		}
		return "pool", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "pool", pool)
	assert.Equal(t, 2, calls)
}

func TestDoIfRetryable(t *testing.T) {
	t.Run("permanent error returns immediately", func(t *testing.T) {
		calls := 0
		err := DoIfRetryable(context.Background(), fastConfig(), func() error {
			calls++
			return errors.New("syntax error at or near SELECT")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("transient error is retried", func(t *testing.T) {
		calls := 0
		err := DoIfRetryable(context.Background(), fastConfig(), func() error {
			calls++
			if calls < 2 {
				return errors.New("service unavailable")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"rate limited", errors.New("429 Too Many Requests"), true},
		{"bad sql", errors.New("SQL compilation error: invalid identifier"), false},
		{"auth failure", errors.New("incorrect username or password"), false},
		{"gateway timeout", errors.New("502 Bad Gateway"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestIsRetryableHonorsProviderErrors(t *testing.T) {
	// Provider errors carry their own verdict, which wins over pattern
	// matching even when the message looks permanent.
	retryable := llm.NewError(llm.ErrorTypeEndpoint, "model warming up", true, errors.New("cold start"))
	assert.True(t, IsRetryable(retryable))

	// An auth error mentions no transient pattern and declares itself
	// permanent.
	permanent := llm.NewError(llm.ErrorTypeAuth, "authentication failed", false, errors.New("401 unauthorized"))
	assert.False(t, IsRetryable(permanent))

	// Wrapped provider errors are still found.
	wrapped := fmt.Errorf("stream failed: %w", permanent)
	assert.False(t, IsRetryable(wrapped))
}
