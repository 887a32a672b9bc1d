package common

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRound2(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{name: "already rounded", in: 55, want: 55},
		{name: "thirds", in: 100.0 / 3, want: 33.33},
		{name: "exact tie rounds to even", in: 0.125, want: 0.12},
		{name: "exact tie rounds up to even", in: 0.375, want: 0.38},
		{name: "binary value below the tie", in: 1.005, want: 1.0},
		{name: "binary value above the tie", in: 2.675, want: 2.67},
		{name: "share of eight hundred", in: 1.0 / 800 * 100, want: 0.12},
		{name: "negative", in: -1.005, want: -1.0},
		{name: "negative zero", in: -0.001, want: 0},
		{name: "float noise", in: 0.1 + 0.2, want: 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Round2(tt.in), 1e-9)
		})
	}
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "1200.46", Money(1200.456).StringFixed(2))
	assert.Equal(t, "1200.12", Money(1200.125).StringFixed(2))
	assert.True(t, Money(math.NaN()).IsZero())
	assert.True(t, Money(0).IsZero())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, slog.LevelInfo, "json")
	require.NoError(t, err)

	logger.Info("tariff resolved", "hs_code", "8501.10")
	assert.Contains(t, buf.String(), `"hs_code":"8501.10"`)

	_, err = NewLogger(&buf, slog.LevelInfo, "xml")
	assert.Error(t, err)
}

func TestWithRetry(t *testing.T) {
	opts := RetryOptions{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), func() error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		}, opts)
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on non-retryable error", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), func() error {
			calls++
			return &RetryableError{Err: errors.New("bad request"), Retryable: false}
		}, opts)
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("exhausts attempts", func(t *testing.T) {
		err := WithRetry(context.Background(), func() error {
			return errors.New("still failing")
		}, opts)
		assert.ErrorIs(t, err, ErrMaxRetries)
	})

	t.Run("honors cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := WithRetry(ctx, func() error {
			return errors.New("fail")
		}, RetryOptions{MaxAttempts: 5, InitialDelay: time.Second})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestUserError(t *testing.T) {
	err := NewUserError("Analysis ID not found.", ErrNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Analysis ID not found.", UserMessage(err))
	assert.Equal(t, "plain", UserMessage(errors.New("plain")))
}
