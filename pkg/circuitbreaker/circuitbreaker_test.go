package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDo_TripsAfterThreshold(t *testing.T) {
	cfg := DefaultConfig("screening")
	cfg.FailureThreshold = 2
	cfg.Timeout = time.Hour
	cb := New(cfg, zap.NewNop())
	ctx := context.Background()
	boom := errors.New("upstream 502")

	calls := 0
	fail := func(ctx context.Context) (string, error) {
		calls++
		return "", boom
	}

	for i := 0; i < 2; i++ {
		_, err := Do(ctx, cb, fail)
		assert.ErrorIs(t, err, boom)
	}
	assert.Equal(t, StateOpen, cb.State())

	_, err := Do(ctx, cb, fail)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 2, calls, "open breaker must not call through")
}

func TestDo_ReturnsValue(t *testing.T) {
	cb := New(DefaultConfig("screening"), zap.NewNop())

	out, err := Do(context.Background(), cb, func(ctx context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, out)
	assert.Equal(t, StateClosed, cb.State())
}

func TestDo_CancellationDoesNotTrip(t *testing.T) {
	cfg := DefaultConfig("screening")
	cfg.FailureThreshold = 1
	cb := New(cfg, zap.NewNop())

	_, err := Do(context.Background(), cb, func(ctx context.Context) (int, error) {
		return 0, context.Canceled
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, cb.State())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Do(ctx, cb, func(ctx context.Context) (int, error) {
		t.Fatal("must not run with a cancelled context")
		return 0, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
