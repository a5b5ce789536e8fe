package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")

func isTransient(err error) bool { return errors.Is(err, errTransient) }

func TestStrategyDo_SucceedsAfterRetries(t *testing.T) {
	s := Strategy{Attempts: 4, Delay: time.Microsecond, Backoff: 2}

	calls := 0
	err := s.Do(context.Background(), isTransient, func(context.Context) error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestStrategyDo_Exhausted(t *testing.T) {
	s := Strategy{Attempts: 3, Delay: time.Microsecond}

	calls := 0
	err := s.Do(context.Background(), isTransient, func(context.Context) error {
		calls++
		return errTransient
	})

	require.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, calls)
}

func TestStrategyDo_PermanentErrorStops(t *testing.T) {
	s := Strategy{Attempts: 5, Delay: time.Microsecond}
	permanent := errors.New("permanent")

	calls := 0
	err := s.Do(context.Background(), isTransient, func(context.Context) error {
		calls++
		return permanent
	})

	require.ErrorIs(t, err, permanent)
	assert.NotErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 1, calls)
}

func TestStrategyDo_ContextCancelled(t *testing.T) {
	s := Strategy{Attempts: 5, Delay: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	err := s.Do(ctx, isTransient, func(context.Context) error {
		cancel()
		return errTransient
	})

	require.ErrorIs(t, err, context.Canceled)
}
