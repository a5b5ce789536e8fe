package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_RunsJobsUntilCancelled(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	var ok, failing, disabled atomic.Int32

	s := New(log,
		Job{Name: "ok", Interval: 10 * time.Millisecond, Run: func(context.Context) error {
			ok.Add(1)
			return nil
		}},
		Job{Name: "failing", Interval: 10 * time.Millisecond, Run: func(context.Context) error {
			failing.Add(1)
			return errors.New("boom")
		}},
		Job{Name: "disabled", Interval: 0, Run: func(context.Context) error {
			disabled.Add(1)
			return nil
		}},
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, func() bool {
		return ok.Load() >= 2 && failing.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	assert.Zero(t, disabled.Load())
}
