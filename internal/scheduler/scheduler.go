// Package scheduler runs the periodic background jobs: the hold expiry sweep
// and the consistency check.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

type Scheduler struct {
	log  *slog.Logger
	jobs []Job
}

func New(log *slog.Logger, jobs ...Job) *Scheduler {
	return &Scheduler{log: log, jobs: jobs}
}

// Run starts every job with a positive interval and blocks until ctx is done.
// A run that is still going when the next one is due is skipped.
func (s *Scheduler) Run(ctx context.Context) error {
	const op = "scheduler.Scheduler.Run"

	cron, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
		gocron.WithLogger(s.log),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for _, job := range s.jobs {
		if job.Interval <= 0 {
			s.log.Info("job disabled", slog.String("job", job.Name))
			continue
		}

		_, err := cron.NewJob(
			gocron.DurationJob(job.Interval),
			gocron.NewTask(s.task(ctx, job)),
			gocron.WithName(job.Name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			_ = cron.Shutdown()
			return fmt.Errorf("%s: job %s: %w", op, job.Name, err)
		}
	}

	cron.Start()
	s.log.Info("scheduler started", slog.Int("jobs", len(cron.Jobs())))

	<-ctx.Done()

	if err := cron.Shutdown(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Scheduler) task(ctx context.Context, job Job) func() {
	return func() {
		start := time.Now()

		if err := job.Run(ctx); err != nil {
			s.log.Error("job failed",
				slog.String("job", job.Name),
				slog.Any("err", err),
			)
			return
		}

		s.log.Debug("job finished",
			slog.String("job", job.Name),
			slog.Duration("took", time.Since(start)),
		)
	}
}
