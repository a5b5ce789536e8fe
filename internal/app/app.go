package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/absolut-cinema/internal/config"
	"github.com/kirinyoku/absolut-cinema/internal/postgres"
	"github.com/kirinyoku/absolut-cinema/internal/queue"
	redisx "github.com/kirinyoku/absolut-cinema/internal/redis"
	"github.com/kirinyoku/absolut-cinema/internal/repository/memory"
	postgresrepo "github.com/kirinyoku/absolut-cinema/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/absolut-cinema/internal/repository/redis"
	"github.com/kirinyoku/absolut-cinema/internal/scheduler"
	"github.com/kirinyoku/absolut-cinema/internal/service"
	"github.com/kirinyoku/absolut-cinema/internal/service/booking"
	"github.com/kirinyoku/absolut-cinema/internal/service/catalog"
	"github.com/kirinyoku/absolut-cinema/internal/service/consistency"
	"github.com/kirinyoku/absolut-cinema/internal/service/reservation"
	httpgin "github.com/kirinyoku/absolut-cinema/internal/transport/http/gin"
	"github.com/kirinyoku/absolut-cinema/internal/uow"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

var ErrNoDatabase = errors.New("command needs STORAGE_DRIVER=postgres")

type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	services *service.Services

	pool      *pgxpool.Pool
	pgStore   *postgresrepo.Store
	rdb       *redis.Client
	pubsub    *redisx.ShowtimesPubSub
	replays   *redisrepo.ClaimReplays
	publisher *queue.Publisher
}

// New connects the configured backends. Redis and AMQP are optional: with no
// address configured the services run without caching, replay protection,
// rate limiting and booking events.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	deps := service.Deps{Logger: logger}

	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		pool, err := postgres.New(ctx, postgres.Config{
			DSN:      cfg.Postgres.DSN(),
			MaxConns: cfg.Postgres.MaxConns,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres: %w", err)
		}

		a.pool = pool
		a.pgStore = postgresrepo.NewStore(pool)
		deps.UoW = uow.NewUoW(a.pgStore)
		deps.SnapshotUoW = uow.NewReadOnlyUoW(a.pgStore)
	case config.StorageMemory:
		deps.UoW = memory.New()
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	if cfg.Redis.Addr != "" {
		rdb, err := redisx.New(ctx, redisx.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}

		a.rdb = rdb
		a.pubsub = redisx.NewShowtimesPubSub(rdb)
		a.replays = redisrepo.NewClaimReplays(rdb, cfg.Reservation.IdempotencyTTL, time.Minute)

		cache := redisrepo.New(rdb)
		deps.SeatCache = cache
		deps.CatalogCache = cache
		deps.Notifier = a.pubsub
		deps.Limiter = redisrepo.NewClaimLimiter(rdb, cfg.RateLimit.Claims, cfg.RateLimit.Window)
	} else {
		logger.Warn("redis disabled: no seat map cache, replay protection or rate limiting")
	}

	if cfg.AMQP.URL != "" {
		a.publisher = queue.NewPublisher(cfg.AMQP.URL)
		deps.Events = a.publisher
	}

	a.services = service.NewServices(deps, service.Config{
		Reservation: reservation.Config{
			HoldWindow:   cfg.Reservation.HoldWindow,
			MaxAttempts:  cfg.Reservation.MaxAttempts,
			RetryBackoff: cfg.Reservation.RetryBackoff,
			SeatMapTTL:   cfg.Reservation.SeatMapTTL,
		},
		Booking: booking.Config{
			MaxAttempts:  cfg.Reservation.MaxAttempts,
			RetryBackoff: cfg.Reservation.RetryBackoff,
		},
		Catalog: catalog.Config{},
	})

	return a, nil
}

// Migrate applies the embedded schema.
func (a *App) Migrate(ctx context.Context) error {
	if a.pgStore == nil {
		return ErrNoDatabase
	}
	return a.pgStore.Migrate(ctx)
}

// Seed loads the demo catalog with today's showtimes.
func (a *App) Seed(ctx context.Context) error {
	return a.services.Catalog.Seed(ctx, catalog.DefaultFixtures(time.Now().UTC()))
}

func (a *App) Validate(ctx context.Context) (*consistency.Report, error) {
	return a.services.Consistency.Validate(ctx)
}

// Run serves HTTP, runs the scheduled jobs and follows seat map changes until
// ctx is cancelled or SIGINT/SIGTERM arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// an empty in-memory store is useless, so it is always seeded
	if a.cfg.Storage.Seed || a.pgStore == nil {
		if err := a.Seed(ctx); err != nil {
			return fmt.Errorf("failed to seed catalog: %w", err)
		}
		a.logger.Info("catalog seeded")
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port),
		Handler:           httpgin.NewRouter(a.services, a.replays, a.logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	sched := scheduler.New(a.logger,
		scheduler.Job{
			Name:     "expire-holds",
			Interval: a.cfg.Scheduler.ExpireInterval,
			Run: func(ctx context.Context) error {
				n, err := a.services.Booking.ExpireHolds(ctx)
				if n > 0 {
					a.logger.Info("holds expired", slog.Int("bookings", n))
				}
				return err
			},
		},
		scheduler.Job{
			Name:     "validate",
			Interval: a.cfg.Scheduler.ValidateInterval,
			Run:      a.validateJob,
		},
	)

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return sched.Run(gCtx)
	})

	if a.pubsub != nil {
		g.Go(func() error {
			err := a.pubsub.Subscribe(gCtx, a.services.Catalog.ShowtimeChanged)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(ctx)
	})

	return g.Wait()
}

func (a *App) validateJob(ctx context.Context) error {
	report, err := a.services.Consistency.Validate(ctx)
	if err != nil {
		return err
	}

	if report.OK() {
		a.logger.Info("store consistent",
			slog.Int("showtimes", report.Showtimes),
			slog.Int("bookings", report.Bookings),
		)
		return nil
	}

	for _, v := range report.Violations {
		a.logger.Warn("consistency violation",
			slog.String("kind", string(v.Kind)),
			slog.String("showtime_id", v.ShowtimeID),
			slog.String("booking_id", v.BookingID),
			slog.String("seat", v.Seat),
			slog.String("detail", v.Detail),
		)
	}

	return nil
}

// Close releases every backend connection that New opened.
func (a *App) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("close amqp publisher", slog.Any("err", err))
		}
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Warn("close redis", slog.Any("err", err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
