package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/kirinyoku/absolut-cinema/docs"
	"github.com/kirinyoku/absolut-cinema/internal/app"
	"github.com/kirinyoku/absolut-cinema/internal/config"
	"github.com/urfave/cli/v2"
)

// @title Absolut Cinema API
// @version 1.0
// @description Seat reservation, booking and ticketing for cinema showtimes.
// @host localhost:8080
// @BasePath /
func main() {
	cliApp := &cli.App{
		Name:  "absolutcinema",
		Usage: "cinema seat reservation service",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API and the background jobs",
				Action: withApp(serve),
			},
			{
				Name:   "migrate",
				Usage:  "apply the database schema",
				Action: withApp(migrate),
			},
			{
				Name:   "seed",
				Usage:  "load the demo catalog",
				Action: withApp(seed),
			},
			{
				Name:   "validate",
				Usage:  "check seat maps against bookings and print the report",
				Action: withApp(validate),
			},
		},
		DefaultCommand: "serve",
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type action func(ctx context.Context, cfg *config.Config, a *app.App, logger *slog.Logger) error

func withApp(run action) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := config.New()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.Level}))

		application, err := app.New(c.Context, cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to create application: %w", err)
		}
		defer application.Close()

		return run(c.Context, cfg, application, logger)
	}
}

func serve(ctx context.Context, _ *config.Config, a *app.App, logger *slog.Logger) error {
	if err := a.Run(ctx); err != nil {
		logger.Error("application finished with error", "error", err)
		return err
	}
	return nil
}

func migrate(ctx context.Context, _ *config.Config, a *app.App, logger *slog.Logger) error {
	if err := a.Migrate(ctx); err != nil {
		return err
	}
	logger.Info("schema applied")
	return nil
}

func seed(ctx context.Context, _ *config.Config, a *app.App, logger *slog.Logger) error {
	if err := a.Seed(ctx); err != nil {
		return err
	}
	logger.Info("catalog seeded")
	return nil
}

func validate(ctx context.Context, cfg *config.Config, a *app.App, _ *slog.Logger) error {
	// the in-memory store starts empty
	if cfg.Storage.Driver == config.StorageMemory {
		if err := a.Seed(ctx); err != nil {
			return err
		}
	}

	report, err := a.Validate(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}

	if !report.OK() {
		return cli.Exit(fmt.Sprintf("%d violations", len(report.Violations)), 1)
	}

	return nil
}
