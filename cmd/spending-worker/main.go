package main

import (
	"context"
	"errors"
	"time"

	"spending/internal/cli"
	applog "spending/internal/log"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()
	logger := cli.SetupLogger("info", applog.ComponentWorker)
	cfg := cli.MustLoadConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel, applog.ComponentWorker)

	logger.Info("Starting spending-worker")

	if cfg.AMQPURL == "" {
		cli.Fatal(logger, "Worker needs a message broker", errors.New("AMQP_URL is not set"))
	}

	app, err := cli.NewApp(context.Background(), cfg, logger.Logger)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize application", err)
	}
	if app.AMQP == nil {
		app.Close()
		cli.Fatal(logger, "Failed to connect to AMQP broker", errors.New("broker unreachable"))
	}

	if app.Reports != nil {
		logger.Info("Snapshot export to Google Sheets enabled", "sheet_base", cfg.GoogleReportSheetName)
	} else {
		logger.Info("Google Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	snapshots := app.SnapshotWorker(nil)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) error {
		return app.Close()
	})

	consumeErr := make(chan error, 1)
	go func() {
		consumeErr <- app.AMQP.ConsumeActivityChanges(ctx, snapshots.HandleActivityChanged)
	}()

	select {
	case <-ctx.Done():
		cli.WaitForShutdown(ctx, done)
		logger.Info("Worker shutdown complete")
	case err := <-consumeErr:
		app.Close()
		cli.Fatal(logger, "Message consumption failed", err)
	}
}
