package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"spending/internal/cli"
	apphttp "spending/internal/http"
	applog "spending/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("info", applog.ComponentApp)
	cfg := cli.MustLoadConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel, applog.ComponentApp)

	app, err := cli.NewApp(context.Background(), cfg, logger.Logger)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize application", err)
	}

	deps := apphttp.Dependencies{
		Activities: app.Activities,
		Spending:   app.Spending,
		Snapshots:  app.Store,
		Health:     app.Store,
	}
	if cfg.MetricsEnabled {
		deps.Metrics = app.Metrics.Handler()
	}
	deps.RateLimited = app.Metrics.RecordRateLimited

	srv := apphttp.NewServer(apphttp.Config{
		Addr:            ":" + cfg.Port,
		WritesPerMinute: cfg.RateLimitPerMinute,
		Logger:          logger.WithComponent(applog.ComponentHTTP),
	}, deps)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) error {
		return errors.Join(srv.Shutdown(ctx), app.Close())
	})

	logger.Info("Starting spending server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp_enabled", app.AMQP != nil,
		"metrics_enabled", cfg.MetricsEnabled)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.Close()
		cli.Fatal(logger, "Server error", err)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
