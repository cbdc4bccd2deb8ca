package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"spending/internal/amqp"
	"spending/internal/backend"
	"spending/internal/cache"
	"spending/internal/config"
	"spending/internal/metrics"
	"spending/internal/services"
	"spending/internal/sheets"
	gsheet "spending/internal/sheets/google"
	"spending/internal/store"
	"spending/internal/worker"
)

const cacheCleanupInterval = time.Minute

// App holds the services every binary builds from the same configuration.
type App struct {
	Config     *config.Config
	Store      store.Backend
	AMQP       *amqp.Client // nil when AMQP is disabled or unreachable
	Metrics    *metrics.Collector
	Spending   *services.SpendingService
	Activities *services.ActivityService
	Reports    sheets.ReportWriter // nil when sheets export is disabled
	Caches     *cache.Manager

	cleanup backend.CleanupFunc
}

// NewApp opens the configured backend and assembles the services on top of it.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}

	var reports sheets.ReportWriter
	if cfg.SheetsEnabled() {
		reports, err = gsheet.NewClient(ctx, gsheet.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			SheetName:          cfg.GoogleReportSheetName,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		})
		if err != nil {
			res.Cleanup()
			return nil, fmt.Errorf("create sheets report writer: %w", err)
		}
	}

	return Assemble(cfg, res, reports), nil
}

// Assemble wires services over an already opened backend. reports may be nil.
func Assemble(cfg *config.Config, res *backend.BackendResult, reports sheets.ReportWriter) *App {
	collector := metrics.NewCollector()

	spendOpts := []services.SpendingOption{services.WithSpendingMetrics(collector)}
	if cfg.CacheSize > 0 {
		spendOpts = append(spendOpts, services.WithSpendCache(cfg.CacheSize, cfg.CacheTTL))
	}
	spending := services.NewSpendingService(res.Store,
		services.NewAggregator(cfg.ParallelThreshold, collector), spendOpts...)

	activityOpts := []services.ActivityOption{
		services.WithCacheInvalidator(spending),
		services.WithActivityCounter(collector),
	}
	if res.AMQP != nil {
		activityOpts = append(activityOpts, services.WithPublisher(res.AMQP))
	}

	caches := cache.NewManager()
	if c := spending.CacheCleaner(); c != nil {
		caches.Register(c)
		caches.StartCleanup(cacheCleanupInterval)
	}

	return &App{
		Config:     cfg,
		Store:      res.Store,
		AMQP:       res.AMQP,
		Metrics:    collector,
		Spending:   spending,
		Activities: services.NewActivityService(res.Store, res.Store, activityOpts...),
		Reports:    reports,
		Caches:     caches,
		cleanup:    res.Cleanup,
	}
}

// SnapshotWorker returns a worker computing snapshots against the app's store.
func (a *App) SnapshotWorker(now func() time.Time) *worker.SnapshotWorker {
	opts := []worker.Option{worker.WithRecorder(a.Metrics)}
	if now != nil {
		opts = append(opts, worker.WithClock(now))
	}
	if a.Reports != nil {
		opts = append(opts, worker.WithReportWriter(a.Reports))
	}
	return worker.NewSnapshotWorker(a.Spending, a.Store, opts...)
}

// Close stops cache cleanup and releases the backend.
func (a *App) Close() error {
	a.Caches.Stop()
	if a.cleanup == nil {
		return nil
	}
	return a.cleanup()
}
