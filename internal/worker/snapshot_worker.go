package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"spending/internal/amqp"
	"spending/internal/core"
	"spending/internal/services"
	"spending/internal/sheets"
	"spending/internal/store"
)

// SnapshotRecorder counts persisted snapshots. metrics.Collector implements it.
type SnapshotRecorder interface {
	RecordSnapshot(err error)
}

// SnapshotWorker recomputes an account's month-to-date spend when one of its
// activities changes.
type SnapshotWorker struct {
	spending  *services.SpendingService
	snapshots store.SnapshotWriter
	reports   sheets.ReportWriter
	recorder  SnapshotRecorder
	now       func() time.Time
}

type Option func(*SnapshotWorker)

// WithReportWriter exports every snapshot after it is stored.
func WithReportWriter(w sheets.ReportWriter) Option {
	return func(sw *SnapshotWorker) { sw.reports = w }
}

func WithRecorder(r SnapshotRecorder) Option {
	return func(sw *SnapshotWorker) { sw.recorder = r }
}

// WithClock replaces the clock that provides the reference date.
func WithClock(now func() time.Time) Option {
	return func(sw *SnapshotWorker) { sw.now = now }
}

func NewSnapshotWorker(spending *services.SpendingService, snapshots store.SnapshotWriter, opts ...Option) *SnapshotWorker {
	w := &SnapshotWorker{
		spending:  spending,
		snapshots: snapshots,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// HandleActivityChanged processes a single activity change message from AMQP.
// A returned error makes the consumer requeue the delivery.
func (w *SnapshotWorker) HandleActivityChanged(ctx context.Context, msg *amqp.ActivityChangedMessage) error {
	slog.InfoContext(ctx, "Processing activity change",
		"account_id", msg.AccountID,
		"activity_id", msg.ActivityID,
		"category", msg.Category)

	// The API process owns its own cache; ours may predate the change.
	w.spending.Invalidate(msg.AccountID)

	if _, err := w.Refresh(ctx, msg.AccountID); err != nil {
		return fmt.Errorf("refresh account %d: %w", msg.AccountID, err)
	}
	return nil
}

// Refresh computes, stores and optionally exports the month-to-date snapshot
// of one account. Export failures are logged and do not fail the refresh.
func (w *SnapshotWorker) Refresh(ctx context.Context, accountID int64) (core.SpendSnapshot, error) {
	now := w.now()
	snap, err := w.compute(ctx, accountID, now)
	if err == nil {
		err = w.snapshots.SaveSnapshot(ctx, snap)
		if err != nil {
			err = fmt.Errorf("save snapshot: %w", err)
		}
	}
	if w.recorder != nil {
		w.recorder.RecordSnapshot(err)
	}
	if err != nil {
		return core.SpendSnapshot{}, err
	}

	slog.InfoContext(ctx, "Snapshot stored",
		"account_id", snap.AccountID,
		"year", snap.Year,
		"month", snap.Month,
		"total_cents", snap.Total.Cents,
		"categories", len(snap.ByCategory))

	if w.reports == nil {
		return snap, nil
	}
	// The snapshot is already stored; a retry would only store it again.
	ref, err := w.reports.WriteSnapshot(ctx, snap)
	if err != nil {
		slog.WarnContext(ctx, "Failed to export snapshot",
			"account_id", snap.AccountID,
			"year", snap.Year,
			"month", snap.Month,
			"error", err)
		return snap, nil
	}
	slog.DebugContext(ctx, "Snapshot exported", "account_id", snap.AccountID, "ref", ref)
	return snap, nil
}

// RefreshAll refreshes every account and returns how many succeeded. Failures
// are logged and do not stop the loop.
func (w *SnapshotWorker) RefreshAll(ctx context.Context, accountIDs []int64) int {
	ok := 0
	for _, id := range accountIDs {
		if ctx.Err() != nil {
			break
		}
		if _, err := w.Refresh(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to refresh snapshot", "account_id", id, "error", err)
			continue
		}
		ok++
	}
	return ok
}

func (w *SnapshotWorker) compute(ctx context.Context, accountID int64, now time.Time) (core.SpendSnapshot, error) {
	ref := core.DateOf(now)
	q := services.SpendQuery{AccountID: accountID, Year: ref.Year(), Month: ref.Month()}

	summary, err := w.spending.SpendInMonth(ctx, q, ref)
	if err != nil {
		return core.SpendSnapshot{}, fmt.Errorf("month total: %w", err)
	}
	breakdown, err := w.spending.Breakdown(ctx, core.GranularityMonth, q, ref)
	if err != nil {
		return core.SpendSnapshot{}, fmt.Errorf("month breakdown: %w", err)
	}

	return core.SpendSnapshot{
		AccountID:  accountID,
		Year:       ref.Year(),
		Month:      ref.Month(),
		AsOf:       ref,
		Total:      summary.Total,
		ByCategory: breakdown,
		ComputedAt: now.UTC(),
	}, nil
}
