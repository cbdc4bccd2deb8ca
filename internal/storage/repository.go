package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"spending/internal/core"
	"spending/internal/store"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ store.Backend = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return newRepository(db), nil
}

func newRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateActivity implements store.ActivityWriter
func (r *SQLiteRepository) CreateActivity(ctx context.Context, a core.Activity) (core.Activity, error) {
	if err := a.Validate(); err != nil {
		return core.Activity{}, err
	}

	spec := core.SpecOf(a.Recurrence)
	var end sql.NullString
	if !a.EndDate.IsEmpty() {
		end = sql.NullString{String: a.EndDate.String(), Valid: true}
	}

	id, err := r.queries.CreateActivity(ctx, CreateActivityParams{
		AccountID:           a.AccountID,
		Category:            string(a.Category),
		Name:                a.Name,
		Description:         a.Description,
		Location:            a.Location,
		ExpenseCents:        a.Expense.Cents,
		StartDate:           a.StartDate.String(),
		EndDate:             end,
		RecurrenceKind:      string(spec.Kind),
		RecurrenceInterval:  int64(spec.Interval),
		RecurrenceWeekdays:  int64(spec.Weekdays),
		RecurrenceDay:       int64(spec.DayOfMonth),
		RecurrenceMonth:     int64(spec.Month),
		RecurrenceWeekIndex: int64(spec.WeekIndex),
	})
	if err != nil {
		return core.Activity{}, fmt.Errorf("create activity: %w", err)
	}
	a.ID = id

	slog.InfoContext(ctx, "Activity saved to SQLite",
		"activity_id", a.ID,
		"account_id", a.AccountID,
		"category", a.Category,
		"recurrence_kind", spec.Kind)

	return a, nil
}

// ListActivities implements store.ActivityLister
func (r *SQLiteRepository) ListActivities(ctx context.Context, accountID int64, offset, limit int) ([]core.Activity, error) {
	rows, err := r.queries.ListActivities(ctx, accountID, int64(limit), int64(offset))
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return toCoreList(ctx, rows), nil
}

// ListCandidates implements store.CandidateLister
func (r *SQLiteRepository) ListCandidates(ctx context.Context, accountID int64, w core.Window, category core.Category) ([]core.Activity, error) {
	if w.IsEmpty() {
		return []core.Activity{}, nil
	}
	rows, err := r.queries.ListCandidates(ctx, ListCandidatesParams{
		AccountID:   accountID,
		WindowStart: w.Start.String(),
		WindowEnd:   w.End.String(),
		Category:    string(category),
	})
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	slog.DebugContext(ctx, "Candidates loaded",
		"account_id", accountID,
		"window", w.String(),
		"count", len(rows))

	return toCoreList(ctx, rows), nil
}

// SaveSnapshot implements store.SnapshotWriter
func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, s core.SpendSnapshot) error {
	cats, err := EncodeCategories(s.ByCategory)
	if err != nil {
		return err
	}
	err = r.queries.InsertSnapshot(ctx, SpendSnapshot{
		AccountID:  s.AccountID,
		Year:       int64(s.Year),
		Month:      int64(s.Month),
		AsOf:       s.AsOf.String(),
		TotalCents: s.Total.Cents,
		ByCategory: cats,
		ComputedAt: s.ComputedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot implements store.SnapshotReader
func (r *SQLiteRepository) LatestSnapshot(ctx context.Context, accountID int64) (core.SpendSnapshot, error) {
	row, err := r.queries.LatestSnapshot(ctx, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SpendSnapshot{}, store.ErrNotFound
	}
	if err != nil {
		return core.SpendSnapshot{}, fmt.Errorf("latest snapshot: %w", err)
	}

	asOf, err := core.ParseDate(row.AsOf)
	if err != nil {
		return core.SpendSnapshot{}, fmt.Errorf("snapshot %d as_of: %w", row.ID, err)
	}
	computed, err := time.Parse(time.RFC3339Nano, row.ComputedAt)
	if err != nil {
		return core.SpendSnapshot{}, fmt.Errorf("snapshot %d computed_at: %w", row.ID, err)
	}
	cats, err := DecodeCategories([]byte(row.ByCategory))
	if err != nil {
		return core.SpendSnapshot{}, err
	}

	return core.SpendSnapshot{
		AccountID:  row.AccountID,
		Year:       int(row.Year),
		Month:      int(row.Month),
		AsOf:       asOf,
		Total:      core.Money{Cents: row.TotalCents},
		ByCategory: cats,
		ComputedAt: computed,
	}, nil
}
