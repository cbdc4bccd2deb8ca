// Package postgres is the Postgres storage backend.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"spending/internal/core"
	"spending/internal/storage"
	"spending/internal/store"
)

// Repository provides Postgres-backed persistence for activities and spend snapshots.
type Repository struct {
	pool *pgxpool.Pool
}

var _ store.Backend = (*Repository)(nil)

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Open migrates the database at url and returns a pooled repository.
func Open(ctx context.Context, url string) (*Repository, error) {
	if err := RunMigrations(url); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return NewRepository(pool), nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

const activityColumns = `id, account_id, category, name, description, location, expense_cents,
	start_date, end_date, recurrence_kind, recurrence_interval, recurrence_weekdays,
	recurrence_day, recurrence_month, recurrence_week_index`

// CreateActivity inserts the activity and returns it with its generated ID.
func (r *Repository) CreateActivity(ctx context.Context, a core.Activity) (core.Activity, error) {
	if err := a.Validate(); err != nil {
		return core.Activity{}, err
	}

	const stmt = `INSERT INTO activities (account_id, category, name, description, location, expense_cents,
        start_date, end_date, recurrence_kind, recurrence_interval, recurrence_weekdays,
        recurrence_day, recurrence_month, recurrence_week_index)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
        RETURNING id`

	spec := core.SpecOf(a.Recurrence)
	err := r.pool.QueryRow(ctx, stmt,
		a.AccountID,
		string(a.Category),
		a.Name,
		a.Description,
		a.Location,
		a.Expense.Cents,
		a.StartDate.Time,
		nullableDate(a.EndDate),
		string(spec.Kind),
		spec.Interval,
		int(spec.Weekdays),
		spec.DayOfMonth,
		spec.Month,
		int(spec.WeekIndex),
	).Scan(&a.ID)
	if err != nil {
		return core.Activity{}, fmt.Errorf("create activity: %w", err)
	}

	slog.InfoContext(ctx, "Activity saved to Postgres",
		"activity_id", a.ID,
		"account_id", a.AccountID,
		"category", a.Category,
		"recurrence_kind", spec.Kind)

	return a, nil
}

// ListActivities pages through an account's activities, newest first.
func (r *Repository) ListActivities(ctx context.Context, accountID int64, offset, limit int) ([]core.Activity, error) {
	const query = `SELECT ` + activityColumns + `
        FROM activities WHERE account_id=$1 ORDER BY id DESC LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return collectActivities(ctx, rows)
}

// ListCandidates returns the activities of an account that may occur inside w.
func (r *Repository) ListCandidates(ctx context.Context, accountID int64, w core.Window, category core.Category) ([]core.Activity, error) {
	if w.IsEmpty() {
		return []core.Activity{}, nil
	}
	const query = `SELECT ` + activityColumns + `
        FROM activities
        WHERE account_id=$1
          AND start_date <= $2
          AND (end_date IS NULL OR end_date >= $3)
          AND ($4::text = '' OR category = $4::text)
        ORDER BY id`

	rows, err := r.pool.Query(ctx, query, accountID, w.End.Time, w.Start.Time, string(category))
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	return collectActivities(ctx, rows)
}

// SaveSnapshot appends a computed snapshot.
func (r *Repository) SaveSnapshot(ctx context.Context, s core.SpendSnapshot) error {
	cats, err := storage.EncodeCategories(s.ByCategory)
	if err != nil {
		return err
	}

	const stmt = `INSERT INTO spend_snapshots (account_id, year, month, as_of, total_cents, by_category, computed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`

	_, err = r.pool.Exec(ctx, stmt,
		s.AccountID,
		s.Year,
		s.Month,
		s.AsOf.Time,
		s.Total.Cents,
		json.RawMessage(cats),
		s.ComputedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the newest snapshot for the account, or store.ErrNotFound.
func (r *Repository) LatestSnapshot(ctx context.Context, accountID int64) (core.SpendSnapshot, error) {
	const query = `SELECT account_id, year, month, as_of, total_cents, by_category, computed_at
        FROM spend_snapshots WHERE account_id=$1 ORDER BY id DESC LIMIT 1`

	var (
		s    core.SpendSnapshot
		asOf time.Time
		raw  []byte
	)
	err := r.pool.QueryRow(ctx, query, accountID).Scan(&s.AccountID, &s.Year, &s.Month, &asOf, &s.Total.Cents, &raw, &s.ComputedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.SpendSnapshot{}, store.ErrNotFound
	}
	if err != nil {
		return core.SpendSnapshot{}, fmt.Errorf("latest snapshot: %w", err)
	}

	s.AsOf = core.DateOf(asOf)
	if s.ByCategory, err = storage.DecodeCategories(raw); err != nil {
		return core.SpendSnapshot{}, err
	}
	return s, nil
}

func collectActivities(ctx context.Context, rows pgx.Rows) ([]core.Activity, error) {
	defer rows.Close()

	out := []core.Activity{}
	for rows.Next() {
		var (
			row       activityRow
			start     time.Time
			end       *time.Time
			kind      string
			weekdays  int
			weekIndex int
		)
		if err := rows.Scan(
			&row.ID, &row.AccountID, &row.Category, &row.Name, &row.Description, &row.Location, &row.ExpenseCents,
			&start, &end, &kind, &row.Interval, &weekdays, &row.Day, &row.Month, &weekIndex,
		); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		row.Start = core.DateOf(start)
		if end != nil {
			row.End = core.DateOf(*end)
		}
		row.Kind = core.RecurrenceKind(kind)
		row.Weekdays = core.Weekdays(weekdays)
		row.WeekIndex = core.WeekIndex(weekIndex)
		out = append(out, row.toCore(ctx))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}
	return out, nil
}

type activityRow struct {
	ID, AccountID        int64
	Category             string
	Name, Description    string
	Location             string
	ExpenseCents         int64
	Start, End           core.Date
	Kind                 core.RecurrenceKind
	Interval, Day, Month int
	Weekdays             core.Weekdays
	WeekIndex            core.WeekIndex
}

func (r activityRow) toCore(ctx context.Context) core.Activity {
	spec := core.RecurrenceSpec{
		Kind:       r.Kind,
		Interval:   r.Interval,
		Weekdays:   r.Weekdays,
		DayOfMonth: r.Day,
		Month:      r.Month,
		WeekIndex:  r.WeekIndex,
	}
	return core.Activity{
		ID:          r.ID,
		AccountID:   r.AccountID,
		Category:    core.Category(r.Category),
		Name:        r.Name,
		Description: r.Description,
		Location:    r.Location,
		Expense:     core.Money{Cents: r.ExpenseCents},
		StartDate:   r.Start,
		EndDate:     r.End,
		Recurrence:  storage.DecodeRecurrence(ctx, r.ID, spec),
	}
}

func nullableDate(d core.Date) *time.Time {
	if d.IsEmpty() {
		return nil
	}
	t := d.Time
	return &t
}
