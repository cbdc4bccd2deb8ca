package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

// Activity is one row of the activities table.
type Activity struct {
	ID                  int64
	AccountID           int64
	Category            string
	Name                string
	Description         string
	Location            string
	ExpenseCents        int64
	StartDate           string
	EndDate             sql.NullString
	RecurrenceKind      string
	RecurrenceInterval  int64
	RecurrenceWeekdays  int64
	RecurrenceDay       int64
	RecurrenceMonth     int64
	RecurrenceWeekIndex int64
}

const activityColumns = `id, account_id, category, name, description, location, expense_cents,
	start_date, end_date, recurrence_kind, recurrence_interval, recurrence_weekdays,
	recurrence_day, recurrence_month, recurrence_week_index`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanActivity(row scanner) (Activity, error) {
	var i Activity
	err := row.Scan(
		&i.ID,
		&i.AccountID,
		&i.Category,
		&i.Name,
		&i.Description,
		&i.Location,
		&i.ExpenseCents,
		&i.StartDate,
		&i.EndDate,
		&i.RecurrenceKind,
		&i.RecurrenceInterval,
		&i.RecurrenceWeekdays,
		&i.RecurrenceDay,
		&i.RecurrenceMonth,
		&i.RecurrenceWeekIndex,
	)
	return i, err
}

const createActivity = `INSERT INTO activities (
	account_id, category, name, description, location, expense_cents,
	start_date, end_date, recurrence_kind, recurrence_interval, recurrence_weekdays,
	recurrence_day, recurrence_month, recurrence_week_index
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id`

type CreateActivityParams struct {
	AccountID           int64
	Category            string
	Name                string
	Description         string
	Location            string
	ExpenseCents        int64
	StartDate           string
	EndDate             sql.NullString
	RecurrenceKind      string
	RecurrenceInterval  int64
	RecurrenceWeekdays  int64
	RecurrenceDay       int64
	RecurrenceMonth     int64
	RecurrenceWeekIndex int64
}

func (q *Queries) CreateActivity(ctx context.Context, arg CreateActivityParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createActivity,
		arg.AccountID,
		arg.Category,
		arg.Name,
		arg.Description,
		arg.Location,
		arg.ExpenseCents,
		arg.StartDate,
		arg.EndDate,
		arg.RecurrenceKind,
		arg.RecurrenceInterval,
		arg.RecurrenceWeekdays,
		arg.RecurrenceDay,
		arg.RecurrenceMonth,
		arg.RecurrenceWeekIndex,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const listActivities = `SELECT ` + activityColumns + `
FROM activities
WHERE account_id = ?
ORDER BY id DESC
LIMIT ? OFFSET ?`

func (q *Queries) ListActivities(ctx context.Context, accountID int64, limit, offset int64) ([]Activity, error) {
	return q.queryActivities(ctx, listActivities, accountID, limit, offset)
}

// Dates are YYYY-MM-DD text, so the range predicate compares lexically.
const listCandidates = `SELECT ` + activityColumns + `
FROM activities
WHERE account_id = ?
  AND start_date <= ?
  AND (end_date IS NULL OR end_date >= ?)
  AND (? = '' OR category = ?)
ORDER BY id`

type ListCandidatesParams struct {
	AccountID   int64
	WindowStart string
	WindowEnd   string
	Category    string
}

func (q *Queries) ListCandidates(ctx context.Context, arg ListCandidatesParams) ([]Activity, error) {
	return q.queryActivities(ctx, listCandidates,
		arg.AccountID,
		arg.WindowEnd,
		arg.WindowStart,
		arg.Category,
		arg.Category,
	)
}

func (q *Queries) queryActivities(ctx context.Context, query string, args ...interface{}) ([]Activity, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Activity
	for rows.Next() {
		i, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// SpendSnapshot is one row of the spend_snapshots table. ByCategory holds JSON.
type SpendSnapshot struct {
	ID         int64
	AccountID  int64
	Year       int64
	Month      int64
	AsOf       string
	TotalCents int64
	ByCategory string
	ComputedAt string
}

const insertSnapshot = `INSERT INTO spend_snapshots (
	account_id, year, month, as_of, total_cents, by_category, computed_at
) VALUES (?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertSnapshot(ctx context.Context, arg SpendSnapshot) error {
	_, err := q.db.ExecContext(ctx, insertSnapshot,
		arg.AccountID,
		arg.Year,
		arg.Month,
		arg.AsOf,
		arg.TotalCents,
		arg.ByCategory,
		arg.ComputedAt,
	)
	return err
}

const latestSnapshot = `SELECT id, account_id, year, month, as_of, total_cents, by_category, computed_at
FROM spend_snapshots
WHERE account_id = ?
ORDER BY id DESC
LIMIT 1`

func (q *Queries) LatestSnapshot(ctx context.Context, accountID int64) (SpendSnapshot, error) {
	row := q.db.QueryRowContext(ctx, latestSnapshot, accountID)
	var i SpendSnapshot
	err := row.Scan(
		&i.ID,
		&i.AccountID,
		&i.Year,
		&i.Month,
		&i.AsOf,
		&i.TotalCents,
		&i.ByCategory,
		&i.ComputedAt,
	)
	return i, err
}
