package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"spending/internal/core"
)

// DecodeRecurrence rebuilds an activity's recurrence from its stored columns.
// A row with invalid parameters keeps its kind and is logged; it counts zero
// and is reported as an invalid pattern when aggregated.
func DecodeRecurrence(ctx context.Context, activityID int64, spec core.RecurrenceSpec) core.Recurrence {
	r, err := core.DecodeRecurrence(spec)
	if err != nil {
		slog.WarnContext(ctx, "Stored recurrence does not validate",
			"activity_id", activityID,
			"recurrence_kind", spec.Kind,
			"error", err)
	}
	return r
}

type categoryAmountJSON struct {
	Category    string `json:"category"`
	AmountCents int64  `json:"amount_cents"`
}

// EncodeCategories serializes a snapshot breakdown for a JSON column.
func EncodeCategories(items []core.CategoryAmount) (string, error) {
	out := make([]categoryAmountJSON, 0, len(items))
	for _, it := range items {
		out = append(out, categoryAmountJSON{Category: string(it.Category), AmountCents: it.Amount.Cents})
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("encode categories: %w", err)
	}
	return string(b), nil
}

func DecodeCategories(raw []byte) ([]core.CategoryAmount, error) {
	var in []categoryAmountJSON
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	out := make([]core.CategoryAmount, 0, len(in))
	for _, it := range in {
		out = append(out, core.CategoryAmount{Category: core.Category(it.Category), Amount: core.Money{Cents: it.AmountCents}})
	}
	return out, nil
}

func toCore(ctx context.Context, row Activity) (core.Activity, error) {
	start, err := core.ParseDate(row.StartDate)
	if err != nil {
		return core.Activity{}, fmt.Errorf("activity %d start date: %w", row.ID, err)
	}
	var end core.Date
	if row.EndDate.Valid {
		end, err = core.ParseDate(row.EndDate.String)
		if err != nil {
			return core.Activity{}, fmt.Errorf("activity %d end date: %w", row.ID, err)
		}
	}
	spec := core.RecurrenceSpec{
		Kind:       core.RecurrenceKind(row.RecurrenceKind),
		Interval:   int(row.RecurrenceInterval),
		Weekdays:   core.Weekdays(row.RecurrenceWeekdays),
		DayOfMonth: int(row.RecurrenceDay),
		Month:      int(row.RecurrenceMonth),
		WeekIndex:  core.WeekIndex(row.RecurrenceWeekIndex),
	}
	return core.Activity{
		ID:          row.ID,
		AccountID:   row.AccountID,
		Category:    core.Category(row.Category),
		Name:        row.Name,
		Description: row.Description,
		Location:    row.Location,
		Expense:     core.Money{Cents: row.ExpenseCents},
		StartDate:   start,
		EndDate:     end,
		Recurrence:  DecodeRecurrence(ctx, row.ID, spec),
	}, nil
}

// toCoreList converts rows, skipping any whose dates do not parse.
func toCoreList(ctx context.Context, rows []Activity) []core.Activity {
	out := make([]core.Activity, 0, len(rows))
	for _, row := range rows {
		a, err := toCore(ctx, row)
		if err != nil {
			slog.WarnContext(ctx, "Skipping unreadable activity row",
				"activity_id", row.ID,
				"account_id", row.AccountID,
				"error", err)
			continue
		}
		out = append(out, a)
	}
	return out
}
