package sheets

import (
	"context"
	"strconv"
	"time"

	"spending/internal/core"
)

// TotalLabel marks the summary row of an exported snapshot.
const TotalLabel = "TOTAL"

// ReportHeader names the columns of the report tab.
var ReportHeader = []any{"Computed At", "Account", "As Of", "Year", "Month", "Category", "Amount"}

// Ports for outbound adapters.
type (
	// ReportWriter exports a computed snapshot as rows of a spreadsheet tab.
	ReportWriter interface {
		WriteSnapshot(ctx context.Context, s core.SpendSnapshot) (rowRef string, err error)
	}
)

// ReportRows lays out a snapshot: one TOTAL row followed by one row per category.
// Amounts are decimal strings so the sheet never sees float rounding.
func ReportRows(s core.SpendSnapshot) [][]any {
	prefix := []any{
		s.ComputedAt.UTC().Format(time.RFC3339),
		strconv.FormatInt(s.AccountID, 10),
		s.AsOf.String(),
		s.Year,
		s.Month,
	}
	row := func(label string, m core.Money) []any {
		r := append([]any(nil), prefix...)
		return append(r, label, m.String())
	}

	rows := make([][]any, 0, len(s.ByCategory)+1)
	rows = append(rows, row(TotalLabel, s.Total))
	for _, c := range s.ByCategory {
		rows = append(rows, row(string(c.Category), c.Amount))
	}
	return rows
}
