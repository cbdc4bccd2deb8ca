package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"text/template"

	"spending/internal/core"
)

const (
	formatText = "text"
	formatJSON = "json"
)

// SpendView is the printable form of a spending total or breakdown.
type SpendView struct {
	AccountID  int64          `json:"account_id"`
	Period     string         `json:"period"`
	Category   string         `json:"category,omitempty"`
	AsOf       string         `json:"as_of"`
	Total      string         `json:"total_spend"`
	Categories []CategoryView `json:"categories,omitempty"`
}

type CategoryView struct {
	Category string `json:"category"`
	Amount   string `json:"amount"`
}

// TrendsView is the printable form of a month-by-month series.
type TrendsView struct {
	AccountID int64       `json:"account_id"`
	AsOf      string      `json:"as_of"`
	Months    []MonthView `json:"months"`
}

type MonthView struct {
	Period     string         `json:"period"`
	Total      string         `json:"total_spend"`
	Categories []CategoryView `json:"categories"`
}

// SnapshotView is the printable form of a stored snapshot.
type SnapshotView struct {
	AccountID  int64          `json:"account_id"`
	Year       int            `json:"year"`
	Month      int            `json:"month"`
	AsOf       string         `json:"as_of"`
	Total      string         `json:"total_spend"`
	Categories []CategoryView `json:"categories"`
	ComputedAt string         `json:"computed_at"`
}

func categoryViews(amounts []core.CategoryAmount) []CategoryView {
	out := make([]CategoryView, 0, len(amounts))
	for _, a := range amounts {
		out = append(out, CategoryView{Category: string(a.Category), Amount: a.Amount.String()})
	}
	return out
}

var spendTmpl = template.Must(template.New("spend").Parse(
	`Account {{.AccountID}} spending for {{.Period}}{{if .Category}} in {{.Category}}{{end}} (as of {{.AsOf}})
Total: {{.Total}}
{{range .Categories}}  {{printf "%-24s" .Category}} {{.Amount}}
{{end}}`))

var snapshotTmpl = template.Must(template.New("snapshot").Parse(
	`Account {{.AccountID}} snapshot for {{.Year}}-{{printf "%02d" .Month}} (as of {{.AsOf}}, computed {{.ComputedAt}})
Total: {{.Total}}
{{range .Categories}}  {{printf "%-24s" .Category}} {{.Amount}}
{{end}}`))

var trendsTmpl = template.Must(template.New("trends").Parse(
	`Account {{.AccountID}} spending trend (as of {{.AsOf}})
{{range .Months}}{{.Period}}  Total: {{.Total}}
{{range .Categories}}  {{printf "%-24s" .Category}} {{.Amount}}
{{end}}{{end}}`))

// Reporter prints command results as text or JSON.
type Reporter struct {
	writer io.Writer
	format string
}

func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{writer: writer, format: formatText}
}

func (r *Reporter) setFormat(format string) error {
	switch format {
	case formatText, formatJSON:
		r.format = format
		return nil
	default:
		return fmt.Errorf("unknown output format %q: must be %s or %s", format, formatText, formatJSON)
	}
}

func (r *Reporter) Spend(v SpendView) error {
	return r.render(spendTmpl, v)
}

func (r *Reporter) Trends(v TrendsView) error {
	return r.render(trendsTmpl, v)
}

func (r *Reporter) Snapshot(v SnapshotView) error {
	return r.render(snapshotTmpl, v)
}

// Activities prints one row per activity.
func (r *Reporter) Activities(items []core.Activity) error {
	if r.format == formatJSON {
		rows := make([]map[string]any, 0, len(items))
		for _, a := range items {
			rows = append(rows, activityRow(a))
		}
		return r.json(rows)
	}

	tw := tabwriter.NewWriter(r.writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCATEGORY\tNAME\tEXPENSE\tSTART\tEND\tRECURRENCE")
	for _, a := range items {
		end := "-"
		if !a.EndDate.IsEmpty() {
			end = a.EndDate.String()
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			a.ID, a.Category, a.Name, a.Expense, a.StartDate, end, a.Recurrence.Kind())
	}
	return tw.Flush()
}

// Line prints a plain status message; JSON output wraps it.
func (r *Reporter) Line(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if r.format == formatJSON {
		return r.json(map[string]string{"message": msg})
	}
	_, err := fmt.Fprintln(r.writer, msg)
	return err
}

func (r *Reporter) render(t *template.Template, v any) error {
	if r.format == formatJSON {
		return r.json(v)
	}
	if err := t.Execute(r.writer, v); err != nil {
		return fmt.Errorf("failed to render %s: %w", t.Name(), err)
	}
	return nil
}

func (r *Reporter) json(v any) error {
	enc := json.NewEncoder(r.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func activityRow(a core.Activity) map[string]any {
	spec := core.SpecOf(a.Recurrence)
	row := map[string]any{
		"id":         a.ID,
		"account_id": a.AccountID,
		"category":   a.Category,
		"name":       a.Name,
		"expense":    a.Expense.String(),
		"start_date": a.StartDate.String(),
		"kind":       spec.Kind,
	}
	if !a.EndDate.IsEmpty() {
		row["end_date"] = a.EndDate.String()
	}
	if spec.Interval > 0 {
		row["interval"] = spec.Interval
	}
	if !spec.Weekdays.IsEmpty() {
		row["weekdays"] = spec.Weekdays.Names()
	}
	return row
}
