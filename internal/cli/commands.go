package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"spending/internal/config"
	"spending/internal/core"
	"spending/internal/services"
	"spending/internal/storage"
	"spending/internal/storage/postgres"
)

type spendCmd struct {
	cli         *CLI
	granularity core.Granularity
	accountID   int64
	year        int
	month       int
	day         int
	category    string
	asOf        string
	breakdown   bool
}

func (c *CLI) newSpendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spend",
		Short: "Total an account's spending for a year, month or day",
	}
	cmd.AddCommand(c.newPeriodCmd(core.GranularityYear, false))
	cmd.AddCommand(c.newPeriodCmd(core.GranularityMonth, false))
	cmd.AddCommand(c.newPeriodCmd(core.GranularityDay, false))
	cmd.AddCommand(c.newPeriodCmd("", true))
	cmd.AddCommand(c.newTrendsCmd())
	return cmd
}

func (c *CLI) newPeriodCmd(g core.Granularity, breakdown bool) *cobra.Command {
	sc := &spendCmd{cli: c, granularity: g, breakdown: breakdown}
	cmd := &cobra.Command{
		Use:   string(g),
		Short: fmt.Sprintf("Spending in one %s", g),
		Args:  cobra.NoArgs,
		RunE:  sc.run,
	}
	if breakdown {
		cmd.Use = "breakdown"
		cmd.Short = "Spending per category for a year, or a month or day when given"
	}

	cmd.Flags().Int64Var(&sc.accountID, "account", 0, "Account ID")
	cmd.Flags().IntVar(&sc.year, "year", 0, "Calendar year")
	cmd.Flags().StringVar(&sc.asOf, "as-of", "", "Reference date (YYYY-MM-DD), defaults to today")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("year")

	if g == core.GranularityMonth || g == core.GranularityDay || breakdown {
		cmd.Flags().IntVar(&sc.month, "month", 0, "Month (1-12)")
	}
	if g == core.GranularityDay || breakdown {
		cmd.Flags().IntVar(&sc.day, "day", 0, "Day of month")
	}
	if g == core.GranularityMonth || g == core.GranularityDay {
		_ = cmd.MarkFlagRequired("month")
	}
	if g == core.GranularityDay {
		_ = cmd.MarkFlagRequired("day")
	}
	if !breakdown {
		cmd.Flags().StringVar(&sc.category, "category", "", "Only count this category")
	}
	return cmd
}

func (sc *spendCmd) run(cmd *cobra.Command, _ []string) error {
	ref, err := sc.refDate()
	if err != nil {
		return err
	}
	g := sc.granularity
	if sc.breakdown {
		g = breakdownGranularity(cmd.Flags().Changed("month"), cmd.Flags().Changed("day"))
		if g == "" {
			return fmt.Errorf("%w: --day requires --month", core.ErrInvalidDate)
		}
	}
	q := services.SpendQuery{
		AccountID: sc.accountID,
		Year:      sc.year,
		Month:     sc.month,
		Day:       sc.day,
		Category:  core.Category(strings.TrimSpace(sc.category)),
	}

	return sc.cli.withApp(cmd, func(ctx context.Context, app *App) error {
		view := SpendView{
			AccountID: q.AccountID,
			Period:    periodLabel(g, q),
			Category:  string(q.Category),
			AsOf:      ref.String(),
		}
		if !sc.breakdown {
			summary, err := app.Spending.Spend(ctx, g, q, ref)
			if err != nil {
				return err
			}
			view.Total = summary.Total.String()
			return sc.cli.reporter.Spend(view)
		}

		amounts, err := app.Spending.Breakdown(ctx, g, q, ref)
		if err != nil {
			return err
		}
		var total core.Money
		for _, a := range amounts {
			total = total.Add(a.Amount)
		}
		view.Total = total.String()
		view.Categories = categoryViews(amounts)
		return sc.cli.reporter.Spend(view)
	})
}

func (sc *spendCmd) refDate() (core.Date, error) {
	return sc.cli.referenceDate(sc.asOf)
}

// referenceDate parses --as-of, defaulting to today.
func (c *CLI) referenceDate(asOf string) (core.Date, error) {
	if strings.TrimSpace(asOf) == "" {
		return core.DateOf(c.opts.Now()), nil
	}
	d, err := core.ParseDate(strings.TrimSpace(asOf))
	if err != nil {
		return core.Date{}, fmt.Errorf("--as-of: %w", err)
	}
	return d, nil
}

func breakdownGranularity(hasMonth, hasDay bool) core.Granularity {
	switch {
	case hasDay && !hasMonth:
		return ""
	case hasDay:
		return core.GranularityDay
	case hasMonth:
		return core.GranularityMonth
	default:
		return core.GranularityYear
	}
}

func periodLabel(g core.Granularity, q services.SpendQuery) string {
	switch g {
	case core.GranularityMonth:
		return fmt.Sprintf("%04d-%02d", q.Year, q.Month)
	case core.GranularityDay:
		return fmt.Sprintf("%04d-%02d-%02d", q.Year, q.Month, q.Day)
	default:
		return fmt.Sprintf("%04d", q.Year)
	}
}

type trendsCmd struct {
	cli       *CLI
	accountID int64
	months    int
	asOf      string
}

func (c *CLI) newTrendsCmd() *cobra.Command {
	tc := &trendsCmd{cli: c}
	cmd := &cobra.Command{
		Use:   "trends",
		Short: "Spending per category for each of the last N months",
		Args:  cobra.NoArgs,
		RunE:  tc.run,
	}
	cmd.Flags().Int64Var(&tc.accountID, "account", 0, "Account ID")
	cmd.Flags().IntVar(&tc.months, "months", services.DefaultTrendMonths, "Number of months, ending with the --as-of month")
	cmd.Flags().StringVar(&tc.asOf, "as-of", "", "Reference date (YYYY-MM-DD), defaults to today")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

func (tc *trendsCmd) run(cmd *cobra.Command, _ []string) error {
	ref, err := tc.cli.referenceDate(tc.asOf)
	if err != nil {
		return err
	}
	return tc.cli.withApp(cmd, func(ctx context.Context, app *App) error {
		points, err := app.Spending.Trends(ctx, tc.accountID, tc.months, ref)
		if err != nil {
			return err
		}
		view := TrendsView{AccountID: tc.accountID, AsOf: ref.String(), Months: make([]MonthView, 0, len(points))}
		for _, p := range points {
			view.Months = append(view.Months, MonthView{
				Period:     fmt.Sprintf("%04d-%02d", p.Year, p.Month),
				Total:      p.Total.String(),
				Categories: categoryViews(p.ByCategory),
			})
		}
		return tc.cli.reporter.Trends(view)
	})
}

type activityAddCmd struct {
	cli         *CLI
	accountID   int64
	category    string
	name        string
	description string
	location    string
	expense     string
	start       string
	end         string
	kind        string
	interval    int
	intervalSet bool
	weekdays    []string
	dayOfMonth  int
	month       int
	weekIndex   string
}

type activityListCmd struct {
	cli       *CLI
	accountID int64
	offset    int
	limit     int
}

func (c *CLI) newActivityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Record and list spending activities",
	}

	add := &activityAddCmd{cli: c}
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Record a one-off or recurring activity",
		Args:  cobra.NoArgs,
		RunE:  add.run,
	}
	f := addCmd.Flags()
	f.Int64Var(&add.accountID, "account", 0, "Account ID")
	f.StringVar(&add.category, "category", "", "Category (e.g. housing, food)")
	f.StringVar(&add.name, "name", "", "Activity name")
	f.StringVar(&add.description, "description", "", "Free text description")
	f.StringVar(&add.location, "location", "", "Where the spending happens")
	f.StringVar(&add.expense, "expense", "", "Cost of one occurrence (e.g. 12.50)")
	f.StringVar(&add.start, "start", "", "First possible occurrence (YYYY-MM-DD)")
	f.StringVar(&add.end, "end", "", "Last possible occurrence, inclusive (YYYY-MM-DD)")
	f.StringVar(&add.kind, "kind", string(core.Once), "Recurrence kind: once, daily, weekly, monthly_absolute, monthly_relative, yearly_absolute, yearly_relative")
	f.IntVar(&add.interval, "interval", 1, "Repeat every N days, weeks, months or years (not for once)")
	f.StringSliceVar(&add.weekdays, "weekday", nil, "Weekday names for weekly and relative kinds (repeatable)")
	f.IntVar(&add.dayOfMonth, "day-of-month", 0, "Day of month for absolute kinds")
	f.IntVar(&add.month, "month", 0, "Month for yearly kinds")
	f.StringVar(&add.weekIndex, "week-index", "", "first, second, third, fourth or last for relative kinds")
	for _, name := range []string{"account", "category", "name", "expense", "start"} {
		_ = addCmd.MarkFlagRequired(name)
	}

	list := &activityListCmd{cli: c}
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List an account's activities, newest first",
		Args:  cobra.NoArgs,
		RunE:  list.run,
	}
	listCmd.Flags().Int64Var(&list.accountID, "account", 0, "Account ID")
	listCmd.Flags().IntVar(&list.offset, "offset", 0, "Rows to skip")
	listCmd.Flags().IntVar(&list.limit, "limit", services.DefaultListLimit, "Rows to return")
	_ = listCmd.MarkFlagRequired("account")

	cmd.AddCommand(addCmd, listCmd)
	return cmd
}

func (ac *activityAddCmd) activity() (core.Activity, error) {
	expense, err := core.ParseMoney(ac.expense)
	if err != nil {
		return core.Activity{}, fmt.Errorf("--expense %q: %w", ac.expense, err)
	}
	start, err := core.ParseDate(strings.TrimSpace(ac.start))
	if err != nil {
		return core.Activity{}, fmt.Errorf("--start: %w", err)
	}
	var end core.Date
	if strings.TrimSpace(ac.end) != "" {
		if end, err = core.ParseDate(strings.TrimSpace(ac.end)); err != nil {
			return core.Activity{}, fmt.Errorf("--end: %w", err)
		}
	}

	spec := core.RecurrenceSpec{
		Kind:       core.RecurrenceKind(strings.ToLower(strings.TrimSpace(ac.kind))),
		Interval:   ac.interval,
		DayOfMonth: ac.dayOfMonth,
		Month:      ac.month,
	}
	if spec.Kind == core.Once && !ac.intervalSet {
		spec.Interval = 0
	}
	if spec.Weekdays, err = core.ParseWeekdays(ac.weekdays); err != nil {
		return core.Activity{}, err
	}
	if strings.TrimSpace(ac.weekIndex) != "" {
		if spec.WeekIndex, err = core.ParseWeekIndex(ac.weekIndex); err != nil {
			return core.Activity{}, err
		}
	}
	rec, err := spec.Build()
	if err != nil {
		return core.Activity{}, err
	}

	return core.Activity{
		AccountID:   ac.accountID,
		Category:    core.Category(strings.TrimSpace(ac.category)),
		Name:        strings.TrimSpace(ac.name),
		Description: strings.TrimSpace(ac.description),
		Location:    strings.TrimSpace(ac.location),
		Expense:     expense,
		StartDate:   start,
		EndDate:     end,
		Recurrence:  rec,
	}, nil
}

func (ac *activityAddCmd) run(cmd *cobra.Command, _ []string) error {
	ac.intervalSet = cmd.Flags().Changed("interval")
	a, err := ac.activity()
	if err != nil {
		return err
	}
	return ac.cli.withApp(cmd, func(ctx context.Context, app *App) error {
		saved, err := app.Activities.Create(ctx, a)
		if err != nil {
			return err
		}
		return ac.cli.reporter.Line("Created activity %d (%s, %s) for account %d",
			saved.ID, saved.Recurrence.Kind(), saved.Expense, saved.AccountID)
	})
}

func (lc *activityListCmd) run(cmd *cobra.Command, _ []string) error {
	return lc.cli.withApp(cmd, func(ctx context.Context, app *App) error {
		items, err := app.Activities.List(ctx, lc.accountID, lc.offset, lc.limit)
		if err != nil {
			return err
		}
		return lc.cli.reporter.Activities(items)
	})
}

type snapshotCmd struct {
	cli        *CLI
	accountIDs []int64
}

func (c *CLI) newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Compute or show month-to-date spending snapshots",
	}

	refresh := &snapshotCmd{cli: c}
	refreshCmd := &cobra.Command{
		Use:   "refresh",
		Short: "Recompute and store the current month's snapshot",
		Args:  cobra.NoArgs,
		RunE:  refresh.refresh,
	}
	refreshCmd.Flags().Int64SliceVar(&refresh.accountIDs, "account", nil, "Account IDs (repeatable)")
	_ = refreshCmd.MarkFlagRequired("account")

	show := &snapshotCmd{cli: c}
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the latest stored snapshot",
		Args:  cobra.NoArgs,
		RunE:  show.show,
	}
	showCmd.Flags().Int64SliceVar(&show.accountIDs, "account", nil, "Account ID")
	_ = showCmd.MarkFlagRequired("account")

	cmd.AddCommand(refreshCmd, showCmd)
	return cmd
}

func (sc *snapshotCmd) refresh(cmd *cobra.Command, _ []string) error {
	return sc.cli.withApp(cmd, func(ctx context.Context, app *App) error {
		w := app.SnapshotWorker(sc.cli.opts.Now)
		ok := w.RefreshAll(ctx, sc.accountIDs)
		if err := sc.cli.reporter.Line("Refreshed %d of %d accounts", ok, len(sc.accountIDs)); err != nil {
			return err
		}
		if ok < len(sc.accountIDs) {
			return fmt.Errorf("%d snapshot refreshes failed", len(sc.accountIDs)-ok)
		}
		return nil
	})
}

func (sc *snapshotCmd) show(cmd *cobra.Command, _ []string) error {
	return sc.cli.withApp(cmd, func(ctx context.Context, app *App) error {
		for _, id := range sc.accountIDs {
			s, err := app.Store.LatestSnapshot(ctx, id)
			if err != nil {
				return fmt.Errorf("account %d: %w", id, err)
			}
			err = sc.cli.reporter.Snapshot(SnapshotView{
				AccountID:  s.AccountID,
				Year:       s.Year,
				Month:      s.Month,
				AsOf:       s.AsOf.String(),
				Total:      s.Total.String(),
				Categories: categoryViews(s.ByCategory),
				ComputedAt: s.ComputedAt.UTC().Format(time.RFC3339),
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

var errNoMigrations = errors.New("memory backend has no schema")

func (c *CLI) newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations to the configured database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.opts.LoadConfig()
			if err != nil {
				return err
			}
			if err := runMigrations(cfg); err != nil {
				if errors.Is(err, errNoMigrations) {
					return c.reporter.Line("Nothing to migrate: %v", err)
				}
				return err
			}
			return c.reporter.Line("Migrations applied to %s backend", cfg.DataBackend)
		},
	}
}

func runMigrations(cfg *config.Config) error {
	switch cfg.DataBackend {
	case config.BackendSQLite:
		return storage.RunMigrations(cfg.SQLiteDBPath)
	case config.BackendPostgres:
		return postgres.RunMigrations(cfg.PostgresURL)
	default:
		return errNoMigrations
	}
}
