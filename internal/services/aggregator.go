package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"spending/internal/core"
)

// DefaultParallelThreshold is the candidate count above which aggregation is
// split across goroutines.
const DefaultParallelThreshold = 512

// Anomaly reasons reported to the AnomalyRecorder.
const (
	AnomalyUnsupported = "unsupported"
	AnomalyInvalid     = "invalid"
	AnomalyOverflow    = "overflow"
)

// AnomalyRecorder is notified when an activity cannot be counted and
// contributes nothing. Implementations must be safe for concurrent use.
type AnomalyRecorder interface {
	RecordAnomaly(kind core.RecurrenceKind, reason string)
}

// Outcome describes what an aggregation pass looked at.
type Outcome struct {
	Evaluated int // activities passed to the occurrence counter
	Skipped   int // activities excluded by the category filter
	Anomalies int // activities whose recurrence could not be counted
}

func (o Outcome) add(other Outcome) Outcome {
	return Outcome{
		Evaluated: o.Evaluated + other.Evaluated,
		Skipped:   o.Skipped + other.Skipped,
		Anomalies: o.Anomalies + other.Anomalies,
	}
}

// Aggregator sums expense x occurrences over a candidate activity set.
type Aggregator struct {
	parallelThreshold int
	workers           int
	anomalies         AnomalyRecorder
}

// NewAggregator creates an aggregator. A threshold <= 0 uses the default;
// recorder may be nil.
func NewAggregator(parallelThreshold int, recorder AnomalyRecorder) *Aggregator {
	if parallelThreshold <= 0 {
		parallelThreshold = DefaultParallelThreshold
	}
	return &Aggregator{
		parallelThreshold: parallelThreshold,
		workers:           runtime.GOMAXPROCS(0),
		anomalies:         recorder,
	}
}

type partial struct {
	total      core.Money
	byCategory map[core.Category]int64
	outcome    Outcome
	skipped    []skippedActivity
	overflowed bool
}

type skippedActivity struct {
	activity core.Activity
	err      error
}

// Total returns the spend of the activities matching category (empty matches
// all) inside w. Unknown or malformed recurrences, and activities whose
// contribution would overflow the total, contribute zero and are reported as
// anomalies; the only error is context cancellation.
func (a *Aggregator) Total(ctx context.Context, activities []core.Activity, w core.Window, category core.Category) (core.Money, Outcome, error) {
	p, err := a.run(ctx, activities, w, category, false)
	if err != nil {
		return core.Money{}, Outcome{}, err
	}
	return p.total, p.outcome, nil
}

// ByCategory returns per-category spend inside w, sorted by category name.
// Every category with at least one evaluated activity is listed, even at zero.
func (a *Aggregator) ByCategory(ctx context.Context, activities []core.Activity, w core.Window) ([]core.CategoryAmount, Outcome, error) {
	p, err := a.run(ctx, activities, w, "", true)
	if err != nil {
		return nil, Outcome{}, err
	}
	out := make([]core.CategoryAmount, 0, len(p.byCategory))
	for c, cents := range p.byCategory {
		out = append(out, core.CategoryAmount{Category: c, Amount: core.Money{Cents: cents}})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, p.outcome, nil
}

func (a *Aggregator) run(ctx context.Context, activities []core.Activity, w core.Window, category core.Category, split bool) (partial, error) {
	if w.IsEmpty() {
		return partial{byCategory: map[core.Category]int64{}}, nil
	}
	p, err := a.sum(ctx, activities, w, category, split)
	if err != nil {
		return partial{}, err
	}
	for _, s := range p.skipped {
		a.recordAnomaly(ctx, s.activity, s.err)
	}
	return p, nil
}

func (a *Aggregator) sum(ctx context.Context, activities []core.Activity, w core.Window, category core.Category, split bool) (partial, error) {
	if len(activities) < a.parallelThreshold || a.workers < 2 {
		if err := ctx.Err(); err != nil {
			return partial{}, err
		}
		return a.accumulate(activities, w, category, split), nil
	}

	chunkSize := (len(activities) + a.workers - 1) / a.workers
	parts := make([]partial, 0, a.workers)
	for start := 0; start < len(activities); start += chunkSize {
		parts = append(parts, partial{})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i := range parts {
		i := i
		start := i * chunkSize
		end := min(start+chunkSize, len(activities))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			parts[i] = a.accumulate(activities[start:end], w, category, split)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return partial{}, err
	}

	// Integer cents make the merge order irrelevant unless the sum overflows.
	// Which activity gets skipped then depends on order, so redo the pass
	// sequentially to match the single-goroutine result.
	merged := partial{byCategory: map[core.Category]int64{}}
	for _, p := range parts {
		total, ok := merged.total.CheckedAdd(p.total)
		if !ok || p.overflowed {
			return a.accumulate(activities, w, category, split), nil
		}
		merged.total = total
		merged.outcome = merged.outcome.add(p.outcome)
		merged.skipped = append(merged.skipped, p.skipped...)
		for c, cents := range p.byCategory {
			merged.byCategory[c] += cents
		}
	}
	return merged, nil
}

func (a *Aggregator) accumulate(activities []core.Activity, w core.Window, category core.Category, split bool) partial {
	p := partial{byCategory: map[core.Category]int64{}}
	for _, act := range activities {
		if category != "" && act.Category != category {
			p.outcome.Skipped++
			continue
		}
		p.outcome.Evaluated++
		if split {
			if _, seen := p.byCategory[act.Category]; !seen {
				p.byCategory[act.Category] = 0
			}
		}

		n, err := CountOccurrences(act.Recurrence, act.StartDate, act.EndDate, w)
		if err != nil {
			p.skip(act, err)
			continue
		}
		amount, ok := act.Expense.Times(n)
		if !ok {
			p.skip(act, fmt.Errorf("%w: %s x %d occurrences", core.ErrAmountOverflow, act.Expense, n))
			continue
		}
		total, ok := p.total.CheckedAdd(amount)
		if !ok {
			p.overflowed = true
			p.skip(act, fmt.Errorf("%w: adding %s to %s", core.ErrAmountOverflow, amount, p.total))
			continue
		}

		p.total = total
		if split {
			p.byCategory[act.Category] += amount.Cents
		}
	}
	return p
}

func (p *partial) skip(act core.Activity, err error) {
	p.outcome.Anomalies++
	p.skipped = append(p.skipped, skippedActivity{activity: act, err: err})
}

func (a *Aggregator) recordAnomaly(ctx context.Context, act core.Activity, err error) {
	reason := AnomalyInvalid
	switch {
	case errors.Is(err, core.ErrUnsupportedVariant):
		reason = AnomalyUnsupported
	case errors.Is(err, core.ErrAmountOverflow):
		reason = AnomalyOverflow
	}
	var kind core.RecurrenceKind
	if act.Recurrence != nil {
		kind = act.Recurrence.Kind()
	}

	slog.WarnContext(ctx, "Skipping activity that cannot be counted",
		"activity_id", act.ID,
		"account_id", act.AccountID,
		"recurrence_kind", kind,
		"reason", reason,
		"error", err)

	if a.anomalies != nil {
		a.anomalies.RecordAnomaly(kind, reason)
	}
}
