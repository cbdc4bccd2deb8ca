// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for occurrence counting. Each
// recurrence kind has its own counter that works out, analytically, how many
// occurrences of a pattern fall inside a date span.
package services

import (
	"fmt"

	"spending/internal/core"
)

// OccurrenceCounter is the strategy interface for counting occurrences.
//
// span is already the overlap of the activity's [start, end] and the query
// window, so span.Start is never before anchor. Implementations must not
// iterate over days; the cost is constant per pattern parameter.
type OccurrenceCounter interface {
	Count(r core.Recurrence, anchor core.Date, span core.Window) int64
}

// OnceCounter counts the anchor date itself.
type OnceCounter struct{}

func (OnceCounter) Count(_ core.Recurrence, anchor core.Date, span core.Window) int64 {
	if span.Contains(anchor) {
		return 1
	}
	return 0
}

// DailyCounter counts every k-th day from the anchor.
type DailyCounter struct{}

func (DailyCounter) Count(r core.Recurrence, anchor core.Date, span core.Window) int64 {
	p, ok := r.(core.DailyRecurrence)
	if !ok {
		return 0
	}
	k := int64(p.Interval)
	a, lo, hi := anchor.Ordinal(), span.Start.Ordinal(), span.End.Ordinal()

	first := a + ceilDiv(lo-a, k)*k
	if first > hi {
		return 0
	}
	return (hi-first)/k + 1
}

// WeeklyCounter counts the selected weekdays of every k-th week, weeks
// starting on Monday and numbered from the week holding the anchor.
type WeeklyCounter struct{}

func (WeeklyCounter) Count(r core.Recurrence, anchor core.Date, span core.Window) int64 {
	p, ok := r.(core.WeeklyRecurrence)
	if !ok {
		return 0
	}
	k := int64(p.Interval)
	weekStart := anchor.Ordinal() - int64(core.IsoWeekday(anchor.Weekday()))
	lo, hi := span.Start.Ordinal(), span.End.Ordinal()
	loDay := int64(core.IsoWeekday(span.Start.Weekday()))

	var n int64
	for _, wd := range p.Days.List() {
		d := lo + floorMod(int64(core.IsoWeekday(wd))-loDay, 7)
		if off := floorMod(floorDiv(d-weekStart, 7), k); off != 0 {
			d += 7 * (k - off)
		}
		if d > hi {
			continue
		}
		n += (hi-d)/(7*k) + 1
	}
	return n
}

// MonthlyAbsoluteCounter counts a fixed day of every k-th month. Days past the
// end of a short month clamp to its last day.
type MonthlyAbsoluteCounter struct{}

func (MonthlyAbsoluteCounter) Count(r core.Recurrence, anchor core.Date, span core.Window) int64 {
	p, ok := r.(core.MonthlyAbsoluteRecurrence)
	if !ok {
		return 0
	}
	return countPeriods(monthIndex(anchor), monthIndex(span.Start), monthIndex(span.End), int64(p.Interval), span,
		func(period int64) core.Date {
			y, m := monthOf(period)
			return core.ClampedDate(y, m, p.Day)
		})
}

// MonthlyRelativeCounter counts "the Nth <weekday>" of every k-th month,
// once per selected weekday.
type MonthlyRelativeCounter struct{}

func (MonthlyRelativeCounter) Count(r core.Recurrence, anchor core.Date, span core.Window) int64 {
	p, ok := r.(core.MonthlyRelativeRecurrence)
	if !ok {
		return 0
	}
	var n int64
	for _, wd := range p.Days.List() {
		n += countPeriods(monthIndex(anchor), monthIndex(span.Start), monthIndex(span.End), int64(p.Interval), span,
			func(period int64) core.Date {
				y, m := monthOf(period)
				return core.NthWeekday(y, m, p.Index, wd)
			})
	}
	return n
}

// YearlyAbsoluteCounter counts a fixed month and day of every k-th year.
// February 29 clamps to February 28 in common years.
type YearlyAbsoluteCounter struct{}

func (YearlyAbsoluteCounter) Count(r core.Recurrence, anchor core.Date, span core.Window) int64 {
	p, ok := r.(core.YearlyAbsoluteRecurrence)
	if !ok {
		return 0
	}
	return countPeriods(int64(anchor.Year()), int64(span.Start.Year()), int64(span.End.Year()), int64(p.Interval), span,
		func(year int64) core.Date {
			return core.ClampedDate(int(year), p.Month, p.Day)
		})
}

// YearlyRelativeCounter counts "the Nth <weekday> of <month>" of every k-th year.
type YearlyRelativeCounter struct{}

func (YearlyRelativeCounter) Count(r core.Recurrence, anchor core.Date, span core.Window) int64 {
	p, ok := r.(core.YearlyRelativeRecurrence)
	if !ok {
		return 0
	}
	var n int64
	for _, wd := range p.Days.List() {
		n += countPeriods(int64(anchor.Year()), int64(span.Start.Year()), int64(span.End.Year()), int64(p.Interval), span,
			func(year int64) core.Date {
				return core.NthWeekday(int(year), p.Month, p.Index, wd)
			})
	}
	return n
}

// countPeriods counts periods (months or years) in [loPeriod, hiPeriod] that are
// a multiple of k away from anchorPeriod and whose candidate date lies in span.
// Only the first and last qualifying periods can straddle the span edges; every
// period between them lies wholly inside span.
func countPeriods(anchorPeriod, loPeriod, hiPeriod, k int64, span core.Window, candidate func(int64) core.Date) int64 {
	first := loPeriod
	if off := floorMod(first-anchorPeriod, k); off != 0 {
		first += k - off
	}
	if first > hiPeriod {
		return 0
	}
	last := first + (hiPeriod-first)/k*k

	n := (last-first)/k + 1
	if !span.Contains(candidate(first)) {
		n--
	}
	if last != first && !span.Contains(candidate(last)) {
		n--
	}
	return n
}

// monthIndex numbers months continuously across years.
func monthIndex(d core.Date) int64 {
	return int64(d.Year())*12 + int64(d.Month()-1)
}

func monthOf(period int64) (year, month int) {
	return int(floorDiv(period, 12)), int(floorMod(period, 12)) + 1
}

// occurrenceCounters maps recurrence kinds to their counters.
var occurrenceCounters = map[core.RecurrenceKind]OccurrenceCounter{
	core.Once:            OnceCounter{},
	core.Daily:           DailyCounter{},
	core.Weekly:          WeeklyCounter{},
	core.MonthlyAbsolute: MonthlyAbsoluteCounter{},
	core.MonthlyRelative: MonthlyRelativeCounter{},
	core.YearlyAbsolute:  YearlyAbsoluteCounter{},
	core.YearlyRelative:  YearlyRelativeCounter{},
}

// GetOccurrenceCounter returns the counter for a recurrence kind.
// Returns ErrUnsupportedVariant if the kind is not registered.
func GetOccurrenceCounter(kind core.RecurrenceKind) (OccurrenceCounter, error) {
	counter, ok := occurrenceCounters[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnsupportedVariant, kind)
	}
	return counter, nil
}

// CountOccurrences returns how many occurrences of r, anchored at start and
// ending at end (inclusive, zero for open ended), fall inside w.
//
// Day queries use a one-day window; there is no separate membership test.
// A pattern that fails validation, including UnsupportedRecurrence, yields 0
// and the validation error so the caller can record the anomaly.
func CountOccurrences(r core.Recurrence, start, end core.Date, w core.Window) (int64, error) {
	if r == nil {
		return 0, fmt.Errorf("%w: missing recurrence", core.ErrUnsupportedVariant)
	}
	if err := r.Validate(); err != nil {
		return 0, err
	}
	counter, err := GetOccurrenceCounter(r.Kind())
	if err != nil {
		return 0, err
	}
	span := overlap(start, end, w)
	if span.IsEmpty() {
		return 0, nil
	}
	return counter.Count(r, start, span), nil
}

// overlap intersects [start, end] with w. A zero end means open ended.
func overlap(start, end core.Date, w core.Window) core.Window {
	if w.IsEmpty() || start.IsEmpty() {
		return core.Window{}
	}
	hi := w.End
	if !end.IsEmpty() {
		hi = core.MinDate(end, hi)
	}
	return core.NewWindow(core.MaxDate(start, w.Start), hi)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func floorMod(a, b int64) int64 {
	return a - floorDiv(a, b)*b
}

func ceilDiv(a, b int64) int64 {
	return -floorDiv(-a, b)
}
