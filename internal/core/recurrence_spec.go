package core

import (
	"fmt"
	"strings"
)

// RecurrenceSpec is the flat form of a Recurrence used for JSON bodies, CLI flags
// and table columns. Only the fields of the named kind are meaningful.
type RecurrenceSpec struct {
	Kind       RecurrenceKind
	Interval   int
	Weekdays   Weekdays
	DayOfMonth int
	Month      int
	WeekIndex  WeekIndex
}

// Build validates s and returns the matching variant. Unknown kinds and
// parameters that do not belong to the kind are rejected with ErrInvalidPattern.
func (s RecurrenceSpec) Build() (Recurrence, error) {
	r, ok := s.variant()
	if !ok {
		return nil, fmt.Errorf("%w: unknown recurrence kind %q", ErrInvalidPattern, s.Kind)
	}
	if extra := s.foreignFields(); len(extra) > 0 {
		return nil, fmt.Errorf("%w: %s does not take %s", ErrInvalidPattern, s.Kind, strings.Join(extra, ", "))
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// DecodeRecurrence turns a stored spec back into a variant. A kind this build
// does not know becomes UnsupportedRecurrence without an error. A known kind
// with invalid parameters is returned as is together with the validation
// error; counting it later fails the same validation.
func DecodeRecurrence(s RecurrenceSpec) (Recurrence, error) {
	r, ok := s.variant()
	if !ok {
		return UnsupportedRecurrence{Tag: string(s.Kind)}, nil
	}
	return r, r.Validate()
}

// foreignFields names the set parameters that the kind ignores.
func (s RecurrenceSpec) foreignFields() []string {
	var interval, weekdays, day, month, index bool
	switch s.Kind {
	case Once:
	case Daily:
		interval = true
	case Weekly:
		interval, weekdays = true, true
	case MonthlyAbsolute:
		interval, day = true, true
	case MonthlyRelative:
		interval, weekdays, index = true, true, true
	case YearlyAbsolute:
		interval, month, day = true, true, true
	case YearlyRelative:
		interval, month, weekdays, index = true, true, true, true
	}

	var extra []string
	if !interval && s.Interval != 0 {
		extra = append(extra, "interval")
	}
	if !weekdays && !s.Weekdays.IsEmpty() {
		extra = append(extra, "weekdays")
	}
	if !day && s.DayOfMonth != 0 {
		extra = append(extra, "day_of_month")
	}
	if !month && s.Month != 0 {
		extra = append(extra, "month")
	}
	if !index && s.WeekIndex != 0 {
		extra = append(extra, "week_index")
	}
	return extra
}

func (s RecurrenceSpec) variant() (Recurrence, bool) {
	switch s.Kind {
	case Once:
		return OnceRecurrence{}, true
	case Daily:
		return DailyRecurrence{Interval: s.Interval}, true
	case Weekly:
		return WeeklyRecurrence{Interval: s.Interval, Days: s.Weekdays}, true
	case MonthlyAbsolute:
		return MonthlyAbsoluteRecurrence{Interval: s.Interval, Day: s.DayOfMonth}, true
	case MonthlyRelative:
		return MonthlyRelativeRecurrence{Interval: s.Interval, Index: s.WeekIndex, Days: s.Weekdays}, true
	case YearlyAbsolute:
		return YearlyAbsoluteRecurrence{Interval: s.Interval, Month: s.Month, Day: s.DayOfMonth}, true
	case YearlyRelative:
		return YearlyRelativeRecurrence{Interval: s.Interval, Month: s.Month, Index: s.WeekIndex, Days: s.Weekdays}, true
	}
	return nil, false
}

// SpecOf flattens a variant for storage or transport.
func SpecOf(r Recurrence) RecurrenceSpec {
	switch v := r.(type) {
	case OnceRecurrence:
		return RecurrenceSpec{Kind: Once}
	case DailyRecurrence:
		return RecurrenceSpec{Kind: Daily, Interval: v.Interval}
	case WeeklyRecurrence:
		return RecurrenceSpec{Kind: Weekly, Interval: v.Interval, Weekdays: v.Days}
	case MonthlyAbsoluteRecurrence:
		return RecurrenceSpec{Kind: MonthlyAbsolute, Interval: v.Interval, DayOfMonth: v.Day}
	case MonthlyRelativeRecurrence:
		return RecurrenceSpec{Kind: MonthlyRelative, Interval: v.Interval, WeekIndex: v.Index, Weekdays: v.Days}
	case YearlyAbsoluteRecurrence:
		return RecurrenceSpec{Kind: YearlyAbsolute, Interval: v.Interval, Month: v.Month, DayOfMonth: v.Day}
	case YearlyRelativeRecurrence:
		return RecurrenceSpec{Kind: YearlyRelative, Interval: v.Interval, Month: v.Month, WeekIndex: v.Index, Weekdays: v.Days}
	case UnsupportedRecurrence:
		return RecurrenceSpec{Kind: RecurrenceKind(v.Tag)}
	case nil:
		return RecurrenceSpec{}
	}
	return RecurrenceSpec{Kind: r.Kind()}
}
