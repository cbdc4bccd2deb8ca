package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	Once            RecurrenceKind = "once"
	Daily           RecurrenceKind = "daily"
	Weekly          RecurrenceKind = "weekly"
	MonthlyAbsolute RecurrenceKind = "monthly_absolute"
	MonthlyRelative RecurrenceKind = "monthly_relative"
	YearlyAbsolute  RecurrenceKind = "yearly_absolute"
	YearlyRelative  RecurrenceKind = "yearly_relative"
)

const (
	FirstWeek WeekIndex = iota + 1
	SecondWeek
	ThirdWeek
	FourthWeek
	LastWeek
)

type (
	RecurrenceKind string

	// WeekIndex selects "the Nth <weekday>" of a month.
	WeekIndex int

	// Weekdays is a set of days of the week, one bit per time.Weekday.
	Weekdays uint8

	// Recurrence is one of the concrete pattern types below. Each variant
	// carries exactly the parameters it needs.
	Recurrence interface {
		Kind() RecurrenceKind
		Validate() error
		recurrence()
	}

	OnceRecurrence struct{}

	DailyRecurrence struct {
		Interval int
	}

	WeeklyRecurrence struct {
		Interval int
		Days     Weekdays
	}

	MonthlyAbsoluteRecurrence struct {
		Interval int
		Day      int // 1-31, clamped to the month length
	}

	MonthlyRelativeRecurrence struct {
		Interval int
		Index    WeekIndex
		Days     Weekdays
	}

	YearlyAbsoluteRecurrence struct {
		Interval int
		Month    int // 1-12
		Day      int // 1-31, clamped to the month length
	}

	YearlyRelativeRecurrence struct {
		Interval int
		Month    int
		Index    WeekIndex
		Days     Weekdays
	}

	// UnsupportedRecurrence stands in for a stored tag this build does not know.
	// It never validates and always counts zero occurrences.
	UnsupportedRecurrence struct {
		Tag string
	}
)

func (OnceRecurrence) Kind() RecurrenceKind            { return Once }
func (DailyRecurrence) Kind() RecurrenceKind           { return Daily }
func (WeeklyRecurrence) Kind() RecurrenceKind          { return Weekly }
func (MonthlyAbsoluteRecurrence) Kind() RecurrenceKind { return MonthlyAbsolute }
func (MonthlyRelativeRecurrence) Kind() RecurrenceKind { return MonthlyRelative }
func (YearlyAbsoluteRecurrence) Kind() RecurrenceKind  { return YearlyAbsolute }
func (YearlyRelativeRecurrence) Kind() RecurrenceKind  { return YearlyRelative }
func (u UnsupportedRecurrence) Kind() RecurrenceKind   { return RecurrenceKind(u.Tag) }

func (OnceRecurrence) recurrence()            {}
func (DailyRecurrence) recurrence()           {}
func (WeeklyRecurrence) recurrence()          {}
func (MonthlyAbsoluteRecurrence) recurrence() {}
func (MonthlyRelativeRecurrence) recurrence() {}
func (YearlyAbsoluteRecurrence) recurrence()  {}
func (YearlyRelativeRecurrence) recurrence()  {}
func (UnsupportedRecurrence) recurrence()     {}

func (OnceRecurrence) Validate() error {
	return nil
}

func (r DailyRecurrence) Validate() error {
	return validateInterval(r.Interval)
}

func (r WeeklyRecurrence) Validate() error {
	if err := validateInterval(r.Interval); err != nil {
		return err
	}
	return validateWeekdays(r.Days)
}

func (r MonthlyAbsoluteRecurrence) Validate() error {
	if err := validateInterval(r.Interval); err != nil {
		return err
	}
	return validateDayOfMonth(r.Day)
}

func (r MonthlyRelativeRecurrence) Validate() error {
	if err := validateInterval(r.Interval); err != nil {
		return err
	}
	if err := r.Index.Validate(); err != nil {
		return err
	}
	return validateWeekdays(r.Days)
}

func (r YearlyAbsoluteRecurrence) Validate() error {
	if err := validateInterval(r.Interval); err != nil {
		return err
	}
	if err := validateMonth(r.Month); err != nil {
		return err
	}
	return validateDayOfMonth(r.Day)
}

func (r YearlyRelativeRecurrence) Validate() error {
	if err := validateInterval(r.Interval); err != nil {
		return err
	}
	if err := validateMonth(r.Month); err != nil {
		return err
	}
	if err := r.Index.Validate(); err != nil {
		return err
	}
	return validateWeekdays(r.Days)
}

func (u UnsupportedRecurrence) Validate() error {
	return fmt.Errorf("%w: %q", ErrUnsupportedVariant, u.Tag)
}

func validateInterval(k int) error {
	if k < 1 {
		return fmt.Errorf("%w: interval must be at least 1, got %d", ErrInvalidPattern, k)
	}
	return nil
}

func validateDayOfMonth(d int) error {
	if d < 1 || d > 31 {
		return fmt.Errorf("%w: day of month must be between 1 and 31, got %d", ErrInvalidPattern, d)
	}
	return nil
}

func validateMonth(m int) error {
	if m < 1 || m > 12 {
		return fmt.Errorf("%w: month must be between 1 and 12, got %d", ErrInvalidPattern, m)
	}
	return nil
}

func validateWeekdays(w Weekdays) error {
	if w.IsEmpty() {
		return fmt.Errorf("%w: at least one weekday is required", ErrInvalidPattern)
	}
	if w&^allWeekdays != 0 {
		return fmt.Errorf("%w: unknown weekday bits %#x", ErrInvalidPattern, uint8(w))
	}
	return nil
}

const allWeekdays Weekdays = 1<<7 - 1

// NewWeekdays builds a set from the given days.
func NewWeekdays(days ...time.Weekday) Weekdays {
	var w Weekdays
	for _, d := range days {
		w |= 1 << uint(d)
	}
	return w
}

func (w Weekdays) Has(d time.Weekday) bool {
	return w&(1<<uint(d)) != 0
}

func (w Weekdays) IsEmpty() bool {
	return w == 0
}

// List returns the days in the set, Monday first.
func (w Weekdays) List() []time.Weekday {
	out := make([]time.Weekday, 0, 7)
	for i := 0; i < 7; i++ {
		d := time.Weekday((i + 1) % 7)
		if w.Has(d) {
			out = append(out, d)
		}
	}
	return out
}

// Names returns lower-case three letter names, Monday first.
func (w Weekdays) Names() []string {
	days := w.List()
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = strings.ToLower(d.String()[:3])
	}
	return out
}

// ParseWeekdays accepts full or three letter English day names, case-insensitive.
func ParseWeekdays(names []string) (Weekdays, error) {
	var w Weekdays
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		found := false
		for d := time.Sunday; d <= time.Saturday; d++ {
			full := strings.ToLower(d.String())
			if n == full || n == full[:3] {
				w |= NewWeekdays(d)
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("%w: unknown weekday %q", ErrInvalidPattern, n)
		}
	}
	return w, nil
}

var weekIndexNames = map[WeekIndex]string{
	FirstWeek:  "first",
	SecondWeek: "second",
	ThirdWeek:  "third",
	FourthWeek: "fourth",
	LastWeek:   "last",
}

func (i WeekIndex) Validate() error {
	if _, ok := weekIndexNames[i]; !ok {
		return fmt.Errorf("%w: week index must be first..fourth or last, got %d", ErrInvalidPattern, int(i))
	}
	return nil
}

func (i WeekIndex) String() string {
	if n, ok := weekIndexNames[i]; ok {
		return n
	}
	return fmt.Sprintf("WeekIndex(%d)", int(i))
}

func ParseWeekIndex(s string) (WeekIndex, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range weekIndexNames {
		if n == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown week index %q", ErrInvalidPattern, s)
}

// IsoWeekday numbers days Monday=0 .. Sunday=6.
func IsoWeekday(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// NthWeekday returns the date of the idx-th (or last) given weekday in a month.
// Every month has at least four of each weekday, so the result always exists.
func NthWeekday(year, month int, idx WeekIndex, wd time.Weekday) Date {
	if idx == LastWeek {
		last := NewDate(year, month, DaysIn(year, month))
		back := floorMod(int64(IsoWeekday(last.Weekday())-IsoWeekday(wd)), 7)
		return last.AddDays(-int(back))
	}
	first := NewDate(year, month, 1)
	ahead := floorMod(int64(IsoWeekday(wd)-IsoWeekday(first.Weekday())), 7)
	return first.AddDays(int(ahead) + 7*(int(idx)-1))
}

// ClampedDate returns (year, month, day) with day clamped to the month length,
// so day 31 lands on the 30th, 29th or 28th in shorter months.
func ClampedDate(year, month, day int) Date {
	if n := DaysIn(year, month); day > n {
		day = n
	}
	return NewDate(year, month, day)
}
