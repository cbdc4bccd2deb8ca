package core

import "fmt"

// Accepted query bounds at the outer boundary.
const (
	MinQueryYear = 1800
	MaxQueryYear = 3000
)

// Granularity is the resolution of a spending query.
type Granularity string

const (
	GranularityYear  Granularity = "year"
	GranularityMonth Granularity = "month"
	GranularityDay   Granularity = "day"
)

// Window is an inclusive date range [Start, End]. The zero Window is empty and
// matches nothing; it is what a query lying entirely after the reference date
// resolves to.
type Window struct {
	Start Date
	End   Date
}

// NewWindow returns [start, end], or the empty window when end is before start.
func NewWindow(start, end Date) Window {
	if start.IsEmpty() || end.IsEmpty() || end.Before(start) {
		return Window{}
	}
	return Window{Start: start, End: end}
}

func (w Window) IsEmpty() bool {
	return w.Start.IsEmpty() || w.End.IsEmpty() || w.End.Before(w.Start)
}

// Contains reports whether d lies inside the window.
func (w Window) Contains(d Date) bool {
	return !w.IsEmpty() && !d.Before(w.Start) && !d.After(w.End)
}

// Days is the number of calendar days covered, 0 for the empty window.
func (w Window) Days() int64 {
	if w.IsEmpty() {
		return 0
	}
	return w.End.Ordinal() - w.Start.Ordinal() + 1
}

func (w Window) String() string {
	if w.IsEmpty() {
		return "[]"
	}
	return fmt.Sprintf("[%s, %s]", w.Start, w.End)
}

// ResolveYear returns the part of year y that is not after ref.
func ResolveYear(y int, ref Date) (Window, error) {
	if err := validateYear(y); err != nil {
		return Window{}, err
	}
	if y > ref.Year() {
		return Window{}, nil
	}
	end := NewDate(y, 12, 31)
	if ref.Year() == y {
		end = ref
	}
	return NewWindow(NewDate(y, 1, 1), end), nil
}

// ResolveMonth returns the part of month (y, m) that is not after ref.
func ResolveMonth(y, m int, ref Date) (Window, error) {
	if err := validateYear(y); err != nil {
		return Window{}, err
	}
	if m < 1 || m > 12 {
		return Window{}, fmt.Errorf("%w: month %d", ErrInvalidDate, m)
	}
	start := NewDate(y, m, 1)
	if start.After(ref) {
		return Window{}, nil
	}
	return NewWindow(start, MinDate(NewDate(y, m, DaysIn(y, m)), ref)), nil
}

// ResolveDay returns [d, d] for a real calendar day not after ref. February 30
// and friends fail with ErrInvalidDate; a future day resolves to the empty window.
func ResolveDay(y, m, d int, ref Date) (Window, error) {
	if err := validateYear(y); err != nil {
		return Window{}, err
	}
	day, err := MakeDate(y, m, d)
	if err != nil {
		return Window{}, err
	}
	if day.After(ref) {
		return Window{}, nil
	}
	return Window{Start: day, End: day}, nil
}

// Resolve dispatches on granularity; month and day are ignored when coarser.
func Resolve(g Granularity, y, m, d int, ref Date) (Window, error) {
	switch g {
	case GranularityYear:
		return ResolveYear(y, ref)
	case GranularityMonth:
		return ResolveMonth(y, m, ref)
	case GranularityDay:
		return ResolveDay(y, m, d, ref)
	}
	return Window{}, fmt.Errorf("unknown granularity %q", g)
}

func validateYear(y int) error {
	if y < MinQueryYear || y > MaxQueryYear {
		return fmt.Errorf("%w: year %d outside [%d, %d]", ErrInvalidDate, y, MinQueryYear, MaxQueryYear)
	}
	return nil
}
