package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

type (
	// Date is a calendar day, always held at midnight UTC.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Category tags an activity for filtering (e.g. "housing", "food").
	Category string

	Activity struct {
		ID          int64 // Database ID, zero until persisted
		AccountID   int64
		Category    Category
		Name        string
		Description string
		Location    string
		Expense     Money // cost of a single occurrence
		StartDate   Date  // anchor, first possible occurrence
		EndDate     Date  // zero means open ended; inclusive otherwise
		Recurrence  Recurrence
	}
)

var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidPattern     = errors.New("invalid recurrence pattern")
	ErrUnsupportedVariant = errors.New("unsupported recurrence variant")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyName          = errors.New("empty name")
	ErrEmptyCategory      = errors.New("empty category")
	ErrInvalidAccount     = errors.New("invalid account id")
	ErrEndBeforeStart     = errors.New("end date before start date")
	ErrTextTooLong        = errors.New("text too long")
	ErrAmountOverflow     = errors.New("amount overflows int64 cents")
)

const maxTextLength = 255

// NewDate creates a new Date from year, month, day. Out of range values
// normalize the way time.Date does; use MakeDate to reject them instead.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// MakeDate builds a Date and fails with ErrInvalidDate when (year, month, day)
// is not a real calendar day, e.g. February 30.
func MakeDate(year, month, day int) (Date, error) {
	if month < 1 || month > 12 {
		return Date{}, fmt.Errorf("%w: month %d", ErrInvalidDate, month)
	}
	if day < 1 || day > DaysIn(year, month) {
		return Date{}, fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidDate, year, month, day)
	}
	return NewDate(year, month, day), nil
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// DateOf truncates a timestamp to its calendar day in the timestamp's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// DaysIn returns the number of days in the given month.
func DaysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (d Date) Day() int {
	return d.Time.Day()
}

func (d Date) Month() int {
	return int(d.Time.Month())
}

func (d Date) Year() int {
	return d.Time.Year()
}

// IsEmpty returns true if the date is zero (for optional dates)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// Ordinal is the number of days since 1970-01-01; dates compare and subtract as plain integers.
func (d Date) Ordinal() int64 {
	return floorDiv(d.Unix(), 86400)
}

// AddDays returns the date n days later (earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }
func (d Date) Equal(o Date) bool  { return d.Time.Equal(o.Time) }

// MinDate and MaxDate pick the earlier/later of two dates.
func MinDate(a, b Date) Date {
	if b.Before(a) {
		return b
	}
	return a
}

func MaxDate(a, b Date) Date {
	if b.After(a) {
		return b
	}
	return a
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(string(c)) == "" {
		return ErrEmptyCategory
	}
	if len(c) > maxTextLength {
		return fmt.Errorf("%w: category (max %d characters)", ErrTextTooLong, maxTextLength)
	}
	return nil
}

func (a Activity) Validate() error {
	if a.AccountID <= 0 {
		return ErrInvalidAccount
	}
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if len(a.Name) > maxTextLength {
		return fmt.Errorf("%w: name (max %d characters)", ErrTextTooLong, maxTextLength)
	}
	if len(a.Description) > maxTextLength {
		return fmt.Errorf("%w: description (max %d characters)", ErrTextTooLong, maxTextLength)
	}
	if len(a.Location) > maxTextLength {
		return fmt.Errorf("%w: location (max %d characters)", ErrTextTooLong, maxTextLength)
	}
	if err := a.Category.Validate(); err != nil {
		return err
	}
	if err := a.Expense.Validate(); err != nil {
		return err
	}
	if err := a.StartDate.Validate(); err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}
	if !a.EndDate.IsEmpty() && a.EndDate.Before(a.StartDate) {
		return ErrEndBeforeStart
	}
	if a.Recurrence == nil {
		return fmt.Errorf("%w: missing recurrence", ErrInvalidPattern)
	}
	return a.Recurrence.Validate()
}

// Overlaps reports whether [StartDate, EndDate] intersects the window.
// It is the coarse predicate storage backends apply before aggregation.
func (a Activity) Overlaps(w Window) bool {
	if w.IsEmpty() {
		return false
	}
	if a.StartDate.After(w.End) {
		return false
	}
	return a.EndDate.IsEmpty() || !a.EndDate.Before(w.Start)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int64) int64 {
	return a - floorDiv(a, b)*b
}
