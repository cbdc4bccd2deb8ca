package core

import (
	"errors"
	"testing"
	"time"
)

func TestRecurrenceSpecBuild(t *testing.T) {
	mon := NewWeekdays(time.Monday)

	tests := []struct {
		name    string
		spec    RecurrenceSpec
		want    Recurrence
		wantErr error
	}{
		{name: "once", spec: RecurrenceSpec{Kind: Once}, want: OnceRecurrence{}},
		{name: "daily", spec: RecurrenceSpec{Kind: Daily, Interval: 2}, want: DailyRecurrence{Interval: 2}},
		{name: "weekly", spec: RecurrenceSpec{Kind: Weekly, Interval: 1, Weekdays: mon}, want: WeeklyRecurrence{Interval: 1, Days: mon}},
		{name: "monthly absolute", spec: RecurrenceSpec{Kind: MonthlyAbsolute, Interval: 1, DayOfMonth: 31}, want: MonthlyAbsoluteRecurrence{Interval: 1, Day: 31}},
		{name: "monthly relative", spec: RecurrenceSpec{Kind: MonthlyRelative, Interval: 1, WeekIndex: LastWeek, Weekdays: mon}, want: MonthlyRelativeRecurrence{Interval: 1, Index: LastWeek, Days: mon}},
		{name: "yearly absolute", spec: RecurrenceSpec{Kind: YearlyAbsolute, Interval: 1, Month: 2, DayOfMonth: 29}, want: YearlyAbsoluteRecurrence{Interval: 1, Month: 2, Day: 29}},
		{name: "yearly relative", spec: RecurrenceSpec{Kind: YearlyRelative, Interval: 3, Month: 11, WeekIndex: FourthWeek, Weekdays: NewWeekdays(time.Thursday)}, want: YearlyRelativeRecurrence{Interval: 3, Month: 11, Index: FourthWeek, Days: NewWeekdays(time.Thursday)}},
		{name: "zero interval", spec: RecurrenceSpec{Kind: Daily}, wantErr: ErrInvalidPattern},
		{name: "empty weekdays", spec: RecurrenceSpec{Kind: Weekly, Interval: 1}, wantErr: ErrInvalidPattern},
		{name: "day 32", spec: RecurrenceSpec{Kind: MonthlyAbsolute, Interval: 1, DayOfMonth: 32}, wantErr: ErrInvalidPattern},
		{name: "month 13", spec: RecurrenceSpec{Kind: YearlyAbsolute, Interval: 1, Month: 13, DayOfMonth: 1}, wantErr: ErrInvalidPattern},
		{name: "bad week index", spec: RecurrenceSpec{Kind: MonthlyRelative, Interval: 1, WeekIndex: 6, Weekdays: mon}, wantErr: ErrInvalidPattern},
		{name: "unknown kind", spec: RecurrenceSpec{Kind: "hourly", Interval: 1}, wantErr: ErrInvalidPattern},
		{name: "once with interval", spec: RecurrenceSpec{Kind: Once, Interval: 1}, wantErr: ErrInvalidPattern},
		{name: "daily with weekdays", spec: RecurrenceSpec{Kind: Daily, Interval: 1, Weekdays: mon}, wantErr: ErrInvalidPattern},
		{name: "daily with day of month", spec: RecurrenceSpec{Kind: Daily, Interval: 1, DayOfMonth: 5}, wantErr: ErrInvalidPattern},
		{name: "weekly with week index", spec: RecurrenceSpec{Kind: Weekly, Interval: 1, Weekdays: mon, WeekIndex: FirstWeek}, wantErr: ErrInvalidPattern},
		{name: "monthly absolute with weekdays", spec: RecurrenceSpec{Kind: MonthlyAbsolute, Interval: 1, DayOfMonth: 3, Weekdays: mon}, wantErr: ErrInvalidPattern},
		{name: "monthly relative with month", spec: RecurrenceSpec{Kind: MonthlyRelative, Interval: 1, WeekIndex: LastWeek, Weekdays: mon, Month: 2}, wantErr: ErrInvalidPattern},
		{name: "yearly relative with day of month", spec: RecurrenceSpec{Kind: YearlyRelative, Interval: 1, Month: 5, WeekIndex: LastWeek, Weekdays: mon, DayOfMonth: 9}, wantErr: ErrInvalidPattern},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.spec.Build()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Build() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Build() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Build() = %#v, want %#v", got, tt.want)
			}
			if back := SpecOf(got); back != tt.spec {
				t.Errorf("SpecOf(Build()) = %#v, want %#v", back, tt.spec)
			}
		})
	}
}

func TestDecodeRecurrenceUnknownKind(t *testing.T) {
	r, err := DecodeRecurrence(RecurrenceSpec{Kind: "fortnightly"})
	if err != nil {
		t.Fatalf("DecodeRecurrence() unexpected error: %v", err)
	}
	u, ok := r.(UnsupportedRecurrence)
	if !ok || u.Tag != "fortnightly" {
		t.Fatalf("DecodeRecurrence() = %#v, want UnsupportedRecurrence", r)
	}
	if !errors.Is(r.Validate(), ErrUnsupportedVariant) {
		t.Errorf("Validate() should report ErrUnsupportedVariant")
	}

	r, err = DecodeRecurrence(RecurrenceSpec{Kind: Daily})
	if !errors.Is(err, ErrInvalidPattern) {
		t.Errorf("known kind with bad params should fail, got %v", err)
	}
	if r != (DailyRecurrence{}) {
		t.Errorf("DecodeRecurrence() = %#v, want the invalid DailyRecurrence", r)
	}

	// Stored rows are not held to the input rules on foreign fields.
	r, err = DecodeRecurrence(RecurrenceSpec{Kind: Daily, Interval: 2, DayOfMonth: 9})
	if err != nil || r != (DailyRecurrence{Interval: 2}) {
		t.Errorf("DecodeRecurrence() = %#v, %v", r, err)
	}
}

func TestWeekdays(t *testing.T) {
	w, err := ParseWeekdays([]string{"Sunday", "mon", " WED "})
	if err != nil {
		t.Fatal(err)
	}
	if !w.Has(time.Sunday) || !w.Has(time.Monday) || !w.Has(time.Wednesday) || w.Has(time.Tuesday) {
		t.Errorf("ParseWeekdays() = %07b", uint8(w))
	}
	names := w.Names()
	want := []string{"mon", "wed", "sun"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
	if _, err := ParseWeekdays([]string{"funday"}); !errors.Is(err, ErrInvalidPattern) {
		t.Errorf("ParseWeekdays(funday) error = %v", err)
	}
}

func TestParseWeekIndex(t *testing.T) {
	for _, s := range []string{"first", "second", "third", "fourth", "last"} {
		i, err := ParseWeekIndex(s)
		if err != nil {
			t.Fatalf("ParseWeekIndex(%q): %v", s, err)
		}
		if i.String() != s {
			t.Errorf("round trip %q -> %q", s, i.String())
		}
	}
	if _, err := ParseWeekIndex("fifth"); !errors.Is(err, ErrInvalidPattern) {
		t.Errorf("ParseWeekIndex(fifth) error = %v", err)
	}
}

func TestNthWeekday(t *testing.T) {
	tests := []struct {
		name  string
		y, m  int
		idx   WeekIndex
		wd    time.Weekday
		want  Date
	}{
		{"first monday jan 2024", 2024, 1, FirstWeek, time.Monday, NewDate(2024, 1, 1)},
		{"second tuesday jan 2024", 2024, 1, SecondWeek, time.Tuesday, NewDate(2024, 1, 9)},
		{"fourth thursday nov 2024", 2024, 11, FourthWeek, time.Thursday, NewDate(2024, 11, 28)},
		{"last friday feb 2024", 2024, 2, LastWeek, time.Friday, NewDate(2024, 2, 23)},
		{"last thursday feb 2024", 2024, 2, LastWeek, time.Thursday, NewDate(2024, 2, 29)},
		{"first sunday sep 2024", 2024, 9, FirstWeek, time.Sunday, NewDate(2024, 9, 1)},
		{"last sunday mar 2024", 2024, 3, LastWeek, time.Sunday, NewDate(2024, 3, 31)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NthWeekday(tt.y, tt.m, tt.idx, tt.wd)
			if !got.Equal(tt.want) {
				t.Errorf("NthWeekday() = %s, want %s", got, tt.want)
			}
			if got.Weekday() != tt.wd {
				t.Errorf("NthWeekday() landed on %s", got.Weekday())
			}
		})
	}
}

func TestClampedDate(t *testing.T) {
	if got := ClampedDate(2024, 2, 31); !got.Equal(NewDate(2024, 2, 29)) {
		t.Errorf("ClampedDate(2024-02-31) = %s", got)
	}
	if got := ClampedDate(2023, 2, 29); !got.Equal(NewDate(2023, 2, 28)) {
		t.Errorf("ClampedDate(2023-02-29) = %s", got)
	}
	if got := ClampedDate(2024, 4, 31); !got.Equal(NewDate(2024, 4, 30)) {
		t.Errorf("ClampedDate(2024-04-31) = %s", got)
	}
	if got := ClampedDate(2024, 5, 15); !got.Equal(NewDate(2024, 5, 15)) {
		t.Errorf("ClampedDate(2024-05-15) = %s", got)
	}
}
