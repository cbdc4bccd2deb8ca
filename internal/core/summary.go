package core

import "time"

// SpendSummary echoes the requested granularity alongside the total.
// Month and Day are nil when the query did not ask for them.
type SpendSummary struct {
	Year  int
	Month *int
	Day   *int
	Total Money
}

// NewSpendSummary fills only the fields that g asks for.
func NewSpendSummary(g Granularity, y, m, d int, total Money) SpendSummary {
	s := SpendSummary{Year: y, Total: total}
	if g == GranularityMonth || g == GranularityDay {
		s.Month = &m
	}
	if g == GranularityDay {
		s.Day = &d
	}
	return s
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Category Category
	Amount   Money
}

// MonthlySpending is one calendar month of a spending trend.
type MonthlySpending struct {
	Year       int
	Month      int // 1-12
	Total      Money
	ByCategory []CategoryAmount
}

// SpendSnapshot is a month-to-date figure computed by the worker after an
// activity change.
type SpendSnapshot struct {
	AccountID  int64
	Year       int
	Month      int // 1-12
	AsOf       Date
	Total      Money
	ByCategory []CategoryAmount
	ComputedAt time.Time
}
