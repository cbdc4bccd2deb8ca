package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spending/internal/core"
	"spending/internal/store/memory"
)

type countingLister struct {
	inner *memory.Store
	calls int
	err   error
}

func (c *countingLister) ListCandidates(ctx context.Context, accountID int64, w core.Window, category core.Category) ([]core.Activity, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.inner.ListCandidates(ctx, accountID, w, category)
}

type fakeSpendingMetrics struct {
	aggregations int
	hits, misses int
}

func (f *fakeSpendingMetrics) ObserveAggregation(core.Granularity, int, time.Duration) {
	f.aggregations++
}

func (f *fakeSpendingMetrics) RecordCacheLookup(hit bool) {
	if hit {
		f.hits++
	} else {
		f.misses++
	}
}

func seededStore() *memory.Store {
	return memory.New(
		core.Activity{AccountID: 1, Category: "housing", Name: "Rent", Expense: core.Money{Cents: 100000},
			StartDate: d(2023, 1, 1), Recurrence: core.MonthlyAbsoluteRecurrence{Interval: 1, Day: 1}},
		core.Activity{AccountID: 1, Category: "food", Name: "Lunch", Expense: core.Money{Cents: 1250},
			StartDate: d(2024, 1, 1), Recurrence: core.WeeklyRecurrence{Interval: 1, Days: core.NewWeekdays(time.Monday, time.Wednesday)}},
		core.Activity{AccountID: 1, Category: "food", Name: "Party", Expense: core.Money{Cents: 5000},
			StartDate: d(2024, 2, 14), Recurrence: core.OnceRecurrence{}},
		core.Activity{AccountID: 2, Category: "food", Name: "Other", Expense: core.Money{Cents: 777},
			StartDate: d(2024, 1, 1), Recurrence: core.DailyRecurrence{Interval: 1}},
	)
}

func TestSpendingService(t *testing.T) {
	ctx := context.Background()
	ref := d(2024, 3, 15)
	svc := NewSpendingService(seededStore(), nil)

	t.Run("month", func(t *testing.T) {
		got, err := svc.SpendInMonth(ctx, SpendQuery{AccountID: 1, Year: 2024, Month: 2}, ref)
		require.NoError(t, err)
		// rent + 8 lunches (Mon/Wed in Feb 2024: 5,7,12,14,19,21,26,28) + party
		assert.Equal(t, int64(100000+8*1250+5000), got.Total.Cents)
		require.NotNil(t, got.Month)
		assert.Equal(t, 2, *got.Month)
		assert.Nil(t, got.Day)
	})

	t.Run("month with category", func(t *testing.T) {
		got, err := svc.SpendInMonth(ctx, SpendQuery{AccountID: 1, Year: 2024, Month: 2, Category: "food"}, ref)
		require.NoError(t, err)
		assert.Equal(t, int64(8*1250+5000), got.Total.Cents)
	})

	t.Run("current month is clipped to reference date", func(t *testing.T) {
		got, err := svc.SpendInMonth(ctx, SpendQuery{AccountID: 1, Year: 2024, Month: 3, Category: "food"}, ref)
		require.NoError(t, err)
		// Mon/Wed on or before Mar 15: 4,6,11,13
		assert.Equal(t, int64(4*1250), got.Total.Cents)
	})

	t.Run("year", func(t *testing.T) {
		got, err := svc.SpendInYear(ctx, SpendQuery{AccountID: 1, Year: 2023}, ref)
		require.NoError(t, err)
		assert.Equal(t, int64(12*100000), got.Total.Cents)
		assert.Nil(t, got.Month)
	})

	t.Run("day", func(t *testing.T) {
		got, err := svc.SpendOnDay(ctx, SpendQuery{AccountID: 1, Year: 2024, Month: 2, Day: 14}, ref)
		require.NoError(t, err)
		assert.Equal(t, int64(1250+5000), got.Total.Cents)
		require.NotNil(t, got.Day)
		assert.Equal(t, 14, *got.Day)
	})

	t.Run("future year is zero", func(t *testing.T) {
		got, err := svc.SpendInYear(ctx, SpendQuery{AccountID: 1, Year: 3000}, ref)
		require.NoError(t, err)
		assert.Zero(t, got.Total.Cents)
		assert.Equal(t, 3000, got.Year)
	})

	t.Run("february 30 is invalid", func(t *testing.T) {
		_, err := svc.SpendOnDay(ctx, SpendQuery{AccountID: 1, Year: 2024, Month: 2, Day: 30}, ref)
		assert.True(t, errors.Is(err, core.ErrInvalidDate))
	})

	t.Run("invalid account", func(t *testing.T) {
		_, err := svc.SpendInYear(ctx, SpendQuery{Year: 2024}, ref)
		assert.True(t, errors.Is(err, core.ErrInvalidAccount))
	})
}

func TestSpendingServiceSkipsStorageForFutureWindow(t *testing.T) {
	lister := &countingLister{inner: seededStore()}
	svc := NewSpendingService(lister, nil)

	got, err := svc.SpendInMonth(context.Background(), SpendQuery{AccountID: 1, Year: 2024, Month: 4}, d(2024, 3, 15))
	require.NoError(t, err)
	assert.Zero(t, got.Total.Cents)
	assert.Zero(t, lister.calls)
}

func TestSpendingServiceCacheAndInvalidate(t *testing.T) {
	ctx := context.Background()
	ref := d(2024, 3, 15)
	lister := &countingLister{inner: seededStore()}
	m := &fakeSpendingMetrics{}
	svc := NewSpendingService(lister, nil, WithSpendCache(16, time.Minute), WithSpendingMetrics(m))
	q := SpendQuery{AccountID: 1, Year: 2024, Month: 2}

	first, err := svc.SpendInMonth(ctx, q, ref)
	require.NoError(t, err)
	second, err := svc.SpendInMonth(ctx, q, ref)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, lister.calls)
	assert.Equal(t, 1, m.hits)
	assert.Equal(t, 1, m.misses)
	assert.Equal(t, 1, m.aggregations)

	_, err = lister.inner.CreateActivity(ctx, core.Activity{AccountID: 1, Category: "fun", Name: "Cinema",
		Expense: core.Money{Cents: 1500}, StartDate: d(2024, 2, 10), Recurrence: core.OnceRecurrence{}})
	require.NoError(t, err)
	svc.Invalidate(1)

	third, err := svc.SpendInMonth(ctx, q, ref)
	require.NoError(t, err)
	assert.Equal(t, first.Total.Cents+1500, third.Total.Cents)
	assert.Equal(t, 2, lister.calls)
	assert.NotNil(t, svc.CacheCleaner())
}

func TestSpendingServiceStorageError(t *testing.T) {
	lister := &countingLister{inner: seededStore(), err: errors.New("db down")}
	svc := NewSpendingService(lister, nil)

	_, err := svc.SpendInYear(context.Background(), SpendQuery{AccountID: 1, Year: 2024}, d(2024, 3, 15))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list candidates")
	assert.Nil(t, svc.CacheCleaner())
}

func TestSpendingServiceBreakdown(t *testing.T) {
	svc := NewSpendingService(seededStore(), nil)

	got, err := svc.Breakdown(context.Background(), core.GranularityMonth, SpendQuery{AccountID: 1, Year: 2024, Month: 2}, d(2024, 3, 15))
	require.NoError(t, err)
	assert.Equal(t, []core.CategoryAmount{
		{Category: "food", Amount: core.Money{Cents: 8*1250 + 5000}},
		{Category: "housing", Amount: core.Money{Cents: 100000}},
	}, got)

	got, err = svc.Breakdown(context.Background(), core.GranularityYear, SpendQuery{AccountID: 1, Year: 2030}, d(2024, 3, 15))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSpendingServiceBreakdownCacheIsolation(t *testing.T) {
	ctx := context.Background()
	svc := NewSpendingService(seededStore(), nil, WithSpendCache(16, time.Minute))
	q := SpendQuery{AccountID: 1, Year: 2024, Month: 2}
	ref := d(2024, 3, 15)

	first, err := svc.Breakdown(ctx, core.GranularityMonth, q, ref)
	require.NoError(t, err)
	first[0].Amount = core.Money{Cents: -1}

	second, err := svc.Breakdown(ctx, core.GranularityMonth, q, ref)
	require.NoError(t, err)
	assert.Equal(t, int64(8*1250+5000), second[0].Amount.Cents)
	second[0].Category = "changed"

	third, err := svc.Breakdown(ctx, core.GranularityMonth, q, ref)
	require.NoError(t, err)
	assert.Equal(t, core.Category("food"), third[0].Category)
}

func TestSpendingServiceTrends(t *testing.T) {
	ctx := context.Background()
	lister := &countingLister{inner: seededStore()}
	svc := NewSpendingService(lister, nil, WithSpendCache(16, time.Minute))
	ref := d(2024, 3, 15)

	got, err := svc.Trends(ctx, 1, 4, ref)
	require.NoError(t, err)
	assert.Equal(t, []core.MonthlySpending{
		{Year: 2023, Month: 12, Total: core.Money{Cents: 100000}, ByCategory: []core.CategoryAmount{
			{Category: "housing", Amount: core.Money{Cents: 100000}},
		}},
		{Year: 2024, Month: 1, Total: core.Money{Cents: 10*1250 + 100000}, ByCategory: []core.CategoryAmount{
			{Category: "food", Amount: core.Money{Cents: 10 * 1250}},
			{Category: "housing", Amount: core.Money{Cents: 100000}},
		}},
		{Year: 2024, Month: 2, Total: core.Money{Cents: 8*1250 + 5000 + 100000}, ByCategory: []core.CategoryAmount{
			{Category: "food", Amount: core.Money{Cents: 8*1250 + 5000}},
			{Category: "housing", Amount: core.Money{Cents: 100000}},
		}},
		// March is counted through the 15th.
		{Year: 2024, Month: 3, Total: core.Money{Cents: 4*1250 + 100000}, ByCategory: []core.CategoryAmount{
			{Category: "food", Amount: core.Money{Cents: 4 * 1250}},
			{Category: "housing", Amount: core.Money{Cents: 100000}},
		}},
	}, got)
	assert.Equal(t, 1, lister.calls)

	// Each point matches the month query for the same period.
	for _, p := range got {
		month, err := svc.SpendInMonth(ctx, SpendQuery{AccountID: 1, Year: p.Year, Month: p.Month}, ref)
		require.NoError(t, err)
		assert.Equal(t, month.Total, p.Total, "%d-%02d", p.Year, p.Month)
	}

	got[0].ByCategory[0].Amount = core.Money{}
	again, err := svc.Trends(ctx, 1, 4, ref)
	require.NoError(t, err)
	assert.Equal(t, int64(100000), again[0].ByCategory[0].Amount.Cents)

	_, err = svc.Trends(ctx, 1, 0, ref)
	assert.ErrorIs(t, err, ErrInvalidTrendMonths)
	_, err = svc.Trends(ctx, 1, MaxTrendMonths+1, ref)
	assert.ErrorIs(t, err, ErrInvalidTrendMonths)
	_, err = svc.Trends(ctx, 0, 6, ref)
	assert.ErrorIs(t, err, core.ErrInvalidAccount)
}

func TestSpendingServiceMonotonicWidening(t *testing.T) {
	ctx := context.Background()
	svc := NewSpendingService(seededStore(), nil)
	ref := d(2024, 12, 31)

	day, err := svc.SpendOnDay(ctx, SpendQuery{AccountID: 1, Year: 2024, Month: 2, Day: 14}, ref)
	require.NoError(t, err)
	month, err := svc.SpendInMonth(ctx, SpendQuery{AccountID: 1, Year: 2024, Month: 2}, ref)
	require.NoError(t, err)
	year, err := svc.SpendInYear(ctx, SpendQuery{AccountID: 1, Year: 2024}, ref)
	require.NoError(t, err)

	assert.LessOrEqual(t, day.Total.Cents, month.Total.Cents)
	assert.LessOrEqual(t, month.Total.Cents, year.Total.Cents)
}
