package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"spending/internal/cache"
	"spending/internal/core"
	"spending/internal/store"
)

// SpendQuery selects an account, a calendar period and an optional category.
// Month and Day are read only by the granularities that need them.
type SpendQuery struct {
	AccountID int64
	Year      int
	Month     int
	Day       int
	Category  core.Category
}

// SpendingMetrics receives per-query telemetry. metrics.Collector implements it.
type SpendingMetrics interface {
	ObserveAggregation(g core.Granularity, evaluated int, d time.Duration)
	RecordCacheLookup(hit bool)
}

type cachedSpend struct {
	summary   core.SpendSummary
	breakdown []core.CategoryAmount
	trends    []core.MonthlySpending
}

const (
	DefaultTrendMonths = 6
	MaxTrendMonths     = 120
)

var ErrInvalidTrendMonths = errors.New("invalid trend months")

// SpendingService answers "how much did this account spend" for a year,
// month or day, clipped to a reference date supplied by the caller.
type SpendingService struct {
	candidates store.CandidateLister
	aggregator *Aggregator
	cache      *cache.LRUCache[cachedSpend]
	metrics    SpendingMetrics

	mu          sync.Mutex
	generations map[int64]uint64
}

type SpendingOption func(*SpendingService)

// WithSpendCache caches computed results; Invalidate drops an account's entries.
func WithSpendCache(size int, ttl time.Duration) SpendingOption {
	return func(s *SpendingService) { s.cache = cache.NewLRUCache[cachedSpend](size, ttl) }
}

func WithSpendingMetrics(m SpendingMetrics) SpendingOption {
	return func(s *SpendingService) { s.metrics = m }
}

func NewSpendingService(candidates store.CandidateLister, aggregator *Aggregator, opts ...SpendingOption) *SpendingService {
	if aggregator == nil {
		aggregator = NewAggregator(0, nil)
	}
	s := &SpendingService{
		candidates:  candidates,
		aggregator:  aggregator,
		generations: make(map[int64]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SpendingService) SpendInYear(ctx context.Context, q SpendQuery, ref core.Date) (core.SpendSummary, error) {
	return s.Spend(ctx, core.GranularityYear, q, ref)
}

func (s *SpendingService) SpendInMonth(ctx context.Context, q SpendQuery, ref core.Date) (core.SpendSummary, error) {
	return s.Spend(ctx, core.GranularityMonth, q, ref)
}

func (s *SpendingService) SpendOnDay(ctx context.Context, q SpendQuery, ref core.Date) (core.SpendSummary, error) {
	return s.Spend(ctx, core.GranularityDay, q, ref)
}

// Spend resolves the window for g, fetches candidates and aggregates them.
// ErrInvalidDate is the only error caused by the query itself; a period
// entirely after ref yields a zero total without touching storage.
func (s *SpendingService) Spend(ctx context.Context, g core.Granularity, q SpendQuery, ref core.Date) (core.SpendSummary, error) {
	if q.AccountID <= 0 {
		return core.SpendSummary{}, core.ErrInvalidAccount
	}
	w, err := core.Resolve(g, q.Year, q.Month, q.Day, ref)
	if err != nil {
		return core.SpendSummary{}, err
	}
	if w.IsEmpty() {
		return core.NewSpendSummary(g, q.Year, q.Month, q.Day, core.Money{}), nil
	}

	key := s.cacheKey("total", g, q.AccountID, w, q.Category)
	if hit, ok := s.lookup(key); ok {
		return hit.summary, nil
	}

	start := time.Now()
	activities, err := s.candidates.ListCandidates(ctx, q.AccountID, w, q.Category)
	if err != nil {
		return core.SpendSummary{}, fmt.Errorf("list candidates: %w", err)
	}
	total, outcome, err := s.aggregator.Total(ctx, activities, w, q.Category)
	if err != nil {
		return core.SpendSummary{}, fmt.Errorf("aggregate: %w", err)
	}
	s.observe(ctx, g, q.AccountID, w, outcome, total, time.Since(start))

	summary := core.NewSpendSummary(g, q.Year, q.Month, q.Day, total)
	s.remember(key, cachedSpend{summary: summary})
	return summary, nil
}

// Breakdown returns per-category totals for the same window Spend would use.
// The query's category, if any, is ignored.
func (s *SpendingService) Breakdown(ctx context.Context, g core.Granularity, q SpendQuery, ref core.Date) ([]core.CategoryAmount, error) {
	if q.AccountID <= 0 {
		return nil, core.ErrInvalidAccount
	}
	w, err := core.Resolve(g, q.Year, q.Month, q.Day, ref)
	if err != nil {
		return nil, err
	}
	if w.IsEmpty() {
		return []core.CategoryAmount{}, nil
	}

	key := s.cacheKey("breakdown", g, q.AccountID, w, "")
	if hit, ok := s.lookup(key); ok {
		return slices.Clone(hit.breakdown), nil
	}

	start := time.Now()
	activities, err := s.candidates.ListCandidates(ctx, q.AccountID, w, "")
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	amounts, outcome, err := s.aggregator.ByCategory(ctx, activities, w)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	var total core.Money
	for _, a := range amounts {
		total = total.Add(a.Amount)
	}
	s.observe(ctx, g, q.AccountID, w, outcome, total, time.Since(start))

	s.remember(key, cachedSpend{breakdown: slices.Clone(amounts)})
	return amounts, nil
}

// Trends returns per-category spend for each of the last months calendar
// months, oldest first. The last entry is the month holding ref, counted up
// to ref.
func (s *SpendingService) Trends(ctx context.Context, accountID int64, months int, ref core.Date) ([]core.MonthlySpending, error) {
	if accountID <= 0 {
		return nil, core.ErrInvalidAccount
	}
	if months < 1 || months > MaxTrendMonths {
		return nil, fmt.Errorf("%w: months must be between 1 and %d, got %d", ErrInvalidTrendMonths, MaxTrendMonths, months)
	}

	firstIdx := ref.Year()*12 + ref.Month() - 1 - (months - 1)
	windows := make([]core.Window, 0, months)
	for idx := firstIdx; idx < firstIdx+months; idx++ {
		w, err := core.ResolveMonth(idx/12, idx%12+1, ref)
		if err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	span := core.NewWindow(windows[0].Start, windows[len(windows)-1].End)

	key := s.cacheKey("trends", core.GranularityMonth, accountID, span, "")
	if hit, ok := s.lookup(key); ok {
		return cloneTrends(hit.trends), nil
	}

	start := time.Now()
	activities, err := s.candidates.ListCandidates(ctx, accountID, span, "")
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	out := make([]core.MonthlySpending, 0, months)
	var (
		outcome Outcome
		total   core.Money
	)
	for _, w := range windows {
		inMonth := make([]core.Activity, 0, len(activities))
		for _, a := range activities {
			if a.Overlaps(w) {
				inMonth = append(inMonth, a)
			}
		}
		amounts, o, err := s.aggregator.ByCategory(ctx, inMonth, w)
		if err != nil {
			return nil, fmt.Errorf("aggregate %s: %w", w, err)
		}
		point := core.MonthlySpending{Year: w.Start.Year(), Month: w.Start.Month(), ByCategory: amounts}
		for _, a := range amounts {
			point.Total = point.Total.Add(a.Amount)
		}
		outcome = outcome.add(o)
		total = total.Add(point.Total)
		out = append(out, point)
	}
	s.observe(ctx, core.GranularityMonth, accountID, span, outcome, total, time.Since(start))

	s.remember(key, cachedSpend{trends: cloneTrends(out)})
	return out, nil
}

func cloneTrends(in []core.MonthlySpending) []core.MonthlySpending {
	out := make([]core.MonthlySpending, len(in))
	for i, p := range in {
		p.ByCategory = slices.Clone(p.ByCategory)
		out[i] = p
	}
	return out
}

// CacheCleaner returns the result cache for registration with a cache.Manager,
// or nil when caching is off.
func (s *SpendingService) CacheCleaner() cache.Cleaner {
	if s.cache == nil {
		return nil
	}
	return s.cache
}

// Invalidate makes every cached result for the account stale.
func (s *SpendingService) Invalidate(accountID int64) {
	s.mu.Lock()
	s.generations[accountID]++
	s.mu.Unlock()
}

func (s *SpendingService) cacheKey(kind string, g core.Granularity, accountID int64, w core.Window, category core.Category) string {
	s.mu.Lock()
	gen := s.generations[accountID]
	s.mu.Unlock()
	return fmt.Sprintf("%s|%d|%d|%s|%s|%s|%s", kind, accountID, gen, g, w.Start, w.End, category)
}

func (s *SpendingService) lookup(key string) (cachedSpend, bool) {
	if s.cache == nil {
		return cachedSpend{}, false
	}
	v, ok := s.cache.Get(key)
	if s.metrics != nil {
		s.metrics.RecordCacheLookup(ok)
	}
	return v, ok
}

func (s *SpendingService) remember(key string, v cachedSpend) {
	if s.cache != nil {
		s.cache.Set(key, v)
	}
}

func (s *SpendingService) observe(ctx context.Context, g core.Granularity, accountID int64, w core.Window, o Outcome, total core.Money, d time.Duration) {
	if s.metrics != nil {
		s.metrics.ObserveAggregation(g, o.Evaluated, d)
	}
	slog.DebugContext(ctx, "Aggregated spending",
		"account_id", accountID,
		"granularity", g,
		"window_start", w.Start.String(),
		"window_end", w.End.String(),
		"evaluated", o.Evaluated,
		"skipped", o.Skipped,
		"anomalies", o.Anomalies,
		"total_cents", total.Cents,
		"duration_ms", d.Milliseconds())
}
