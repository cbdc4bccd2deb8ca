package memory

import (
	"context"
	"errors"
	"testing"

	"spending/internal/core"
	"spending/internal/store"
)

func activity(account int64, cat core.Category, start, end core.Date) core.Activity {
	return core.Activity{
		AccountID:  account,
		Category:   cat,
		Name:       "item",
		Expense:    core.Money{Cents: 100},
		StartDate:  start,
		EndDate:    end,
		Recurrence: core.DailyRecurrence{Interval: 1},
	}
}

func TestCreateAndListActivities(t *testing.T) {
	ctx := context.Background()
	s := New()

	for i := 0; i < 3; i++ {
		a, err := s.CreateActivity(ctx, activity(1, "food", core.NewDate(2024, 1, 1), core.Date{}))
		if err != nil || a.ID != int64(i+1) {
			t.Fatalf("unexpected create: id=%d err=%v", a.ID, err)
		}
	}
	if _, err := s.CreateActivity(ctx, activity(2, "food", core.NewDate(2024, 1, 1), core.Date{})); err != nil {
		t.Fatal(err)
	}

	page, err := s.ListActivities(ctx, 1, 0, 2)
	if err != nil || len(page) != 2 || page[0].ID != 3 || page[1].ID != 2 {
		t.Fatalf("unexpected first page: %+v err=%v", page, err)
	}
	page, _ = s.ListActivities(ctx, 1, 2, 2)
	if len(page) != 1 || page[0].ID != 1 {
		t.Fatalf("unexpected second page: %+v", page)
	}
	page, _ = s.ListActivities(ctx, 1, 10, 2)
	if len(page) != 0 {
		t.Fatalf("expected empty page past the end, got %d", len(page))
	}

	if _, err := s.CreateActivity(ctx, core.Activity{}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestListCandidatesCoarsePredicate(t *testing.T) {
	ctx := context.Background()
	s := New(
		activity(1, "food", core.NewDate(2024, 1, 1), core.Date{}),             // open ended
		activity(1, "food", core.NewDate(2023, 1, 1), core.NewDate(2024, 1, 31)), // ended before
		activity(1, "rent", core.NewDate(2024, 3, 1), core.Date{}),             // starts after
		activity(1, "rent", core.NewDate(2024, 2, 29), core.Date{}),            // starts on last day
		activity(2, "food", core.NewDate(2024, 1, 1), core.Date{}),             // other account
	)
	w := core.NewWindow(core.NewDate(2024, 2, 1), core.NewDate(2024, 2, 29))

	got, err := s.ListCandidates(ctx, 1, w, "")
	if err != nil || len(got) != 2 || got[0].ID != 1 || got[1].ID != 4 {
		t.Fatalf("unexpected candidates: %+v err=%v", got, err)
	}
	got, _ = s.ListCandidates(ctx, 1, w, "rent")
	if len(got) != 1 || got[0].ID != 4 {
		t.Fatalf("unexpected filtered candidates: %+v", got)
	}
	got, _ = s.ListCandidates(ctx, 1, core.Window{}, "")
	if len(got) != 0 {
		t.Fatalf("empty window should match nothing, got %d", len(got))
	}
}

func TestSnapshots(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, err := s.LatestSnapshot(ctx, 1); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	snap := core.SpendSnapshot{AccountID: 1, Year: 2024, Month: 2, Total: core.Money{Cents: 500}}
	if err := s.SaveSnapshot(ctx, snap); err != nil {
		t.Fatal(err)
	}
	got, err := s.LatestSnapshot(ctx, 1)
	if err != nil || got.Total.Cents != 500 || got.Month != 2 {
		t.Fatalf("unexpected snapshot: %+v err=%v", got, err)
	}
}
