package memory

import (
	"context"
	"testing"

	"spending/internal/core"
)

func TestReportWriterAppends(t *testing.T) {
	w := New()
	ctx := context.Background()

	snap := core.SpendSnapshot{
		AccountID:  1,
		Year:       2024,
		Month:      2,
		AsOf:       core.NewDate(2024, 2, 29),
		Total:      core.Money{Cents: 300},
		ByCategory: []core.CategoryAmount{{Category: "food", Amount: core.Money{Cents: 300}}},
	}

	ref, err := w.WriteSnapshot(ctx, snap)
	if err != nil {
		t.Fatalf("WriteSnapshot() error = %v", err)
	}
	if ref != "mem:1-2" {
		t.Errorf("WriteSnapshot() ref = %q, want mem:1-2", ref)
	}

	snap.ByCategory = nil
	ref, err = w.WriteSnapshot(ctx, snap)
	if err != nil {
		t.Fatalf("WriteSnapshot() error = %v", err)
	}
	if ref != "mem:3-3" {
		t.Errorf("WriteSnapshot() ref = %q, want mem:3-3", ref)
	}

	rows := w.Rows()
	if len(rows) != 3 {
		t.Fatalf("Rows() len = %d, want 3", len(rows))
	}
	if rows[1][5] != "food" || rows[1][6] != "3.00" {
		t.Errorf("category row = %v", rows[1])
	}
}
