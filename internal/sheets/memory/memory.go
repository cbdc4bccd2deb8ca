// Package memory keeps exported report rows in process, for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"spending/internal/core"
	"spending/internal/sheets"
)

type ReportWriter struct {
	mu   sync.Mutex
	rows [][]any
}

var _ sheets.ReportWriter = (*ReportWriter)(nil)

func New() *ReportWriter {
	return &ReportWriter{}
}

// WriteSnapshot appends the snapshot rows and returns a synthetic range reference.
func (w *ReportWriter) WriteSnapshot(_ context.Context, s core.SpendSnapshot) (string, error) {
	rows := sheets.ReportRows(s)
	w.mu.Lock()
	defer w.mu.Unlock()
	first := len(w.rows) + 1
	w.rows = append(w.rows, rows...)
	return fmt.Sprintf("mem:%d-%d", first, len(w.rows)), nil
}

// Rows returns a copy of everything written so far.
func (w *ReportWriter) Rows() [][]any {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([][]any(nil), w.rows...)
}
