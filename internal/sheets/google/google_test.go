package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	goption "google.golang.org/api/option"

	"spending/internal/core"
)

type fakeSheets struct {
	mu         sync.Mutex
	hasHeader  bool
	headerPuts int
	appends    [][][]any
	paths      []string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, r.Method+" "+r.URL.Path)
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet:
		if f.hasHeader {
			io.WriteString(w, `{"range":"x","values":[["Computed At"]]}`)
			return
		}
		io.WriteString(w, `{"range":"x"}`)
	case r.Method == http.MethodPut:
		f.headerPuts++
		f.hasHeader = true
		io.WriteString(w, `{"updatedRange":"'2024 Spending'!A1:G1"}`)
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":append"):
		var body struct {
			Values [][]any `json:"values"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		f.appends = append(f.appends, body.Values)
		io.WriteString(w, `{"updates":{"updatedRange":"'2024 Spending'!A2:G4","updatedRows":3}}`)
	default:
		http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(context.Background(), Config{SpreadsheetID: "sheet-id", SheetName: "Spending"},
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func snapshot() core.SpendSnapshot {
	return core.SpendSnapshot{
		AccountID: 7,
		Year:      2024,
		Month:     3,
		AsOf:      core.NewDate(2024, 3, 15),
		Total:     core.Money{Cents: 105000},
		ByCategory: []core.CategoryAmount{
			{Category: "food", Amount: core.Money{Cents: 5000}},
			{Category: "housing", Amount: core.Money{Cents: 100000}},
		},
		ComputedAt: time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC),
	}
}

func TestClient_WriteSnapshot(t *testing.T) {
	fake := &fakeSheets{}
	c := newTestClient(t, fake)

	ref, err := c.WriteSnapshot(context.Background(), snapshot())
	if err != nil {
		t.Fatalf("WriteSnapshot() error = %v", err)
	}
	if ref != "'2024 Spending'!A2:G4" {
		t.Errorf("WriteSnapshot() ref = %q", ref)
	}
	if fake.headerPuts != 1 {
		t.Errorf("header writes = %d, want 1", fake.headerPuts)
	}
	if len(fake.appends) != 1 || len(fake.appends[0]) != 3 {
		t.Fatalf("appended rows = %v, want one batch of 3", fake.appends)
	}
	if got := fake.appends[0][0][5]; got != "TOTAL" {
		t.Errorf("first row label = %v, want TOTAL", got)
	}
	if got := fake.appends[0][2][6]; got != "1000.00" {
		t.Errorf("housing amount = %v, want 1000.00", got)
	}
	if !strings.Contains(fake.paths[0], "/v4/spreadsheets/sheet-id/values/") {
		t.Errorf("unexpected request path %q", fake.paths[0])
	}

	// Header is checked once per tab.
	if _, err := c.WriteSnapshot(context.Background(), snapshot()); err != nil {
		t.Fatalf("second WriteSnapshot() error = %v", err)
	}
	gets := 0
	for _, p := range fake.paths {
		if strings.HasPrefix(p, "GET ") {
			gets++
		}
	}
	if gets != 1 {
		t.Errorf("header reads = %d, want 1", gets)
	}
}

func TestClient_WriteSnapshotExistingHeader(t *testing.T) {
	fake := &fakeSheets{hasHeader: true}
	c := newTestClient(t, fake)

	if _, err := c.WriteSnapshot(context.Background(), snapshot()); err != nil {
		t.Fatalf("WriteSnapshot() error = %v", err)
	}
	if fake.headerPuts != 0 {
		t.Errorf("header writes = %d, want 0", fake.headerPuts)
	}
}

func TestClient_WriteSnapshotAPIError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"error":{"code":403,"message":"The caller does not have permission"}}`)
	}))

	_, err := c.WriteSnapshot(context.Background(), snapshot())
	if err == nil {
		t.Fatal("WriteSnapshot() should fail on API error")
	}
	if !strings.Contains(err.Error(), "read header of 2024 Spending") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewClient_Validation(t *testing.T) {
	if _, err := NewClient(context.Background(), Config{}); err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("NewClient() error = %v, want missing GOOGLE_SPREADSHEET_ID", err)
	}

	_, err := NewClient(context.Background(), Config{SpreadsheetID: "x"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Errorf("NewClient() error = %v, want missing credentials", err)
	}

	_, err = NewClient(context.Background(), Config{SpreadsheetID: "x", ServiceAccountFile: "/nonexistent/sa.json"})
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Errorf("NewClient() error = %v, want read error", err)
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		year int
		want string
	}{
		{"Spending", 2024, "2024 Spending"},
		{"2023 Spending", 2024, "2023 Spending"},
		{"  Report ", 2025, "2025 Report"},
		{"", 2024, ""},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, tt.year); got != tt.want {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.want)
		}
	}
}

func TestQuoteSheet(t *testing.T) {
	if got := quoteSheet("Spending"); got != "Spending" {
		t.Errorf("quoteSheet() = %q", got)
	}
	if got := quoteSheet("2024 Bob's"); got != "'2024 Bob''s'" {
		t.Errorf("quoteSheet() = %q", got)
	}
}
