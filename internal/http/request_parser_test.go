package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"spending/internal/core"
	"spending/internal/services"
)

func withAccount(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("account_id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestParseSpendQuery(t *testing.T) {
	tests := []struct {
		name    string
		g       core.Granularity
		query   string
		want    services.SpendQuery
		wantErr error
	}{
		{
			name:  "year ignores month and day",
			g:     core.GranularityYear,
			query: "year=2024&month=99&day=99",
			want:  services.SpendQuery{AccountID: 7, Year: 2024},
		},
		{
			name:  "month with category",
			g:     core.GranularityMonth,
			query: "year=2024&month=2&category=%20food%20",
			want:  services.SpendQuery{AccountID: 7, Year: 2024, Month: 2, Category: "food"},
		},
		{
			name:  "day",
			g:     core.GranularityDay,
			query: "year=2024&month=2&day=29",
			want:  services.SpendQuery{AccountID: 7, Year: 2024, Month: 2, Day: 29},
		},
		{
			name:    "missing year",
			g:       core.GranularityYear,
			query:   "",
			wantErr: core.ErrInvalidDate,
		},
		{
			name:    "missing day",
			g:       core.GranularityDay,
			query:   "year=2024&month=2",
			wantErr: core.ErrInvalidDate,
		},
		{
			name:    "non numeric month",
			g:       core.GranularityMonth,
			query:   "year=2024&month=feb",
			wantErr: errBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := withAccount(httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil), "7")
			got, err := ParseSpendQuery(req, tt.g)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseSpendQuery() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSpendQuery() unexpected error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseSpendQuery() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseAccountID(t *testing.T) {
	for _, raw := range []string{"", "0", "-3", "abc", "1.5"} {
		req := withAccount(httptest.NewRequest(http.MethodGet, "/", nil), raw)
		if _, err := ParseAccountID(req); !errors.Is(err, core.ErrInvalidAccount) {
			t.Errorf("ParseAccountID(%q) error = %v, want ErrInvalidAccount", raw, err)
		}
	}
	req := withAccount(httptest.NewRequest(http.MethodGet, "/", nil), "12")
	if id, err := ParseAccountID(req); err != nil || id != 12 {
		t.Errorf("ParseAccountID(12) = %d, %v", id, err)
	}
}

func TestBreakdownGranularity(t *testing.T) {
	tests := []struct {
		query string
		want  core.Granularity
	}{
		{"year=2024", core.GranularityYear},
		{"year=2024&month=3", core.GranularityMonth},
		{"year=2024&month=3&day=2", core.GranularityDay},
		{"year=2024&day=2", core.GranularityYear},
	}
	for _, tt := range tests {
		q, _ := url.ParseQuery(tt.query)
		if got := BreakdownGranularity(q); got != tt.want {
			t.Errorf("BreakdownGranularity(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query      string
		wantOffset int
		wantLimit  int
		wantErr    bool
	}{
		{query: "", wantOffset: 0, wantLimit: 0},
		{query: "offset=20&limit=10", wantOffset: 20, wantLimit: 10},
		{query: "limit=0", wantErr: true},
		{query: "offset=x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			offset, limit, err := ParsePagination(q)
			if tt.wantErr {
				if !errors.Is(err, services.ErrInvalidPagination) {
					t.Fatalf("ParsePagination() error = %v, want ErrInvalidPagination", err)
				}
				return
			}
			if err != nil || offset != tt.wantOffset || limit != tt.wantLimit {
				t.Errorf("ParsePagination() = %d, %d, %v", offset, limit, err)
			}
		})
	}
}

func TestRecurrenceRequestSpec(t *testing.T) {
	tests := []struct {
		name    string
		req     *RecurrenceRequest
		want    core.Recurrence
		wantErr bool
	}{
		{name: "nil is once", req: nil, want: core.OnceRecurrence{}},
		{name: "empty kind is once", req: &RecurrenceRequest{}, want: core.OnceRecurrence{}},
		{name: "daily default interval", req: &RecurrenceRequest{Kind: "Daily"}, want: core.DailyRecurrence{Interval: 1}},
		{
			name: "monthly relative",
			req:  &RecurrenceRequest{Kind: "monthly_relative", Interval: ptr(2), Weekdays: []string{"Tuesday"}, WeekIndex: "last"},
			want: core.MonthlyRelativeRecurrence{Interval: 2, Index: core.LastWeek, Days: core.NewWeekdays(time.Tuesday)},
		},
		{
			name: "yearly absolute",
			req:  &RecurrenceRequest{Kind: "yearly_absolute", Month: 2, DayOfMonth: 29},
			want: core.YearlyAbsoluteRecurrence{Interval: 1, Month: 2, Day: 29},
		},
		{name: "bad week index", req: &RecurrenceRequest{Kind: "monthly_relative", Weekdays: []string{"mon"}, WeekIndex: "fifth"}, wantErr: true},
		{name: "unknown kind", req: &RecurrenceRequest{Kind: "hourly"}, wantErr: true},
		{name: "explicit zero interval", req: &RecurrenceRequest{Kind: "daily", Interval: ptr(0)}, wantErr: true},
		{name: "negative interval", req: &RecurrenceRequest{Kind: "weekly", Interval: ptr(-1), Weekdays: []string{"mon"}}, wantErr: true},
		{name: "daily with weekdays", req: &RecurrenceRequest{Kind: "daily", Weekdays: []string{"mon"}}, wantErr: true},
		{name: "daily with day of month", req: &RecurrenceRequest{Kind: "daily", DayOfMonth: 5}, wantErr: true},
		{name: "once with interval", req: &RecurrenceRequest{Kind: "once", Interval: ptr(2)}, wantErr: true},
		{name: "weekly with week index", req: &RecurrenceRequest{Kind: "weekly", Weekdays: []string{"fri"}, WeekIndex: "last"}, wantErr: true},
		{name: "monthly absolute with month", req: &RecurrenceRequest{Kind: "monthly_absolute", DayOfMonth: 1, Month: 3}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := tt.req.Spec()
			var got core.Recurrence
			if err == nil {
				got, err = spec.Build()
			}
			if tt.wantErr {
				if !errors.Is(err, core.ErrInvalidPattern) {
					t.Fatalf("error = %v, want ErrInvalidPattern", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error = %v", err)
			}
			if got != tt.want {
				t.Errorf("recurrence = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDecodeActivityRequest(t *testing.T) {
	body := `{"account_id":3,"category":" food\u0007 ","name":"Lunch","expense":12.345,
		"start_date":"2024-01-01","end_date":"2024-12-31",
		"recurrence":{"kind":"weekly","weekdays":["mon","wed"]}}`
	req := httptest.NewRequest(http.MethodPost, "/activity", strings.NewReader(body))

	a, err := DecodeActivityRequest(req)
	if err != nil {
		t.Fatalf("DecodeActivityRequest() error = %v", err)
	}
	if a.AccountID != 3 || a.Category != "food" || a.Name != "Lunch" {
		t.Errorf("unexpected activity %+v", a)
	}
	if a.Expense.Cents != 1235 {
		t.Errorf("Expense = %d cents, want 1235", a.Expense.Cents)
	}
	if a.EndDate.String() != "2024-12-31" {
		t.Errorf("EndDate = %v", a.EndDate)
	}
	if err := a.Validate(); err != nil {
		t.Errorf("decoded activity should validate: %v", err)
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  hello ", "hello"},
		{"a\x00b\x1fc", "abc"},
		{"line1\nline2\tx", "line1\nline2\tx"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
