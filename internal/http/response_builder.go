// This file implements a small builder for JSON responses and the mapping
// from service errors to status codes.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"spending/internal/core"
	"spending/internal/services"
	"spending/internal/store"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	if b.body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(b.body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// ErrorResponse creates a JSON error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Error: message})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func UnprocessableEntityError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal server error")
}

// StatusFor maps an error to its HTTP status. Malformed query input is 400,
// an activity that fails validation is 422, anything unrecognised is 500.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidAccount),
		errors.Is(err, services.ErrInvalidPagination),
		errors.Is(err, services.ErrInvalidTrendMonths):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrInvalidPattern),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrEndBeforeStart),
		errors.Is(err, core.ErrTextTooLong):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// writeError logs server errors and hides their detail from the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path)
		InternalServerError().Write(w)
		return
	}
	ErrorResponse(status, err.Error()).Write(w)
}

// SpendResponse echoes the requested granularity; coarser queries leave
// month and day null.
type SpendResponse struct {
	Year       int    `json:"year"`
	Month      *int   `json:"month"`
	Day        *int   `json:"day"`
	TotalSpend string `json:"totalSpend"`
}

func NewSpendResponse(s core.SpendSummary) SpendResponse {
	return SpendResponse{Year: s.Year, Month: s.Month, Day: s.Day, TotalSpend: s.Total.String()}
}

type CategoryAmountResponse struct {
	Category string `json:"category"`
	Amount   string `json:"amount"`
}

type BreakdownResponse struct {
	SpendResponse
	Categories []CategoryAmountResponse `json:"categories"`
}

func NewBreakdownResponse(g core.Granularity, q services.SpendQuery, amounts []core.CategoryAmount) BreakdownResponse {
	var total core.Money
	cats := make([]CategoryAmountResponse, 0, len(amounts))
	for _, a := range amounts {
		total = total.Add(a.Amount)
		cats = append(cats, CategoryAmountResponse{Category: string(a.Category), Amount: a.Amount.String()})
	}
	summary := core.NewSpendSummary(g, q.Year, q.Month, q.Day, total)
	return BreakdownResponse{SpendResponse: NewSpendResponse(summary), Categories: cats}
}

// MonthlySpendingResponse is one point of GET /activity/spending/trends.
type MonthlySpendingResponse struct {
	Year       int                      `json:"year"`
	Month      int                      `json:"month"`
	TotalSpend string                   `json:"totalSpend"`
	Categories []CategoryAmountResponse `json:"categories"`
}

type TrendsResponse struct {
	AccountID int64                     `json:"account_id"`
	Months    []MonthlySpendingResponse `json:"months"`
}

func NewTrendsResponse(accountID int64, points []core.MonthlySpending) TrendsResponse {
	out := TrendsResponse{AccountID: accountID, Months: make([]MonthlySpendingResponse, 0, len(points))}
	for _, p := range points {
		cats := make([]CategoryAmountResponse, 0, len(p.ByCategory))
		for _, a := range p.ByCategory {
			cats = append(cats, CategoryAmountResponse{Category: string(a.Category), Amount: a.Amount.String()})
		}
		out.Months = append(out.Months, MonthlySpendingResponse{
			Year:       p.Year,
			Month:      p.Month,
			TotalSpend: p.Total.String(),
			Categories: cats,
		})
	}
	return out
}

type RecurrenceResponse struct {
	Kind       string   `json:"kind"`
	Interval   int      `json:"interval,omitempty"`
	Weekdays   []string `json:"weekdays,omitempty"`
	DayOfMonth int      `json:"day_of_month,omitempty"`
	Month      int      `json:"month,omitempty"`
	WeekIndex  string   `json:"week_index,omitempty"`
}

type ActivityResponse struct {
	ID          int64              `json:"id"`
	AccountID   int64              `json:"account_id"`
	Category    string             `json:"category"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Location    string             `json:"location,omitempty"`
	Expense     string             `json:"expense"`
	StartDate   string             `json:"start_date"`
	EndDate     *string            `json:"end_date"`
	Recurrence  RecurrenceResponse `json:"recurrence"`
}

func NewActivityResponse(a core.Activity) ActivityResponse {
	spec := core.SpecOf(a.Recurrence)
	resp := ActivityResponse{
		ID:          a.ID,
		AccountID:   a.AccountID,
		Category:    string(a.Category),
		Name:        a.Name,
		Description: a.Description,
		Location:    a.Location,
		Expense:     a.Expense.String(),
		StartDate:   a.StartDate.String(),
		Recurrence: RecurrenceResponse{
			Kind:       string(spec.Kind),
			Interval:   spec.Interval,
			Weekdays:   spec.Weekdays.Names(),
			DayOfMonth: spec.DayOfMonth,
			Month:      spec.Month,
		},
	}
	if spec.WeekIndex != 0 {
		resp.Recurrence.WeekIndex = spec.WeekIndex.String()
	}
	if !a.EndDate.IsEmpty() {
		end := a.EndDate.String()
		resp.EndDate = &end
	}
	return resp
}

type SnapshotResponse struct {
	AccountID  int64                    `json:"account_id"`
	Year       int                      `json:"year"`
	Month      int                      `json:"month"`
	AsOf       string                   `json:"as_of"`
	Total      string                   `json:"total"`
	Categories []CategoryAmountResponse `json:"categories"`
	ComputedAt string                   `json:"computed_at"`
}

func NewSnapshotResponse(s core.SpendSnapshot) SnapshotResponse {
	cats := make([]CategoryAmountResponse, 0, len(s.ByCategory))
	for _, a := range s.ByCategory {
		cats = append(cats, CategoryAmountResponse{Category: string(a.Category), Amount: a.Amount.String()})
	}
	return SnapshotResponse{
		AccountID:  s.AccountID,
		Year:       s.Year,
		Month:      s.Month,
		AsOf:       s.AsOf.String(),
		Total:      s.Total.String(),
		Categories: cats,
		ComputedAt: s.ComputedAt.UTC().Format(time.RFC3339),
	}
}
