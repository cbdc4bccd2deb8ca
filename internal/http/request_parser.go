// Package http exposes the activity and spending services over a JSON API.
//
// This file holds the request side: path and query parameter parsing and the
// activity request body.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"spending/internal/core"
	"spending/internal/services"
)

const maxBodyBytes = 1 << 20

// errBadRequest marks malformed input that is not a domain validation error.
var errBadRequest = errors.New("bad request")

const (
	granularityYear  = core.GranularityYear
	granularityMonth = core.GranularityMonth
	granularityDay   = core.GranularityDay
)

// ParseAccountID reads the {account_id} path parameter.
func ParseAccountID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "account_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: account id %q", core.ErrInvalidAccount, raw)
	}
	return id, nil
}

// queryInt returns def when key is absent and an error when it is present but
// not an integer.
func queryInt(q url.Values, key string, def int) (int, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", errBadRequest, key, v)
	}
	return n, nil
}

// ParseSpendQuery reads year, month, day and category for granularity g.
// Parameters the granularity needs are required; coarser queries ignore
// the finer ones.
func ParseSpendQuery(r *http.Request, g core.Granularity) (services.SpendQuery, error) {
	accountID, err := ParseAccountID(r)
	if err != nil {
		return services.SpendQuery{}, err
	}
	q := r.URL.Query()
	sq := services.SpendQuery{
		AccountID: accountID,
		Category:  core.Category(strings.TrimSpace(q.Get("category"))),
	}

	required := []string{"year"}
	switch g {
	case granularityMonth:
		required = append(required, "month")
	case granularityDay:
		required = append(required, "month", "day")
	}
	for _, key := range required {
		if strings.TrimSpace(q.Get(key)) == "" {
			return services.SpendQuery{}, fmt.Errorf("%w: missing %s", core.ErrInvalidDate, key)
		}
	}

	if sq.Year, err = queryInt(q, "year", 0); err != nil {
		return services.SpendQuery{}, err
	}
	if g != granularityYear {
		if sq.Month, err = queryInt(q, "month", 0); err != nil {
			return services.SpendQuery{}, err
		}
	}
	if g == granularityDay {
		if sq.Day, err = queryInt(q, "day", 0); err != nil {
			return services.SpendQuery{}, err
		}
	}
	return sq, nil
}

// BreakdownGranularity picks the finest granularity whose fields are present:
// day when month and day are set, month when month is set, else year.
func BreakdownGranularity(q url.Values) core.Granularity {
	hasMonth := strings.TrimSpace(q.Get("month")) != ""
	hasDay := strings.TrimSpace(q.Get("day")) != ""
	switch {
	case hasMonth && hasDay:
		return granularityDay
	case hasMonth:
		return granularityMonth
	}
	return granularityYear
}

// ParseTrendMonths reads the months query parameter, defaulting to
// services.DefaultTrendMonths. Range checks happen in the service.
func ParseTrendMonths(q url.Values) (int, error) {
	months, err := queryInt(q, "months", services.DefaultTrendMonths)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", services.ErrInvalidTrendMonths, err)
	}
	return months, nil
}

// ParsePagination reads offset and limit; a missing limit is 0, which the
// activity service replaces with its default.
func ParsePagination(q url.Values) (offset, limit int, err error) {
	if offset, err = queryInt(q, "offset", 0); err != nil {
		return 0, 0, fmt.Errorf("%w: %w", services.ErrInvalidPagination, err)
	}
	if limit, err = queryInt(q, "limit", 0); err != nil {
		return 0, 0, fmt.Errorf("%w: %w", services.ErrInvalidPagination, err)
	}
	if q.Has("limit") && limit == 0 {
		return 0, 0, fmt.Errorf("%w: limit must be at least 1", services.ErrInvalidPagination)
	}
	return offset, limit, nil
}

// RecurrenceRequest is the JSON form of a recurrence pattern. Kind defaults
// to "once"; an absent interval defaults to 1 for repeating kinds.
type RecurrenceRequest struct {
	Kind       string   `json:"kind"`
	Interval   *int     `json:"interval,omitempty"`
	Weekdays   []string `json:"weekdays,omitempty"`
	DayOfMonth int      `json:"day_of_month,omitempty"`
	Month      int      `json:"month,omitempty"`
	WeekIndex  string   `json:"week_index,omitempty"`
}

// Spec converts the request into the flat recurrence form.
func (rr *RecurrenceRequest) Spec() (core.RecurrenceSpec, error) {
	if rr == nil {
		return core.RecurrenceSpec{Kind: core.Once}, nil
	}
	spec := core.RecurrenceSpec{
		Kind:       core.RecurrenceKind(strings.ToLower(strings.TrimSpace(rr.Kind))),
		DayOfMonth: rr.DayOfMonth,
		Month:      rr.Month,
	}
	if spec.Kind == "" {
		spec.Kind = core.Once
	}
	switch {
	case rr.Interval != nil:
		spec.Interval = *rr.Interval
	case spec.Kind != core.Once:
		spec.Interval = 1
	}
	days, err := core.ParseWeekdays(rr.Weekdays)
	if err != nil {
		return core.RecurrenceSpec{}, err
	}
	spec.Weekdays = days
	if strings.TrimSpace(rr.WeekIndex) != "" {
		if spec.WeekIndex, err = core.ParseWeekIndex(rr.WeekIndex); err != nil {
			return core.RecurrenceSpec{}, err
		}
	}
	return spec, nil
}

// ActivityRequest is the POST /activity body. Expense accepts a JSON number
// or string.
type ActivityRequest struct {
	AccountID   int64              `json:"account_id"`
	Category    string             `json:"category"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Location    string             `json:"location"`
	Expense     decimal.Decimal    `json:"expense"`
	StartDate   string             `json:"start_date"`
	EndDate     string             `json:"end_date"`
	Recurrence  *RecurrenceRequest `json:"recurrence"`
}

// DecodeActivityRequest reads and converts a JSON activity body.
func DecodeActivityRequest(r *http.Request) (core.Activity, error) {
	var req ActivityRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return core.Activity{}, fmt.Errorf("%w: malformed JSON body: %v", errBadRequest, err)
	}
	return req.Activity()
}

// Activity converts the request into a domain activity. It does not run the
// full validation; ActivityService.Create does.
func (req ActivityRequest) Activity() (core.Activity, error) {
	expense, err := core.MoneyFromDecimal(req.Expense)
	if err != nil {
		return core.Activity{}, fmt.Errorf("%w: expense %s", core.ErrInvalidAmount, req.Expense)
	}
	start, err := core.ParseDate(strings.TrimSpace(req.StartDate))
	if err != nil {
		return core.Activity{}, fmt.Errorf("start_date: %w", err)
	}
	var end core.Date
	if v := strings.TrimSpace(req.EndDate); v != "" {
		if end, err = core.ParseDate(v); err != nil {
			return core.Activity{}, fmt.Errorf("end_date: %w", err)
		}
	}
	spec, err := req.Recurrence.Spec()
	if err != nil {
		return core.Activity{}, err
	}
	rec, err := spec.Build()
	if err != nil {
		return core.Activity{}, err
	}

	return core.Activity{
		AccountID:   req.AccountID,
		Category:    core.Category(sanitizeInput(req.Category)),
		Name:        sanitizeInput(req.Name),
		Description: sanitizeInput(req.Description),
		Location:    sanitizeInput(req.Location),
		Expense:     expense,
		StartDate:   start,
		EndDate:     end,
		Recurrence:  rec,
	}, nil
}

// sanitizeInput drops control characters other than tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
