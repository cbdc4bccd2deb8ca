package http

import (
	"errors"
	"net/http"

	"spending/internal/core"
	applog "spending/internal/log"
)

func (s *Server) refDate() core.Date {
	return core.DateOf(s.now())
}

func (s *Server) handleCreateActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, err := DecodeActivityRequest(r)
	if err == nil {
		a, err = s.deps.Activities.Create(ctx, a)
	}
	if err != nil {
		// Everything wrong with a well-formed body is a validation failure.
		if status := StatusFor(err); status < http.StatusInternalServerError && !errors.Is(err, errBadRequest) {
			UnprocessableEntityError(err.Error()).Write(w)
			return
		}
		writeError(w, r, err)
		return
	}

	NewJSONResponse().
		Status(http.StatusCreated).
		Body(NewActivityResponse(a)).
		Write(w)
}

func (s *Server) handleListActivities(w http.ResponseWriter, r *http.Request) {
	accountID, err := ParseAccountID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	offset, limit, err := ParsePagination(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}

	items, err := s.deps.Activities.List(r.Context(), accountID, offset, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]ActivityResponse, 0, len(items))
	for _, a := range items {
		out = append(out, NewActivityResponse(a))
	}
	NewJSONResponse().Body(out).Write(w)
}

func (s *Server) handleSpend(g core.Granularity) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		q, err := ParseSpendQuery(r, g)
		if err != nil {
			writeError(w, r, err)
			return
		}

		summary, err := s.deps.Spending.Spend(ctx, g, q, s.refDate())
		if err != nil {
			writeError(w, r, err)
			return
		}

		applog.FromContext(ctx).DebugContext(ctx, "Spending query answered",
			applog.NewFields().
				WithSpendQuery(q.AccountID, string(g), q.Year, q.Month, q.Day).
				ToSlice()...)
		NewJSONResponse().Body(NewSpendResponse(summary)).Write(w)
	}
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	g := BreakdownGranularity(r.URL.Query())
	q, err := ParseSpendQuery(r, g)
	if err != nil {
		writeError(w, r, err)
		return
	}

	amounts, err := s.deps.Spending.Breakdown(r.Context(), g, q, s.refDate())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(NewBreakdownResponse(g, q, amounts)).Write(w)
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	accountID, err := ParseAccountID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	months, err := ParseTrendMonths(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}

	points, err := s.deps.Spending.Trends(r.Context(), accountID, months, s.refDate())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(NewTrendsResponse(accountID, points)).Write(w)
}

func (s *Server) handleLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.deps.Snapshots == nil {
		NotFoundError("snapshots are not available").Write(w)
		return
	}
	accountID, err := ParseAccountID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	snap, err := s.deps.Snapshots.LatestSnapshot(r.Context(), accountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(NewSnapshotResponse(snap)).Write(w)
}
