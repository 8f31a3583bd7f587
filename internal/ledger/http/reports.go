package ledgerhttp

import (
	"net/http"
	"strconv"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/audit"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
)

func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	asOf, err := h.asOf(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	tb, err := h.reports.TrialBalance(r.Context(), asOf)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, tb)
}

func (h *Handler) balanceSheet(w http.ResponseWriter, r *http.Request) {
	asOf, err := h.asOf(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	bs, err := h.reports.BalanceSheet(r.Context(), asOf)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, bs)
}

func (h *Handler) incomeStatement(w http.ResponseWriter, r *http.Request) {
	from, to, err := h.period(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	pl, err := h.reports.IncomeStatement(r.Context(), from, to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, pl)
}

func (h *Handler) cashFlow(w http.ResponseWriter, r *http.Request) {
	from, to, err := h.period(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	cf, err := h.reports.CashFlow(r.Context(), from, to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, cf)
}

func (h *Handler) auditTimeline(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		httpx.Fail(w, http.StatusNotFound, "audit timeline not configured")
		return
	}
	q := r.URL.Query()
	filters := audit.TimelineFilters{
		Actor:  q.Get("actor"),
		Entity: q.Get("entity"),
		Action: q.Get("action"),
	}
	var err error
	if v := q.Get("from"); v != "" {
		if filters.From, err = parseDate("from", v); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	if v := q.Get("to"); v != "" {
		if filters.To, err = parseDate("to", v); err != nil {
			h.writeError(w, r, err)
			return
		}
		filters.To = filters.To.Add(24*time.Hour - time.Nanosecond)
	}
	if filters.Page, err = intParam(q.Get("page")); err != nil {
		h.writeError(w, r, err)
		return
	}
	if filters.PageSize, err = intParam(q.Get("pageSize")); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.audit.Timeline(r.Context(), filters)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, res)
}

// asOf defaults to today.
func (h *Handler) asOf(r *http.Request) (time.Time, error) {
	v := r.URL.Query().Get("as_of")
	if v == "" {
		now := h.now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return parseDate("as_of", v)
}

func (h *Handler) period(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()
	if q.Get("from") == "" || q.Get("to") == "" {
		return time.Time{}, time.Time{}, unprocessable("from and to are required")
	}
	from, err := parseDate("from", q.Get("from"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parseDate("to", q.Get("to"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, badRequest("invalid page parameter %q", v)
	}
	return n, nil
}
