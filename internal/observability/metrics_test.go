package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, metrics *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTeapot, rr.Code)

	body := scrape(t, metrics)
	require.Contains(t, body, `ledger_http_requests_total{code="418",route="/test"} 1`)
	require.Contains(t, body, `ledger_http_request_duration_seconds_bucket{route="/test"`)
}

func TestLedgerMetricsExposed(t *testing.T) {
	metrics := NewMetrics()
	lm := metrics.Ledger()

	lm.PostingObserved("journal", "ok", 20*time.Millisecond)
	lm.PostingObserved("journal", "invalid", time.Millisecond)
	lm.ReversalObserved("", "already_reversed")
	lm.ReconciliationFailed("trial_balance")

	body := scrape(t, metrics)
	require.Contains(t, body, `ledger_postings_total{result="ok",type="journal"} 1`)
	require.Contains(t, body, `ledger_postings_total{result="invalid",type="journal"} 1`)
	require.Contains(t, body, `ledger_posting_duration_seconds_count{type="journal"} 2`)
	require.Contains(t, body, `ledger_reversals_total{result="already_reversed",type="unknown"} 1`)
	require.Contains(t, body, `ledger_reconciliation_failures_total{report="trial_balance"} 1`)
}

func TestNilLedgerMetricsIsNoop(t *testing.T) {
	var lm *LedgerMetrics
	require.NotPanics(t, func() {
		lm.PostingObserved("journal", "ok", time.Second)
		lm.ReversalObserved("journal", "ok")
		lm.ReconciliationFailed("balance_sheet")
	})
}
