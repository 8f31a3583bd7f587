package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics counts postings, reversals and reconciliation failures.
// A nil *LedgerMetrics is a no-op.
type LedgerMetrics struct {
	postings        *prometheus.CounterVec
	postingDuration *prometheus.HistogramVec
	reversals       *prometheus.CounterVec
	reconFailures   *prometheus.CounterVec
}

// NewLedgerMetrics registers the ledger collectors against registerer.
func NewLedgerMetrics(registerer prometheus.Registerer) *LedgerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	m := &LedgerMetrics{
		postings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_postings_total",
			Help: "Voucher posting attempts by voucher type and result.",
		}, []string{"type", "result"}),
		postingDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledger_posting_duration_seconds",
			Help:    "Duration of voucher postings including lock waits.",
			Buckets: prometheus.DefBuckets,
		}, []string{"type"}),
		reversals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_reversals_total",
			Help: "Voucher reversal attempts by voucher type and result.",
		}, []string{"type", "result"}),
		reconFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_reconciliation_failures_total",
			Help: "Reports that failed their accounting identity.",
		}, []string{"report"}),
	}
	registerer.MustRegister(m.postings, m.postingDuration, m.reversals, m.reconFailures)
	return m
}

// PostingObserved records one posting attempt.
func (m *LedgerMetrics) PostingObserved(voucherType, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	if voucherType == "" {
		voucherType = "unknown"
	}
	m.postings.WithLabelValues(voucherType, result).Inc()
	m.postingDuration.WithLabelValues(voucherType).Observe(elapsed.Seconds())
}

// ReversalObserved records one reversal attempt.
func (m *LedgerMetrics) ReversalObserved(voucherType, result string) {
	if m == nil {
		return
	}
	if voucherType == "" {
		voucherType = "unknown"
	}
	m.reversals.WithLabelValues(voucherType, result).Inc()
}

// ReconciliationFailed records an unbalanced report.
func (m *LedgerMetrics) ReconciliationFailed(report string) {
	if m == nil {
		return
	}
	m.reconFailures.WithLabelValues(report).Inc()
}
