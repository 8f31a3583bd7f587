package jobmetrics

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	require.NoError(t, m.Track("ledger:integrity_scan").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("ledger:integrity_scan").End(boom), boom)

	expected := `
# HELP ledger_jobs_failures_total Total failures observed for background jobs.
# TYPE ledger_jobs_failures_total counter
ledger_jobs_failures_total{job="ledger:integrity_scan"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "ledger_jobs_failures_total"))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("ledger:integrity_scan", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("ledger:integrity_scan", "failure")))
}

func TestAddAnomalies(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddAnomalies("critical", "balance_drift", 3)
	m.AddAnomalies("critical", "balance_drift", 0)
	m.AddAnomalies("warning", "", 1)

	require.Equal(t, 3.0, testutil.ToFloat64(m.anomalies.WithLabelValues("critical", "balance_drift")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.anomalies.WithLabelValues("warning", "unknown")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	require.NoError(t, m.Track("x").End(nil))
	m.AddAnomalies("critical", "x", 1)
}
