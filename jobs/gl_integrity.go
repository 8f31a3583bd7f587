package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	jobmetrics "github.com/odyssey-erp/odyssey-ledger/internal/jobs"
	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
	"github.com/odyssey-erp/odyssey-ledger/internal/ledger/reporter"
	"github.com/odyssey-erp/odyssey-ledger/internal/ledger/reports"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ErrIntegrity is returned when a scan finds at least one anomaly.
var ErrIntegrity = errors.New("gl integrity: anomalies detected")

// IntegritySource exposes the read-only queries behind the scan.
type IntegritySource interface {
	UnbalancedVouchers(ctx context.Context) ([]reporter.VoucherImbalance, error)
	BalanceDrifts(ctx context.Context) ([]reporter.BalanceDrift, error)
	BalancesAsOf(ctx context.Context, asOf time.Time) ([]reports.AccountBalance, error)
}

// IntegrityReport summarises one scan.
type IntegrityReport struct {
	AsOf         time.Time
	Unbalanced   []reporter.VoucherImbalance
	Drifts       []reporter.BalanceDrift
	TrialBalance *ledger.ReconciliationError
}

// Anomalies counts every finding of the report.
func (r IntegrityReport) Anomalies() int {
	n := len(r.Unbalanced) + len(r.Drifts)
	if r.TrialBalance != nil {
		n++
	}
	return n
}

// GLIntegrityJob verifies the ledger against its own invariants.
type GLIntegrityJob struct {
	Source  IntegritySource
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewGLIntegrityJob wires dependencies for the integrity handler.
func NewGLIntegrityJob(source IntegritySource, logger *slog.Logger, metrics *jobmetrics.Metrics) *GLIntegrityJob {
	return &GLIntegrityJob{
		Source:  source,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes integrity scan tasks.
func (j *GLIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Source == nil {
		return errors.New("gl integrity: handler not configured")
	}
	var payload IntegrityScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	asOf, err := parseDate(payload.AsOf, j.now())
	if err != nil {
		return fmt.Errorf("gl integrity: %v: %w", err, asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskIntegrityScan)
	report, err := j.Scan(ctx, asOf)
	if err == nil && report.Anomalies() > 0 {
		err = ErrIntegrity
	}
	return tracker.End(err)
}

// Scan runs the three checks concurrently against independent snapshots.
func (j *GLIntegrityJob) Scan(ctx context.Context, asOf time.Time) (IntegrityReport, error) {
	report := IntegrityReport{AsOf: asOf}
	logger := j.logger().With(slog.String("as_of", asOf.Format(time.DateOnly)))
	start := j.now()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := j.Source.UnbalancedVouchers(gctx)
		if err != nil {
			return fmt.Errorf("unbalanced vouchers: %w", err)
		}
		report.Unbalanced = rows
		return nil
	})
	g.Go(func() error {
		rows, err := j.Source.BalanceDrifts(gctx)
		if err != nil {
			return fmt.Errorf("balance drift: %w", err)
		}
		report.Drifts = rows
		return nil
	})
	g.Go(func() error {
		rows, err := j.Source.BalancesAsOf(gctx, asOf)
		if err != nil {
			return fmt.Errorf("trial balance: %w", err)
		}
		var recErr *ledger.ReconciliationError
		if errors.As(reports.BuildTrialBalance(asOf, rows).Reconcile(), &recErr) {
			report.TrialBalance = recErr
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Error("integrity scan failed", slog.Any("error", err))
		return IntegrityReport{}, err
	}

	for _, v := range report.Unbalanced {
		logger.Error("unbalanced voucher",
			slog.String("voucher", v.Number),
			slog.String("debit", v.Debit.StringFixed(2)),
			slog.String("credit", v.Credit.StringFixed(2)))
	}
	for _, d := range report.Drifts {
		logger.Error("stored balance drift",
			slog.String("account", d.Code),
			slog.String("stored", d.Stored.StringFixed(2)),
			slog.String("computed", d.Computed.StringFixed(2)))
	}
	if report.TrialBalance != nil {
		logger.Error("trial balance out of balance", slog.Any("error", report.TrialBalance))
	}

	m := j.metrics()
	m.AddAnomalies("critical", "unbalanced_voucher", len(report.Unbalanced))
	m.AddAnomalies("critical", "balance_drift", len(report.Drifts))
	if report.TrialBalance != nil {
		m.AddAnomalies("critical", "trial_balance", 1)
	}

	logger.Info("integrity scan completed",
		slog.Int("anomalies", report.Anomalies()),
		slog.Duration("duration", j.now().Sub(start)))
	return report, nil
}

func (j *GLIntegrityJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskIntegrityScan))
	}
	return slog.Default().With(slog.String("job", TaskIntegrityScan))
}

func (j *GLIntegrityJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *GLIntegrityJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
