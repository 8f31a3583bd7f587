package reporter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
	"github.com/odyssey-erp/odyssey-ledger/internal/ledger/reports"
)

const dateLayout = "2006-01-02"

// Observer counts reports that fail their accounting identity.
type Observer interface {
	ReconciliationFailed(report string)
}

// Service builds ledger reports from a snapshot store with optional caching.
type Service struct {
	store    Store
	cache    *Cache
	logger   *slog.Logger
	observer Observer
	timeout  time.Duration
}

// NewService constructs the reporter. A zero timeout leaves the caller's
// deadline in charge.
func NewService(store Store, cache *Cache, logger *slog.Logger, timeout time.Duration) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, cache: cache, logger: logger, timeout: timeout}
}

// WithObserver registers the metrics observer.
func (s *Service) WithObserver(obs Observer) {
	s.observer = obs
}

// TrialBalance returns the trial balance as of the given date. An
// unbalanced report is returned with IsBalanced=false, never as an error.
func (s *Service) TrialBalance(ctx context.Context, asOf time.Time) (reports.TrialBalance, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	var tb reports.TrialBalance
	err := s.cached(ctx, &tb, func(ctx context.Context) (any, error) {
		rows, err := s.store.BalancesAsOf(ctx, asOf)
		if err != nil {
			return nil, err
		}
		return reports.BuildTrialBalance(asOf, rows), nil
	}, "tb", asOf.Format(dateLayout))
	if err != nil {
		return reports.TrialBalance{}, err
	}
	s.check("trial_balance", tb)
	return tb, nil
}

// IncomeStatement returns revenue and expense activity within [from, to].
func (s *Service) IncomeStatement(ctx context.Context, from, to time.Time) (reports.IncomeStatement, error) {
	if err := checkRange(from, to); err != nil {
		return reports.IncomeStatement{}, err
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()
	var is reports.IncomeStatement
	err := s.cached(ctx, &is, func(ctx context.Context) (any, error) {
		rows, err := s.store.BalancesBetween(ctx, from, to)
		if err != nil {
			return nil, err
		}
		return reports.BuildIncomeStatement(from, to, rows), nil
	}, "is", from.Format(dateLayout), to.Format(dateLayout))
	return is, err
}

// BalanceSheet returns the balance sheet as of the given date.
func (s *Service) BalanceSheet(ctx context.Context, asOf time.Time) (reports.BalanceSheet, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	var bs reports.BalanceSheet
	err := s.cached(ctx, &bs, func(ctx context.Context) (any, error) {
		rows, err := s.store.BalancesAsOf(ctx, asOf)
		if err != nil {
			return nil, err
		}
		return reports.BuildBalanceSheet(asOf, rows), nil
	}, "bs", asOf.Format(dateLayout))
	if err != nil {
		return reports.BalanceSheet{}, err
	}
	s.check("balance_sheet", bs)
	return bs, nil
}

// CashFlow returns cash account movements within [from, to].
func (s *Service) CashFlow(ctx context.Context, from, to time.Time) (reports.CashFlow, error) {
	if err := checkRange(from, to); err != nil {
		return reports.CashFlow{}, err
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()
	var cf reports.CashFlow
	err := s.cached(ctx, &cf, func(ctx context.Context) (any, error) {
		opening, movements, err := s.store.CashActivity(ctx, from, to)
		if err != nil {
			return nil, err
		}
		return reports.BuildCashFlow(from, to, opening, movements), nil
	}, "cf", from.Format(dateLayout), to.Format(dateLayout))
	return cf, err
}

// Warm loads the standard reports for asOf into the cache.
func (s *Service) Warm(ctx context.Context, asOf time.Time) error {
	if _, err := s.TrialBalance(ctx, asOf); err != nil {
		return fmt.Errorf("warm trial balance: %w", err)
	}
	if _, err := s.BalanceSheet(ctx, asOf); err != nil {
		return fmt.Errorf("warm balance sheet: %w", err)
	}
	start := time.Date(asOf.Year(), asOf.Month(), 1, 0, 0, 0, 0, asOf.Location())
	if _, err := s.IncomeStatement(ctx, start, asOf); err != nil {
		return fmt.Errorf("warm income statement: %w", err)
	}
	return nil
}

func (s *Service) cached(ctx context.Context, dest any, loader func(context.Context) (any, error), parts ...string) error {
	key, err := s.cache.BuildKey(ctx, parts...)
	if err != nil {
		s.logger.Warn("report cache unavailable", slog.Any("error", err))
		value, lerr := loader(ctx)
		if lerr != nil {
			return lerr
		}
		return assign(dest, value)
	}
	return s.cache.FetchJSON(ctx, key, dest, loader)
}

func (s *Service) check(report string, r reports.Reconcilable) {
	err := reports.Check(r)
	if err == nil {
		return
	}
	s.logger.Error("ledger out of balance", slog.String("report", report), slog.Any("error", err))
	if s.observer != nil {
		s.observer.ReconciliationFailed(report)
	}
}

func (s *Service) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func checkRange(from, to time.Time) error {
	if from.IsZero() || to.IsZero() {
		return &ledger.ValidationError{Field: "range", Line: -1, Reason: "from and to are required"}
	}
	if from.After(to) {
		return &ledger.ValidationError{Field: "range", Line: -1, Reason: "from must not be after to"}
	}
	return nil
}

func assign(dest, value any) error {
	switch d := dest.(type) {
	case *reports.TrialBalance:
		*d = value.(reports.TrialBalance)
	case *reports.IncomeStatement:
		*d = value.(reports.IncomeStatement)
	case *reports.BalanceSheet:
		*d = value.(reports.BalanceSheet)
	case *reports.CashFlow:
		*d = value.(reports.CashFlow)
	default:
		return fmt.Errorf("reporter: unsupported report type %T", dest)
	}
	return nil
}
