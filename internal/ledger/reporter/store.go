package reporter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/ledger/reports"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
)

//go:generate mockgen -source=store.go -destination=store_mock.go -package=reporter

// Store reads report inputs. Every call observes a single snapshot.
type Store interface {
	BalancesAsOf(ctx context.Context, asOf time.Time) ([]reports.AccountBalance, error)
	BalancesBetween(ctx context.Context, from, to time.Time) ([]reports.AccountBalance, error)
	CashActivity(ctx context.Context, from, to time.Time) (decimal.Decimal, []reports.CashMovement, error)
}

// VoucherImbalance is a voucher whose entries do not net to zero.
type VoucherImbalance struct {
	VoucherID uuid.UUID
	Number    string
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// BalanceDrift is an account whose stored balance disagrees with its entries.
type BalanceDrift struct {
	AccountID uuid.UUID
	Code      string
	Stored    decimal.Decimal
	Computed  decimal.Decimal
}

// PGStore implements Store on PostgreSQL using read-only RepeatableRead
// transactions bounded by a statement timeout.
type PGStore struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewPGStore constructs the PostgreSQL report store.
func NewPGStore(pool *pgxpool.Pool, statementTimeout time.Duration) *PGStore {
	return &PGStore{pool: pool, timeout: statementTimeout}
}

const balancesSQL = `SELECT a.id, a.code, a.name, a.type, a.is_active, a.is_cash,
	COALESCE(SUM(e.debit), 0), COALESCE(SUM(e.credit), 0)
FROM accounts a
LEFT JOIN gl_entries e ON e.account_id = a.id AND NOT e.is_cancelled AND %s
WHERE NOT a.is_group
GROUP BY a.id, a.code, a.name, a.type, a.is_active, a.is_cash
ORDER BY a.code`

// BalancesAsOf aggregates non-cancelled entries posted on or before asOf.
func (s *PGStore) BalancesAsOf(ctx context.Context, asOf time.Time) ([]reports.AccountBalance, error) {
	var out []reports.AccountBalance
	err := s.snapshot(ctx, func(tx pgx.Tx) error {
		var err error
		out, err = queryBalances(ctx, tx, fmtBalances("e.posting_date <= $1"), asOf)
		return err
	})
	return out, err
}

// BalancesBetween aggregates non-cancelled entries posted within [from, to].
func (s *PGStore) BalancesBetween(ctx context.Context, from, to time.Time) ([]reports.AccountBalance, error) {
	var out []reports.AccountBalance
	err := s.snapshot(ctx, func(tx pgx.Tx) error {
		var err error
		out, err = queryBalances(ctx, tx, fmtBalances("e.posting_date BETWEEN $1 AND $2"), from, to)
		return err
	})
	return out, err
}

// CashActivity returns the opening cash position before from and the cash
// account movements within [from, to] grouped by voucher type.
func (s *PGStore) CashActivity(ctx context.Context, from, to time.Time) (decimal.Decimal, []reports.CashMovement, error) {
	var opening decimal.Decimal
	var movements []reports.CashMovement
	err := s.snapshot(ctx, func(tx pgx.Tx) error {
		before, err := queryBalances(ctx, tx, fmtBalances("e.posting_date < $1"), from)
		if err != nil {
			return err
		}
		opening = reports.CashPosition(before)
		rows, err := tx.Query(ctx, `SELECT e.voucher_type, COALESCE(SUM(e.debit), 0), COALESCE(SUM(e.credit), 0)
FROM gl_entries e JOIN accounts a ON a.id = e.account_id
WHERE a.is_cash AND NOT e.is_cancelled AND e.posting_date BETWEEN $1 AND $2
GROUP BY e.voucher_type
ORDER BY e.voucher_type`, from, to)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var m reports.CashMovement
			if err := rows.Scan(&m.VoucherType, &m.Debit, &m.Credit); err != nil {
				return err
			}
			movements = append(movements, m)
		}
		return rows.Err()
	})
	return opening, movements, err
}

// UnbalancedVouchers lists vouchers whose entries, cancelled or not, do not
// net to zero.
func (s *PGStore) UnbalancedVouchers(ctx context.Context) ([]VoucherImbalance, error) {
	var out []VoucherImbalance
	err := s.snapshot(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT v.id, v.number, SUM(e.debit), SUM(e.credit)
FROM gl_entries e JOIN vouchers v ON v.id = e.voucher_id
GROUP BY v.id, v.number
HAVING SUM(e.debit) <> SUM(e.credit)
ORDER BY v.number`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var row VoucherImbalance
			if err := rows.Scan(&row.VoucherID, &row.Number, &row.Debit, &row.Credit); err != nil {
				return err
			}
			out = append(out, row)
		}
		return rows.Err()
	})
	return out, err
}

// BalanceDrifts lists accounts whose stored balance differs from the signed
// sum of their non-cancelled entries.
func (s *PGStore) BalanceDrifts(ctx context.Context) ([]BalanceDrift, error) {
	var out []BalanceDrift
	err := s.snapshot(ctx, func(tx pgx.Tx) error {
		rows, err := queryBalances(ctx, tx, fmtBalances("TRUE"))
		if err != nil {
			return err
		}
		stored := make(map[uuid.UUID]decimal.Decimal, len(rows))
		r, err := tx.Query(ctx, `SELECT id, balance FROM accounts WHERE NOT is_group`)
		if err != nil {
			return err
		}
		defer r.Close()
		for r.Next() {
			var id uuid.UUID
			var bal decimal.Decimal
			if err := r.Scan(&id, &bal); err != nil {
				return err
			}
			stored[id] = bal
		}
		if err := r.Err(); err != nil {
			return err
		}
		for _, row := range rows {
			if !stored[row.AccountID].Equal(row.Balance()) {
				out = append(out, BalanceDrift{AccountID: row.AccountID, Code: row.Code, Stored: stored[row.AccountID], Computed: row.Balance()})
			}
		}
		return nil
	})
	return out, err
}

func (s *PGStore) snapshot(ctx context.Context, fn func(pgx.Tx) error) error {
	if s == nil || s.pool == nil {
		return errors.New("reporter: store not initialised")
	}
	return db.WithSnapshot(ctx, s.pool, s.timeout, fn)
}

func fmtBalances(filter string) string {
	return fmt.Sprintf(balancesSQL, filter)
}

func queryBalances(ctx context.Context, tx pgx.Tx, sql string, args ...any) ([]reports.AccountBalance, error) {
	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []reports.AccountBalance
	for rows.Next() {
		var b reports.AccountBalance
		if err := rows.Scan(&b.AccountID, &b.Code, &b.Name, &b.Type, &b.IsActive, &b.IsCash, &b.Debit, &b.Credit); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
