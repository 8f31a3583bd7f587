package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
)

// Repository persists ledger entities in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes fn within a ReadCommitted transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil || r.pool == nil {
		return errors.New("ledger: repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const voucherColumns = `id, number, type, date, currency, exchange_rate, status, COALESCE(party_type, ''), party_id,
total_amount, COALESCE(remarks, ''), reversal_of, COALESCE(cancel_reason, ''), outstanding_amount, due_date,
settlement_order, created_by, COALESCE(posted_by, ''), posted_at, created_at, updated_at`

func scanVoucher(row pgx.Row) (Voucher, error) {
	var v Voucher
	err := row.Scan(&v.ID, &v.Number, &v.Type, &v.Date, &v.Currency, &v.ExchangeRate, &v.Status, &v.PartyType, &v.PartyID,
		&v.TotalAmount, &v.Remarks, &v.ReversalOf, &v.CancelReason, &v.Outstanding, &v.DueDate,
		&v.SettlementOrder, &v.CreatedBy, &v.PostedBy, &v.PostedAt, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Voucher{}, ErrVoucherNotFound
		}
		return Voucher{}, err
	}
	return v, nil
}

const accountColumns = `id, code, name, type, is_group, is_cash, balance, is_active, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	if err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.IsGroup, &a.IsCash, &a.Balance, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *txRepository) NextNumber(ctx context.Context, voucherType VoucherType, fiscalYear int) (string, error) {
	var next int64
	err := r.tx.QueryRow(ctx, `INSERT INTO document_sequences (voucher_type, fiscal_year, last_value)
VALUES ($1, $2, 1)
ON CONFLICT (voucher_type, fiscal_year) DO UPDATE SET last_value = document_sequences.last_value + 1
RETURNING last_value`, voucherType, fiscalYear).Scan(&next)
	if err != nil {
		return "", fmt.Errorf("ledger: next number: %w", err)
	}
	return FormatNumber(voucherType, next), nil
}

// FormatNumber renders a document number such as JE-000042.
func FormatNumber(voucherType VoucherType, seq int64) string {
	return fmt.Sprintf("%s-%06d", voucherType.Prefix(), seq)
}

func (r *txRepository) InsertVoucher(ctx context.Context, v Voucher) (Voucher, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO vouchers (id, number, type, date, currency, exchange_rate, status, party_type, party_id,
total_amount, remarks, reversal_of, due_date, settlement_order, created_by, posted_by, posted_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,NULLIF($8,''),$9,$10,$11,$12,$13,$14,$15,NULLIF($16,''),$17)
RETURNING `+voucherColumns,
		v.ID, v.Number, v.Type, v.Date, v.Currency, v.ExchangeRate, v.Status, v.PartyType, v.PartyID,
		v.TotalAmount, v.Remarks, v.ReversalOf, v.DueDate, v.SettlementOrder, v.CreatedBy, v.PostedBy, v.PostedAt)
	inserted, err := scanVoucher(row)
	if err != nil {
		if db.IsUniqueViolation(err, "vouchers_number_key") {
			return Voucher{}, fmt.Errorf("ledger: duplicate voucher number %s: %w", v.Number, err)
		}
		return Voucher{}, err
	}
	return inserted, nil
}

func (r *txRepository) GetVoucher(ctx context.Context, id uuid.UUID) (Voucher, error) {
	return scanVoucher(r.tx.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE id=$1`, id))
}

func (r *txRepository) GetVoucherForUpdate(ctx context.Context, id uuid.UUID) (Voucher, error) {
	return scanVoucher(r.tx.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE id=$1 FOR UPDATE`, id))
}

func (r *txRepository) MarkVoucherPosted(ctx context.Context, id uuid.UUID, actor string, at time.Time, total decimal.Decimal) error {
	tag, err := r.tx.Exec(ctx, `UPDATE vouchers SET status='posted', posted_by=$2, posted_at=$3, total_amount=$4, updated_at=NOW()
WHERE id=$1 AND status='draft'`, id, actor, at, total)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidStatus
	}
	return nil
}

func (r *txRepository) CancelVoucher(ctx context.Context, id uuid.UUID, reason, actor string) error {
	tag, err := r.tx.Exec(ctx, `UPDATE vouchers SET status='cancelled', cancel_reason=$2, cancelled_by=$3, cancelled_at=NOW(), updated_at=NOW()
WHERE id=$1 AND status='posted'`, id, reason, actor)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidStatus
	}
	return nil
}

func (r *txRepository) GetAccounts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Account, error) {
	return r.queryAccounts(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ANY($1)`, ids)
}

func (r *txRepository) LockAccounts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Account, error) {
	return r.queryAccounts(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
}

func (r *txRepository) queryAccounts(ctx context.Context, sql string, ids []uuid.UUID) (map[uuid.UUID]Account, error) {
	out := make(map[uuid.UUID]Account, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.tx.Query(ctx, sql, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out[a.ID] = a
	}
	return out, rows.Err()
}

func (r *txRepository) ApplyBalance(ctx context.Context, accountID uuid.UUID, delta decimal.Decimal) error {
	tag, err := r.tx.Exec(ctx, `UPDATE accounts SET balance = balance + $2, updated_at = NOW() WHERE id=$1`, accountID, delta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *txRepository) InsertEntries(ctx context.Context, entries []Entry) error {
	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []any{e.ID, e.VoucherID, e.AccountID, e.Debit, e.Credit, e.PostingDate, e.VoucherType,
			e.VoucherNumber, e.Remarks, e.IsCancelled, e.ReversalOf, e.CreatedBy, e.CreatedAt})
	}
	_, err := r.tx.CopyFrom(ctx, pgx.Identifier{"gl_entries"},
		[]string{"id", "voucher_id", "account_id", "debit", "credit", "posting_date", "voucher_type",
			"voucher_number", "remarks", "is_cancelled", "reversal_of", "created_by", "created_at"},
		pgx.CopyFromRows(rows))
	return err
}

func (r *txRepository) ListVoucherEntries(ctx context.Context, voucherID uuid.UUID) ([]Entry, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, voucher_id, account_id, debit, credit, posting_date, voucher_type, voucher_number,
COALESCE(remarks, ''), is_cancelled, reversal_of, created_by, created_at
FROM gl_entries WHERE voucher_id=$1 ORDER BY created_at, id`, voucherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.VoucherID, &e.AccountID, &e.Debit, &e.Credit, &e.PostingDate, &e.VoucherType,
			&e.VoucherNumber, &e.Remarks, &e.IsCancelled, &e.ReversalOf, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *txRepository) CancelEntries(ctx context.Context, voucherID uuid.UUID) (int64, error) {
	tag, err := r.tx.Exec(ctx, `UPDATE gl_entries SET is_cancelled = TRUE WHERE voucher_id=$1 AND NOT is_cancelled`, voucherID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *txRepository) InsertAccount(ctx context.Context, a Account) (Account, error) {
	inserted, err := scanAccount(r.tx.QueryRow(ctx, `INSERT INTO accounts (id, code, name, type, is_group, is_cash, balance, is_active)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING `+accountColumns,
		a.ID, a.Code, a.Name, a.Type, a.IsGroup, a.IsCash, a.Balance, a.IsActive))
	if err != nil {
		if db.IsUniqueViolation(err, "accounts_code_key") {
			return Account{}, ErrDuplicateCode
		}
		return Account{}, err
	}
	return inserted, nil
}

func (r *txRepository) GetAccountByCode(ctx context.Context, code string) (Account, error) {
	return scanAccount(r.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE code=$1`, code))
}

func (r *txRepository) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *txRepository) SetAccountActive(ctx context.Context, id uuid.UUID, active bool) error {
	_, err := r.tx.Exec(ctx, `UPDATE accounts SET is_active=$2, updated_at=NOW() WHERE id=$1`, id, active)
	return err
}

func (r *txRepository) GetActiveMapping(ctx context.Context) (AccountMapping, error) {
	var m AccountMapping
	err := r.tx.QueryRow(ctx, `SELECT id, sales_revenue_account_id, tax_account_id, receivable_account_id, payable_account_id,
cash_account_id, discount_account_id, shipping_revenue_account_id, is_active, created_by, updated_by, created_at, updated_at
FROM account_mappings WHERE is_active`).Scan(&m.ID, &m.SalesRevenue, &m.Tax, &m.Receivable, &m.Payable,
		&m.Cash, &m.Discount, &m.ShippingRevenue, &m.IsActive, &m.CreatedBy, &m.UpdatedBy, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccountMapping{}, ErrMappingNotFound
		}
		return AccountMapping{}, err
	}
	return m, nil
}

func (r *txRepository) DeactivateMappings(ctx context.Context, actor string) error {
	_, err := r.tx.Exec(ctx, `UPDATE account_mappings SET is_active=FALSE, updated_by=$1, updated_at=NOW() WHERE is_active`, actor)
	return err
}

func (r *txRepository) InsertMapping(ctx context.Context, m AccountMapping) (AccountMapping, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO account_mappings (id, sales_revenue_account_id, tax_account_id, receivable_account_id,
payable_account_id, cash_account_id, discount_account_id, shipping_revenue_account_id, is_active, created_by, updated_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING created_at, updated_at`,
		m.ID, m.SalesRevenue, m.Tax, m.Receivable, m.Payable, m.Cash, m.Discount, m.ShippingRevenue, m.IsActive,
		m.CreatedBy, m.UpdatedBy).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return AccountMapping{}, err
	}
	return m, nil
}

func (r *txRepository) SetInvoiceTerms(ctx context.Context, voucherID uuid.UUID, outstanding decimal.Decimal, dueDate *time.Time, settlementOrder *int) error {
	_, err := r.tx.Exec(ctx, `UPDATE vouchers SET outstanding_amount=$2, due_date=$3, settlement_order=$4, updated_at=NOW() WHERE id=$1`,
		voucherID, outstanding, dueDate, settlementOrder)
	return err
}

func (r *txRepository) ListOpenInvoicesForUpdate(ctx context.Context, partyType string, partyID uuid.UUID) ([]OpenItem, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, number, date, due_date, settlement_order, outstanding_amount
FROM vouchers
WHERE type='invoice' AND status='posted' AND party_type=$1 AND party_id=$2 AND outstanding_amount > 0
ORDER BY id
FOR UPDATE`, partyType, partyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OpenItem
	for rows.Next() {
		var item OpenItem
		if err := rows.Scan(&item.ID, &item.Number, &item.Date, &item.DueDate, &item.SettlementOrder, &item.Outstanding); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *txRepository) AllocatedTotal(ctx context.Context, voucherID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM voucher_allocations WHERE voucher_id=$1`, voucherID).Scan(&total)
	return total, err
}

func (r *txRepository) InsertAllocations(ctx context.Context, voucherID uuid.UUID, allocations []Allocation) error {
	batch := &pgx.Batch{}
	for _, a := range allocations {
		batch.Queue(`INSERT INTO voucher_allocations (voucher_id, invoice_id, amount) VALUES ($1,$2,$3)`, voucherID, a.InvoiceID, a.Amount)
	}
	return r.tx.SendBatch(ctx, batch).Close()
}

func (r *txRepository) ApplyInvoiceSettlement(ctx context.Context, invoiceID uuid.UUID, amount decimal.Decimal) error {
	_, err := r.tx.Exec(ctx, `UPDATE vouchers SET outstanding_amount = GREATEST(0, outstanding_amount - $2), updated_at=NOW() WHERE id=$1`,
		invoiceID, amount)
	return err
}

func (r *txRepository) ReleaseAllocations(ctx context.Context, voucherID uuid.UUID) (int, error) {
	tag, err := r.tx.Exec(ctx, `WITH released AS (
	DELETE FROM voucher_allocations WHERE voucher_id=$1 RETURNING invoice_id, amount
), totals AS (
	SELECT invoice_id, SUM(amount) AS amount FROM released GROUP BY invoice_id
)
UPDATE vouchers v SET outstanding_amount = LEAST(v.total_amount, v.outstanding_amount + t.amount), updated_at=NOW()
FROM totals t WHERE v.id = t.invoice_id AND v.status='posted'`, voucherID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *txRepository) CountInvoiceAllocations(ctx context.Context, invoiceID uuid.UUID) (int, error) {
	var n int
	err := r.tx.QueryRow(ctx, `SELECT COUNT(*) FROM voucher_allocations WHERE invoice_id=$1`, invoiceID).Scan(&n)
	return n, err
}

func (r *txRepository) ClearOutstanding(ctx context.Context, invoiceID uuid.UUID) error {
	_, err := r.tx.Exec(ctx, `UPDATE vouchers SET outstanding_amount=0, updated_at=NOW() WHERE id=$1`, invoiceID)
	return err
}
