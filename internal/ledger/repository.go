package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RepositoryPort abstracts transactional persistence.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the statements the ledger runs inside one transaction.
type TxRepository interface {
	NextNumber(ctx context.Context, voucherType VoucherType, fiscalYear int) (string, error)
	InsertVoucher(ctx context.Context, v Voucher) (Voucher, error)
	GetVoucher(ctx context.Context, id uuid.UUID) (Voucher, error)
	GetVoucherForUpdate(ctx context.Context, id uuid.UUID) (Voucher, error)
	MarkVoucherPosted(ctx context.Context, id uuid.UUID, actor string, at time.Time, total decimal.Decimal) error
	CancelVoucher(ctx context.Context, id uuid.UUID, reason, actor string) error

	GetAccounts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Account, error)
	LockAccounts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Account, error)
	ApplyBalance(ctx context.Context, accountID uuid.UUID, delta decimal.Decimal) error

	InsertEntries(ctx context.Context, entries []Entry) error
	ListVoucherEntries(ctx context.Context, voucherID uuid.UUID) ([]Entry, error)
	CancelEntries(ctx context.Context, voucherID uuid.UUID) (int64, error)

	AccountStore
	MappingStore
	AllocationStore
}

// AccountStore persists chart of accounts nodes.
type AccountStore interface {
	InsertAccount(ctx context.Context, a Account) (Account, error)
	GetAccountByCode(ctx context.Context, code string) (Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)
	SetAccountActive(ctx context.Context, id uuid.UUID, active bool) error
}

// MappingStore persists account mappings.
type MappingStore interface {
	GetActiveMapping(ctx context.Context) (AccountMapping, error)
	DeactivateMappings(ctx context.Context, actor string) error
	InsertMapping(ctx context.Context, m AccountMapping) (AccountMapping, error)
}

// AllocationStore persists settlement of invoices by receipts and payments.
type AllocationStore interface {
	SetInvoiceTerms(ctx context.Context, voucherID uuid.UUID, outstanding decimal.Decimal, dueDate *time.Time, settlementOrder *int) error
	ListOpenInvoicesForUpdate(ctx context.Context, partyType string, partyID uuid.UUID) ([]OpenItem, error)
	AllocatedTotal(ctx context.Context, voucherID uuid.UUID) (decimal.Decimal, error)
	InsertAllocations(ctx context.Context, voucherID uuid.UUID, allocations []Allocation) error
	ApplyInvoiceSettlement(ctx context.Context, invoiceID uuid.UUID, amount decimal.Decimal) error
	ReleaseAllocations(ctx context.Context, voucherID uuid.UUID) (int, error)
	CountInvoiceAllocations(ctx context.Context, invoiceID uuid.UUID) (int, error)
	ClearOutstanding(ctx context.Context, invoiceID uuid.UUID) error
}
