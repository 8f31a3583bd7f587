package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType enumerates chart of accounts categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// Side is the normal balance side of an account.
type Side string

const (
	SideDebit  Side = "debit"
	SideCredit Side = "credit"
)

// VoucherType enumerates the business documents that produce postings.
type VoucherType string

const (
	VoucherTypeReceipt VoucherType = "receipt"
	VoucherTypePayment VoucherType = "payment"
	VoucherTypeInvoice VoucherType = "invoice"
	VoucherTypeJournal VoucherType = "journal"
)

// Prefix returns the document number prefix for the voucher type.
func (t VoucherType) Prefix() string {
	switch t {
	case VoucherTypeReceipt:
		return "RV"
	case VoucherTypePayment:
		return "PV"
	case VoucherTypeInvoice:
		return "INV"
	case VoucherTypeJournal:
		return "JE"
	}
	return strings.ToUpper(string(t))
}

// Valid reports whether t is a known voucher type.
func (t VoucherType) Valid() bool {
	switch t {
	case VoucherTypeReceipt, VoucherTypePayment, VoucherTypeInvoice, VoucherTypeJournal:
		return true
	}
	return false
}

// VoucherStatus enumerates the voucher lifecycle.
type VoucherStatus string

const (
	VoucherStatusDraft     VoucherStatus = "draft"
	VoucherStatusPosted    VoucherStatus = "posted"
	VoucherStatusCancelled VoucherStatus = "cancelled"
)

// CanTransition reports whether the voucher state machine allows from -> to.
func CanTransition(from, to VoucherStatus) bool {
	switch from {
	case VoucherStatusDraft:
		return to == VoucherStatusPosted
	case VoucherStatusPosted:
		return to == VoucherStatusCancelled
	}
	return false
}

// Account models a chart of accounts node.
type Account struct {
	ID        uuid.UUID
	Code      string
	Name      string
	Type      AccountType
	IsGroup   bool
	IsCash    bool
	Balance   decimal.Decimal
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NormalSide derives the normal balance side from the account type.
func (a Account) NormalSide() Side {
	return NormalSide(a.Type)
}

// ParentCode returns the code of the parent node, or "" for top-level accounts.
func (a Account) ParentCode() string {
	return ParentCode(a.Code)
}

// ParentCode strips the last segment of a hierarchical code: "1.2.3" -> "1.2".
func ParentCode(code string) string {
	idx := strings.LastIndex(code, ".")
	if idx <= 0 {
		return ""
	}
	return code[:idx]
}

// Voucher is the business document that owns a posting.
type Voucher struct {
	ID           uuid.UUID
	Number       string
	Type         VoucherType
	Date         time.Time
	Currency     string
	ExchangeRate decimal.Decimal
	Status       VoucherStatus
	PartyType    string
	PartyID      *uuid.UUID
	TotalAmount  decimal.Decimal
	Remarks      string
	ReversalOf   *uuid.UUID
	CancelReason string

	// Outstanding, DueDate and SettlementOrder are only meaningful for invoices.
	Outstanding     decimal.Decimal
	DueDate         *time.Time
	SettlementOrder *int

	CreatedBy string
	PostedBy  string
	PostedAt  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Entry is one immutable general ledger line.
type Entry struct {
	ID            uuid.UUID
	VoucherID     uuid.UUID
	AccountID     uuid.UUID
	Debit         decimal.Decimal
	Credit        decimal.Decimal
	PostingDate   time.Time
	VoucherType   VoucherType
	VoucherNumber string
	Remarks       string
	IsCancelled   bool
	ReversalOf    *uuid.UUID
	CreatedBy     string
	CreatedAt     time.Time
}

// PostingLine is a proposed debit or credit against one account.
type PostingLine struct {
	AccountID uuid.UUID
	Debit     decimal.Decimal
	Credit    decimal.Decimal
	Remarks   string
}

// DraftInput groups the fields required to open a draft voucher.
type DraftInput struct {
	Type         VoucherType
	Date         time.Time
	Currency     string
	ExchangeRate decimal.Decimal
	PartyType    string
	PartyID      *uuid.UUID
	TotalAmount  decimal.Decimal
	Remarks      string
	Actor        string

	DueDate         *time.Time
	SettlementOrder *int
}

// PostInput requests posting of a draft voucher.
type PostInput struct {
	VoucherID   uuid.UUID
	PostingDate time.Time
	Actor       string
	Lines       []PostingLine
}

// PostResult is returned by a successful posting.
type PostResult struct {
	Voucher  Voucher
	EntryIDs []uuid.UUID
}

// ReverseInput requests the reversal of a posted voucher.
type ReverseInput struct {
	VoucherID uuid.UUID
	Reason    string
	Actor     string
	Date      *time.Time
}

// VoucherDetail is a voucher with its ledger entries.
type VoucherDetail struct {
	Voucher Voucher
	Entries []Entry
}

// ReverseResult carries both sides of a completed reversal.
type ReverseResult struct {
	Original Voucher
	Reversal Voucher
	EntryIDs []uuid.UUID
}

// Standard reversal reasons.
const (
	ReasonManualCorrection = "Manual journal correction"
	ReasonInvoiceVoid      = "Invoice void/update"
	ReasonReceiptVoid      = "Customer receipt void/update"
	ReasonPaymentVoid      = "Supplier payment void/update"
)
