package ledgerhttp

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
)

const dateLayout = time.DateOnly

type accountRequest struct {
	Code    string `json:"code" validate:"required,max=64"`
	Name    string `json:"name" validate:"required,max=200"`
	Type    string `json:"type" validate:"required,oneof=asset liability equity revenue expense"`
	IsGroup bool   `json:"isGroup"`
	IsCash  bool   `json:"isCash"`
}

type deactivateRequest struct {
	Force bool `json:"force"`
}

type lineRequest struct {
	AccountID   *uuid.UUID      `json:"accountId"`
	AccountCode string          `json:"accountCode" validate:"required_without=AccountID,max=64"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Remarks     string          `json:"remarks" validate:"max=500"`
}

type voucherRequest struct {
	Type            string           `json:"type" validate:"required,oneof=receipt payment invoice journal"`
	Date            string           `json:"date" validate:"required,datetime=2006-01-02"`
	Currency        string           `json:"currency" validate:"required,len=3"`
	ExchangeRate    *decimal.Decimal `json:"exchangeRate"`
	PartyType       string           `json:"partyType" validate:"max=32"`
	PartyID         *uuid.UUID       `json:"partyId"`
	TotalAmount     decimal.Decimal  `json:"totalAmount"`
	Remarks         string           `json:"remarks" validate:"max=500"`
	DueDate         string           `json:"dueDate" validate:"omitempty,datetime=2006-01-02"`
	SettlementOrder *int             `json:"settlementOrder" validate:"omitempty,min=0"`
	Post            bool             `json:"post"`
	Lines           []lineRequest    `json:"lines" validate:"required_if=Post true,dive"`
}

type postRequest struct {
	PostingDate string        `json:"postingDate" validate:"omitempty,datetime=2006-01-02"`
	Lines       []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

type reverseRequest struct {
	Reason string `json:"reason" validate:"max=500"`
	Date   string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

type invoiceRequest struct {
	Date            string          `json:"date" validate:"required,datetime=2006-01-02"`
	Currency        string          `json:"currency" validate:"required,len=3"`
	PartyType       string          `json:"partyType" validate:"max=32"`
	PartyID         *uuid.UUID      `json:"partyId"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Shipping        decimal.Decimal `json:"shipping"`
	Tax             decimal.Decimal `json:"tax"`
	Discount        decimal.Decimal `json:"discount"`
	DueDate         string          `json:"dueDate" validate:"omitempty,datetime=2006-01-02"`
	SettlementOrder *int            `json:"settlementOrder" validate:"omitempty,min=0"`
	Remarks         string          `json:"remarks" validate:"max=500"`
}

type settlementRequest struct {
	Date      string          `json:"date" validate:"required,datetime=2006-01-02"`
	Currency  string          `json:"currency" validate:"required,len=3"`
	PartyType string          `json:"partyType" validate:"max=32"`
	PartyID   *uuid.UUID      `json:"partyId"`
	Amount    decimal.Decimal `json:"amount"`
	Remarks   string          `json:"remarks" validate:"max=500"`
	Allocate  bool            `json:"allocate"`
}

type mappingRequest struct {
	SalesRevenue    uuid.UUID `json:"salesRevenue" validate:"required"`
	Tax             uuid.UUID `json:"tax" validate:"required"`
	Receivable      uuid.UUID `json:"receivable" validate:"required"`
	Payable         uuid.UUID `json:"payable" validate:"required"`
	Cash            uuid.UUID `json:"cash" validate:"required"`
	Discount        uuid.UUID `json:"discount" validate:"required"`
	ShippingRevenue uuid.UUID `json:"shippingRevenue" validate:"required"`
}

type accountResponse struct {
	ID         uuid.UUID       `json:"id"`
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	NormalSide string          `json:"normalSide"`
	ParentCode string          `json:"parentCode,omitempty"`
	IsGroup    bool            `json:"isGroup"`
	IsCash     bool            `json:"isCash"`
	IsActive   bool            `json:"isActive"`
	Balance    decimal.Decimal `json:"balance"`
}

func toAccount(a ledger.Account) accountResponse {
	return accountResponse{
		ID:         a.ID,
		Code:       a.Code,
		Name:       a.Name,
		Type:       string(a.Type),
		NormalSide: string(a.NormalSide()),
		ParentCode: a.ParentCode(),
		IsGroup:    a.IsGroup,
		IsCash:     a.IsCash,
		IsActive:   a.IsActive,
		Balance:    a.Balance,
	}
}

type voucherResponse struct {
	ID              uuid.UUID        `json:"id"`
	Number          string           `json:"number"`
	Type            string           `json:"type"`
	Date            string           `json:"date"`
	Currency        string           `json:"currency"`
	ExchangeRate    decimal.Decimal  `json:"exchangeRate"`
	Status          string           `json:"status"`
	PartyType       string           `json:"partyType,omitempty"`
	PartyID         *uuid.UUID       `json:"partyId,omitempty"`
	TotalAmount     decimal.Decimal  `json:"totalAmount"`
	Outstanding     *decimal.Decimal `json:"outstanding,omitempty"`
	DueDate         string           `json:"dueDate,omitempty"`
	SettlementOrder *int             `json:"settlementOrder,omitempty"`
	Remarks         string           `json:"remarks,omitempty"`
	ReversalOf      *uuid.UUID       `json:"reversalOf,omitempty"`
	CancelReason    string           `json:"cancelReason,omitempty"`
	CreatedBy       string           `json:"createdBy"`
	PostedBy        string           `json:"postedBy,omitempty"`
	PostedAt        *time.Time       `json:"postedAt,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
}

func toVoucher(v ledger.Voucher) voucherResponse {
	out := voucherResponse{
		ID:              v.ID,
		Number:          v.Number,
		Type:            string(v.Type),
		Date:            v.Date.Format(dateLayout),
		Currency:        v.Currency,
		ExchangeRate:    v.ExchangeRate,
		Status:          string(v.Status),
		PartyType:       v.PartyType,
		PartyID:         v.PartyID,
		TotalAmount:     v.TotalAmount,
		SettlementOrder: v.SettlementOrder,
		Remarks:         v.Remarks,
		ReversalOf:      v.ReversalOf,
		CancelReason:    v.CancelReason,
		CreatedBy:       v.CreatedBy,
		PostedBy:        v.PostedBy,
		PostedAt:        v.PostedAt,
		CreatedAt:       v.CreatedAt,
	}
	if v.Type == ledger.VoucherTypeInvoice {
		outstanding := v.Outstanding
		out.Outstanding = &outstanding
	}
	if v.DueDate != nil {
		out.DueDate = v.DueDate.Format(dateLayout)
	}
	return out
}

type entryResponse struct {
	ID          uuid.UUID       `json:"id"`
	AccountID   uuid.UUID       `json:"accountId"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	PostingDate string          `json:"postingDate"`
	Remarks     string          `json:"remarks,omitempty"`
	IsCancelled bool            `json:"isCancelled"`
	ReversalOf  *uuid.UUID      `json:"reversalOf,omitempty"`
}

type voucherDetailResponse struct {
	voucherResponse
	Entries []entryResponse `json:"entries"`
}

func toVoucherDetail(d ledger.VoucherDetail) voucherDetailResponse {
	out := voucherDetailResponse{voucherResponse: toVoucher(d.Voucher), Entries: make([]entryResponse, 0, len(d.Entries))}
	for _, e := range d.Entries {
		out.Entries = append(out.Entries, entryResponse{
			ID:          e.ID,
			AccountID:   e.AccountID,
			Debit:       e.Debit,
			Credit:      e.Credit,
			PostingDate: e.PostingDate.Format(dateLayout),
			Remarks:     e.Remarks,
			IsCancelled: e.IsCancelled,
			ReversalOf:  e.ReversalOf,
		})
	}
	return out
}

type postResponse struct {
	Voucher  voucherResponse `json:"voucher"`
	EntryIDs []uuid.UUID     `json:"entryIds"`
}

func toPost(res ledger.PostResult) postResponse {
	return postResponse{Voucher: toVoucher(res.Voucher), EntryIDs: res.EntryIDs}
}

type reverseResponse struct {
	Original voucherResponse `json:"original"`
	Reversal voucherResponse `json:"reversal"`
	EntryIDs []uuid.UUID     `json:"entryIds"`
}

type allocationResponse struct {
	InvoiceID uuid.UUID       `json:"invoiceId"`
	Number    string          `json:"number"`
	Amount    decimal.Decimal `json:"amount"`
}

type allocateResponse struct {
	Allocations []allocationResponse `json:"allocations"`
	Unapplied   decimal.Decimal      `json:"unapplied"`
}

func toAllocate(res ledger.AllocateResult) allocateResponse {
	out := allocateResponse{Allocations: make([]allocationResponse, 0, len(res.Allocations)), Unapplied: res.Unapplied}
	for _, a := range res.Allocations {
		out.Allocations = append(out.Allocations, allocationResponse{InvoiceID: a.InvoiceID, Number: a.Number, Amount: a.Amount})
	}
	return out
}

type settlementResponse struct {
	postResponse
	Allocation *allocateResponse `json:"allocation,omitempty"`
}

type mappingResponse struct {
	ID              uuid.UUID `json:"id"`
	SalesRevenue    uuid.UUID `json:"salesRevenue"`
	Tax             uuid.UUID `json:"tax"`
	Receivable      uuid.UUID `json:"receivable"`
	Payable         uuid.UUID `json:"payable"`
	Cash            uuid.UUID `json:"cash"`
	Discount        uuid.UUID `json:"discount"`
	ShippingRevenue uuid.UUID `json:"shippingRevenue"`
	UpdatedBy       string    `json:"updatedBy,omitempty"`
}

func toMapping(m ledger.AccountMapping) mappingResponse {
	return mappingResponse{
		ID:              m.ID,
		SalesRevenue:    m.SalesRevenue,
		Tax:             m.Tax,
		Receivable:      m.Receivable,
		Payable:         m.Payable,
		Cash:            m.Cash,
		Discount:        m.Discount,
		ShippingRevenue: m.ShippingRevenue,
		UpdatedBy:       m.UpdatedBy,
	}
}

func parseDate(field, value string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, unprocessable("%s: expected YYYY-MM-DD", field)
	}
	return t, nil
}

func parseOptionalDate(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := parseDate(field, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
