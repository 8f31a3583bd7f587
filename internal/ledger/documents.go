package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceInput describes a sales invoice to be posted through the active mapping.
// Subtotal includes shipping.
type InvoiceInput struct {
	Date            time.Time
	Currency        string
	PartyType       string
	PartyID         *uuid.UUID
	Subtotal        decimal.Decimal
	Shipping        decimal.Decimal
	Tax             decimal.Decimal
	Discount        decimal.Decimal
	DueDate         *time.Time
	SettlementOrder *int
	Remarks         string
	Actor           string
}

// Total returns the receivable amount of the invoice.
func (in InvoiceInput) Total() decimal.Decimal {
	return Round2(in.Subtotal.Add(in.Tax).Sub(in.Discount))
}

// SettlementInput describes a customer receipt or supplier payment.
type SettlementInput struct {
	Date      time.Time
	Currency  string
	PartyType string
	PartyID   *uuid.UUID
	Amount    decimal.Decimal
	Remarks   string
	Actor     string
	// Allocate settles open invoices of the party right after posting.
	Allocate bool
}

// SettlementResult is a posted receipt or payment with its allocations.
type SettlementResult struct {
	PostResult
	Allocation *AllocateResult
}

// InvoiceLines builds the balanced line set of an invoice.
func InvoiceLines(m AccountMapping, in InvoiceInput) ([]PostingLine, error) {
	for field, v := range map[string]decimal.Decimal{"subtotal": in.Subtotal, "shipping": in.Shipping, "tax": in.Tax, "discount": in.Discount} {
		if v.IsNegative() {
			return nil, invalid(field, "amount must not be negative")
		}
	}
	if in.Shipping.GreaterThan(in.Subtotal) {
		return nil, invalid("shipping", "shipping exceeds subtotal")
	}
	total := in.Total()
	if !total.IsPositive() {
		return nil, invalid("total", "invoice total must be positive")
	}
	lines := []PostingLine{{AccountID: m.Receivable, Debit: total, Remarks: "Invoice receivable"}}
	if sales := Round2(in.Subtotal.Sub(in.Shipping)); sales.IsPositive() {
		lines = append(lines, PostingLine{AccountID: m.SalesRevenue, Credit: sales, Remarks: "Sales revenue"})
	}
	if shipping := Round2(in.Shipping); shipping.IsPositive() {
		lines = append(lines, PostingLine{AccountID: m.ShippingRevenue, Credit: shipping, Remarks: "Shipping revenue"})
	}
	if tax := Round2(in.Tax); tax.IsPositive() {
		lines = append(lines, PostingLine{AccountID: m.Tax, Credit: tax, Remarks: "Output tax"})
	}
	if discount := Round2(in.Discount); discount.IsPositive() {
		lines = append(lines, PostingLine{AccountID: m.Discount, Debit: discount, Remarks: "Sales discount"})
	}
	return lines, nil
}

// ReceiptLines builds DR cash / CR receivable.
func ReceiptLines(m AccountMapping, amount decimal.Decimal) []PostingLine {
	amount = Round2(amount)
	return []PostingLine{
		{AccountID: m.Cash, Debit: amount, Remarks: "Customer receipt"},
		{AccountID: m.Receivable, Credit: amount, Remarks: "Customer receipt"},
	}
}

// PaymentLines builds DR payable / CR cash.
func PaymentLines(m AccountMapping, amount decimal.Decimal) []PostingLine {
	amount = Round2(amount)
	return []PostingLine{
		{AccountID: m.Payable, Debit: amount, Remarks: "Supplier payment"},
		{AccountID: m.Cash, Credit: amount, Remarks: "Supplier payment"},
	}
}

// PostInvoice posts an invoice using the active account mapping. The
// voucher total is the debit side of the posting; the outstanding amount is
// the receivable, Total().
func (s *Service) PostInvoice(ctx context.Context, in InvoiceInput) (PostResult, error) {
	mapping, err := s.ActiveMapping(ctx)
	if err != nil {
		return PostResult{}, err
	}
	lines, err := InvoiceLines(mapping, in)
	if err != nil {
		return PostResult{}, err
	}
	return s.CreateAndPost(ctx, DraftInput{
		Type:            VoucherTypeInvoice,
		Date:            in.Date,
		Currency:        in.Currency,
		PartyType:       in.PartyType,
		PartyID:         in.PartyID,
		TotalAmount:     Round2(TotalDebit(lines)),
		Remarks:         in.Remarks,
		Actor:           in.Actor,
		DueDate:         in.DueDate,
		SettlementOrder: in.SettlementOrder,
	}, lines)
}

// PostReceipt posts a customer receipt and optionally allocates it.
func (s *Service) PostReceipt(ctx context.Context, in SettlementInput) (SettlementResult, error) {
	return s.postSettlement(ctx, VoucherTypeReceipt, in, ReceiptLines)
}

// PostPayment posts a supplier payment and optionally allocates it.
func (s *Service) PostPayment(ctx context.Context, in SettlementInput) (SettlementResult, error) {
	return s.postSettlement(ctx, VoucherTypePayment, in, PaymentLines)
}

func (s *Service) postSettlement(ctx context.Context, t VoucherType, in SettlementInput, build func(AccountMapping, decimal.Decimal) []PostingLine) (SettlementResult, error) {
	if !in.Amount.IsPositive() {
		return SettlementResult{}, invalid("amount", "amount must be positive")
	}
	mapping, err := s.ActiveMapping(ctx)
	if err != nil {
		return SettlementResult{}, err
	}
	posted, err := s.CreateAndPost(ctx, DraftInput{
		Type:        t,
		Date:        in.Date,
		Currency:    in.Currency,
		PartyType:   in.PartyType,
		PartyID:     in.PartyID,
		TotalAmount: Round2(in.Amount),
		Remarks:     in.Remarks,
		Actor:       in.Actor,
	}, build(mapping, in.Amount))
	if err != nil {
		return SettlementResult{}, err
	}
	result := SettlementResult{PostResult: posted}
	if in.Allocate && in.PartyID != nil {
		alloc, err := s.AllocateVoucher(ctx, AllocateInput{VoucherID: posted.Voucher.ID, Actor: in.Actor})
		if err != nil {
			return result, fmt.Errorf("allocate %s: %w", posted.Voucher.Number, err)
		}
		result.Allocation = &alloc
	}
	return result, nil
}
