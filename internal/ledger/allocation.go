package ledger

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/audit"
)

// OpenItem is an invoice with an outstanding amount.
type OpenItem struct {
	ID              uuid.UUID
	Number          string
	Date            time.Time
	DueDate         *time.Time
	SettlementOrder *int
	Outstanding     decimal.Decimal
}

func (o OpenItem) due() time.Time {
	if o.DueDate != nil {
		return *o.DueDate
	}
	return o.Date
}

// Allocation applies part of a receipt or payment to one invoice.
type Allocation struct {
	InvoiceID uuid.UUID
	Number    string
	Amount    decimal.Decimal
}

// AllocateInput requests settlement of open invoices by a posted receipt or payment.
type AllocateInput struct {
	VoucherID uuid.UUID
	Actor     string
}

// AllocateResult lists what was applied and what is left unapplied.
type AllocateResult struct {
	Allocations []Allocation
	Unapplied   decimal.Decimal
}

// Allocate distributes amount over items. Items with an explicit settlement
// order go first, then the oldest due date, then id. No item receives more
// than its outstanding amount; whatever cannot be placed is returned.
func Allocate(amount decimal.Decimal, items []OpenItem) ([]Allocation, decimal.Decimal) {
	ordered := make([]OpenItem, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		switch {
		case a.SettlementOrder != nil && b.SettlementOrder == nil:
			return true
		case a.SettlementOrder == nil && b.SettlementOrder != nil:
			return false
		case a.SettlementOrder != nil && *a.SettlementOrder != *b.SettlementOrder:
			return *a.SettlementOrder < *b.SettlementOrder
		}
		if da, db := a.due(), b.due(); !da.Equal(db) {
			return da.Before(db)
		}
		return a.ID.String() < b.ID.String()
	})

	remaining := amount
	var out []Allocation
	for _, item := range ordered {
		if !remaining.IsPositive() {
			break
		}
		if !item.Outstanding.IsPositive() {
			continue
		}
		applied := decimal.Min(remaining, item.Outstanding)
		out = append(out, Allocation{InvoiceID: item.ID, Number: item.Number, Amount: applied})
		remaining = remaining.Sub(applied)
	}
	return out, remaining
}

// AllocateVoucher settles the party's open invoices with the unallocated
// part of a posted receipt or payment.
func (s *Service) AllocateVoucher(ctx context.Context, input AllocateInput) (AllocateResult, error) {
	if input.VoucherID == uuid.Nil {
		return AllocateResult{}, invalid("voucher_id", "voucher id required")
	}
	var result AllocateResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		v, err := tx.GetVoucherForUpdate(ctx, input.VoucherID)
		if err != nil {
			return err
		}
		if v.Type != VoucherTypeReceipt && v.Type != VoucherTypePayment {
			return invalid("type", "only receipts and payments can be allocated")
		}
		if v.Status != VoucherStatusPosted {
			return ErrInvalidStatus
		}
		if v.PartyID == nil || v.PartyType == "" {
			return invalid("party", "voucher has no party to allocate against")
		}
		allocated, err := tx.AllocatedTotal(ctx, v.ID)
		if err != nil {
			return err
		}
		available := v.TotalAmount.Sub(allocated)
		if !available.IsPositive() {
			result.Unapplied = decimal.Zero
			return nil
		}
		items, err := tx.ListOpenInvoicesForUpdate(ctx, v.PartyType, *v.PartyID)
		if err != nil {
			return err
		}
		allocations, remainder := Allocate(available, items)
		if len(allocations) > 0 {
			if err := tx.InsertAllocations(ctx, v.ID, allocations); err != nil {
				return err
			}
			for _, a := range allocations {
				if err := tx.ApplyInvoiceSettlement(ctx, a.InvoiceID, a.Amount); err != nil {
					return err
				}
			}
		}
		result = AllocateResult{Allocations: allocations, Unapplied: remainder}
		return nil
	})
	if err != nil {
		return AllocateResult{}, err
	}
	if len(result.Allocations) > 0 {
		s.record(ctx, audit.Log{
			Actor:    input.Actor,
			Action:   "voucher.allocate",
			Entity:   "voucher",
			EntityID: input.VoucherID.String(),
			Meta: map[string]any{
				"allocations": len(result.Allocations),
				"unapplied":   result.Unapplied.StringFixed(2),
			},
		})
	}
	return result, nil
}
