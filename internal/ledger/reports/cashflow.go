package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
)

// CashMovement aggregates entries on cash accounts by voucher type.
type CashMovement struct {
	VoucherType ledger.VoucherType
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

// FlowLine is the cash moved by one kind of voucher.
type FlowLine struct {
	VoucherType ledger.VoucherType `json:"voucherType"`
	Amount      decimal.Decimal    `json:"amount"`
}

// CashFlow summarises movement on cash accounts within a range.
type CashFlow struct {
	From         time.Time       `json:"from"`
	To           time.Time       `json:"to"`
	Opening      decimal.Decimal `json:"opening"`
	Inflows      []FlowLine      `json:"inflows"`
	Outflows     []FlowLine      `json:"outflows"`
	TotalInflow  decimal.Decimal `json:"totalInflow"`
	TotalOutflow decimal.Decimal `json:"totalOutflow"`
	NetChange    decimal.Decimal `json:"netChange"`
	Closing      decimal.Decimal `json:"closing"`
}

// BuildCashFlow splits cash account movements into inflows (debits) and
// outflows (credits) per voucher type.
func BuildCashFlow(from, to time.Time, opening decimal.Decimal, movements []CashMovement) CashFlow {
	in := make(map[ledger.VoucherType]decimal.Decimal)
	out := make(map[ledger.VoucherType]decimal.Decimal)
	for _, m := range movements {
		if m.Debit.IsPositive() {
			in[m.VoucherType] = in[m.VoucherType].Add(m.Debit)
		}
		if m.Credit.IsPositive() {
			out[m.VoucherType] = out[m.VoucherType].Add(m.Credit)
		}
	}
	cf := CashFlow{From: from, To: to, Opening: opening}
	cf.Inflows, cf.TotalInflow = flowLines(in)
	cf.Outflows, cf.TotalOutflow = flowLines(out)
	cf.NetChange = cf.TotalInflow.Sub(cf.TotalOutflow)
	cf.Closing = opening.Add(cf.NetChange)
	return cf
}

// CashPosition sums the signed balances of the cash accounts in balances.
func CashPosition(balances []AccountBalance) decimal.Decimal {
	total := decimal.Zero
	for _, b := range balances {
		if b.IsCash {
			total = total.Add(b.Balance())
		}
	}
	return total
}

func flowLines(totals map[ledger.VoucherType]decimal.Decimal) ([]FlowLine, decimal.Decimal) {
	lines := make([]FlowLine, 0, len(totals))
	sum := decimal.Zero
	for t, amount := range totals {
		lines = append(lines, FlowLine{VoucherType: t, Amount: amount})
		sum = sum.Add(amount)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].VoucherType < lines[j].VoucherType })
	return lines, sum
}
