package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
)

// CurrentEarningsLabel names the equity line carrying unclosed profit.
const CurrentEarningsLabel = "Current period earnings"

// BalanceSheet is the structured response for the balance sheet report.
type BalanceSheet struct {
	AsOf                      time.Time       `json:"asOf"`
	Assets                    Section         `json:"assets"`
	Liabilities               Section         `json:"liabilities"`
	Equity                    Section         `json:"equity"`
	CurrentEarnings           decimal.Decimal `json:"currentEarnings"`
	TotalLiabilitiesAndEquity decimal.Decimal `json:"totalLiabilitiesAndEquity"`
	Difference                decimal.Decimal `json:"difference"`
	IsBalanced                bool            `json:"isBalanced"`
}

// BuildBalanceSheet aggregates balances into assets, liabilities and equity.
// Revenue and expense balances are folded into equity as current earnings so
// the identity holds without a closing entry.
func BuildBalanceSheet(asOf time.Time, accounts []AccountBalance) BalanceSheet {
	assets := Section{Label: "Assets"}
	liabilities := Section{Label: "Liabilities"}
	equity := Section{Label: "Equity"}
	earnings := decimal.Zero

	for _, acc := range accounts {
		switch acc.Type {
		case ledger.AccountTypeAsset:
			assets.add(acc.Code, acc.Name, acc.Balance())
		case ledger.AccountTypeLiability:
			liabilities.add(acc.Code, acc.Name, acc.Balance())
		case ledger.AccountTypeEquity:
			equity.add(acc.Code, acc.Name, acc.Balance())
		case ledger.AccountTypeRevenue:
			earnings = earnings.Add(acc.Balance())
		case ledger.AccountTypeExpense:
			earnings = earnings.Sub(acc.Balance())
		}
	}

	sort.Slice(assets.Lines, func(i, j int) bool { return assets.Lines[i].Code < assets.Lines[j].Code })
	sort.Slice(liabilities.Lines, func(i, j int) bool { return liabilities.Lines[i].Code < liabilities.Lines[j].Code })
	sort.Slice(equity.Lines, func(i, j int) bool { return equity.Lines[i].Code < equity.Lines[j].Code })
	if !earnings.IsZero() {
		equity.add("", CurrentEarningsLabel, earnings)
	}

	total := liabilities.Total.Add(equity.Total)
	return BalanceSheet{
		AsOf:                      asOf,
		Assets:                    assets,
		Liabilities:               liabilities,
		Equity:                    equity,
		CurrentEarnings:           earnings,
		TotalLiabilitiesAndEquity: total,
		Difference:                assets.Total.Sub(total),
		IsBalanced:                ledger.Balanced(assets.Total, total),
	}
}

// Reconcile returns a *ledger.ReconciliationError when assets differ from
// liabilities plus equity.
func (bs BalanceSheet) Reconcile() error {
	if bs.IsBalanced {
		return nil
	}
	return &ledger.ReconciliationError{Report: "balance_sheet", Check: "accounting_identity", Left: bs.Assets.Total, Right: bs.TotalLiabilitiesAndEquity}
}
