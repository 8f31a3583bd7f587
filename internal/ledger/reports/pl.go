package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
)

// IncomeStatement contains revenue and expense activity within a range.
type IncomeStatement struct {
	From      time.Time       `json:"from"`
	To        time.Time       `json:"to"`
	Revenue   Section         `json:"revenue"`
	Expense   Section         `json:"expense"`
	NetIncome decimal.Decimal `json:"netIncome"`
}

// BuildIncomeStatement aggregates range activity into revenue and expense
// sections. NetIncome is revenue minus expense.
func BuildIncomeStatement(from, to time.Time, accounts []AccountBalance) IncomeStatement {
	revenue := Section{Label: "Revenue"}
	expense := Section{Label: "Expense"}

	for _, acc := range accounts {
		switch acc.Type {
		case ledger.AccountTypeRevenue:
			revenue.add(acc.Code, acc.Name, acc.Balance())
		case ledger.AccountTypeExpense:
			expense.add(acc.Code, acc.Name, acc.Balance())
		}
	}

	sort.Slice(revenue.Lines, func(i, j int) bool { return revenue.Lines[i].Code < revenue.Lines[j].Code })
	sort.Slice(expense.Lines, func(i, j int) bool { return expense.Lines[i].Code < expense.Lines[j].Code })

	return IncomeStatement{
		From:      from,
		To:        to,
		Revenue:   revenue,
		Expense:   expense,
		NetIncome: revenue.Total.Sub(expense.Total),
	}
}
