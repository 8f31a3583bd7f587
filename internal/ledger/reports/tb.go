package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
)

// TrialBalanceAccount represents a row inside a trial balance group.
type TrialBalanceAccount struct {
	Code    string             `json:"code"`
	Name    string             `json:"name"`
	Type    ledger.AccountType `json:"type"`
	Balance decimal.Decimal    `json:"balance"`
	Debit   decimal.Decimal    `json:"debit"`
	Credit  decimal.Decimal    `json:"credit"`
}

// TrialBalanceGroup aggregates accounts sharing a top-level code.
type TrialBalanceGroup struct {
	Key      string                `json:"key"`
	Accounts []TrialBalanceAccount `json:"accounts"`
	Debit    decimal.Decimal       `json:"debit"`
	Credit   decimal.Decimal       `json:"credit"`
}

// TrialBalance lists every account balance as of a date.
type TrialBalance struct {
	AsOf        time.Time           `json:"asOf"`
	Groups      []TrialBalanceGroup `json:"groups"`
	TotalDebit  decimal.Decimal     `json:"totalDebit"`
	TotalCredit decimal.Decimal     `json:"totalCredit"`
	Difference  decimal.Decimal     `json:"difference"`
	IsBalanced  bool                `json:"isBalanced"`
}

// BuildTrialBalance places each account's net balance in the debit or
// credit column. Active accounts are always listed; inactive accounts only
// while they still carry a balance.
func BuildTrialBalance(asOf time.Time, accounts []AccountBalance) TrialBalance {
	groups := make(map[string]*TrialBalanceGroup)
	keys := make([]string, 0)
	for _, acc := range accounts {
		net := acc.Debit.Sub(acc.Credit)
		if !acc.IsActive && net.IsZero() {
			continue
		}
		key := acc.GroupKey()
		grp, ok := groups[key]
		if !ok {
			grp = &TrialBalanceGroup{Key: key}
			groups[key] = grp
			keys = append(keys, key)
		}
		row := TrialBalanceAccount{Code: acc.Code, Name: acc.Name, Type: acc.Type, Balance: acc.Balance()}
		if net.IsNegative() {
			row.Credit = net.Neg()
		} else {
			row.Debit = net
		}
		grp.Accounts = append(grp.Accounts, row)
		grp.Debit = grp.Debit.Add(row.Debit)
		grp.Credit = grp.Credit.Add(row.Credit)
	}

	sort.Strings(keys)
	result := TrialBalance{AsOf: asOf}
	for _, key := range keys {
		grp := groups[key]
		sort.Slice(grp.Accounts, func(i, j int) bool {
			return grp.Accounts[i].Code < grp.Accounts[j].Code
		})
		result.Groups = append(result.Groups, *grp)
		result.TotalDebit = result.TotalDebit.Add(grp.Debit)
		result.TotalCredit = result.TotalCredit.Add(grp.Credit)
	}
	result.Difference = result.TotalDebit.Sub(result.TotalCredit)
	result.IsBalanced = ledger.Balanced(result.TotalDebit, result.TotalCredit)
	return result
}

// Reconcile returns a *ledger.ReconciliationError when debits and credits differ.
func (tb TrialBalance) Reconcile() error {
	if tb.IsBalanced {
		return nil
	}
	return &ledger.ReconciliationError{Report: "trial_balance", Check: "debit_credit", Left: tb.TotalDebit, Right: tb.TotalCredit}
}
