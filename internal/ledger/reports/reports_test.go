package reports

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleBalances() []AccountBalance {
	return []AccountBalance{
		{Code: "1.1.1", Name: "Cash", Type: ledger.AccountTypeAsset, IsActive: true, IsCash: true, Debit: d("1500"), Credit: d("300")},
		{Code: "1.2", Name: "Receivable", Type: ledger.AccountTypeAsset, IsActive: true, Debit: d("400")},
		{Code: "2.1", Name: "Payable", Type: ledger.AccountTypeLiability, IsActive: true, Credit: d("200")},
		{Code: "3.1", Name: "Capital", Type: ledger.AccountTypeEquity, IsActive: true, Credit: d("1000")},
		{Code: "4.1", Name: "Sales", Type: ledger.AccountTypeRevenue, IsActive: true, Credit: d("900")},
		{Code: "5.3", Name: "Opex", Type: ledger.AccountTypeExpense, IsActive: true, Debit: d("500")},
		{Code: "5.9", Name: "Retired", Type: ledger.AccountTypeExpense},
		{Code: "2.9", Name: "Retired with balance", Type: ledger.AccountTypeLiability, Debit: d("0")},
	}
}

func TestBuildTrialBalance(t *testing.T) {
	asOf := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	tb := BuildTrialBalance(asOf, sampleBalances())

	require.True(t, tb.IsBalanced)
	require.True(t, tb.TotalDebit.Equal(d("2100")))
	require.True(t, tb.TotalCredit.Equal(d("2100")))
	require.True(t, tb.Difference.IsZero())
	require.NoError(t, tb.Reconcile())

	keys := make([]string, 0, len(tb.Groups))
	for _, g := range tb.Groups {
		keys = append(keys, g.Key)
	}
	require.Equal(t, []string{"1", "2", "3", "4", "5"}, keys)
	require.Len(t, tb.Groups[0].Accounts, 2)
	require.True(t, tb.Groups[0].Accounts[0].Debit.Equal(d("1200")))
	require.True(t, tb.Groups[3].Accounts[0].Credit.Equal(d("900")))
	require.True(t, tb.Groups[3].Accounts[0].Balance.Equal(d("900")))
	// inactive zero-balance accounts are dropped
	require.Len(t, tb.Groups[4].Accounts, 1)
	require.Len(t, tb.Groups[1].Accounts, 1)
}

func TestTrialBalanceKeepsInactiveAccountWithBalance(t *testing.T) {
	tb := BuildTrialBalance(time.Now(), []AccountBalance{
		{Code: "1.1", Type: ledger.AccountTypeAsset, Debit: d("10")},
		{Code: "3.1", Type: ledger.AccountTypeEquity, IsActive: true, Credit: d("10")},
	})
	require.Len(t, tb.Groups, 2)
	require.True(t, tb.IsBalanced)
}

func TestTrialBalanceFlagsImbalance(t *testing.T) {
	tb := BuildTrialBalance(time.Now(), []AccountBalance{
		{Code: "1.1", Type: ledger.AccountTypeAsset, IsActive: true, Debit: d("200")},
		{Code: "3.1", Type: ledger.AccountTypeEquity, IsActive: true, Credit: d("150")},
	})
	require.False(t, tb.IsBalanced)
	require.True(t, tb.Difference.Equal(d("50")))

	err := Check(tb)
	var rec *ledger.ReconciliationError
	require.True(t, errors.As(err, &rec))
	require.Equal(t, "trial_balance", rec.Report)
	require.True(t, rec.Difference().Equal(d("50")))
	require.ErrorIs(t, err, ledger.ErrReconciliation)
}

func TestBuildIncomeStatement(t *testing.T) {
	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	is := BuildIncomeStatement(from, to, sampleBalances())

	require.True(t, is.Revenue.Total.Equal(d("900")))
	require.True(t, is.Expense.Total.Equal(d("500")))
	require.True(t, is.NetIncome.Equal(d("400")))
	require.Len(t, is.Revenue.Lines, 1)
	require.Equal(t, "5.3", is.Expense.Lines[0].Code)
}

func TestBuildBalanceSheet(t *testing.T) {
	bs := BuildBalanceSheet(time.Now(), sampleBalances())

	require.True(t, bs.Assets.Total.Equal(d("1600")))
	require.True(t, bs.Liabilities.Total.Equal(d("200")))
	require.True(t, bs.CurrentEarnings.Equal(d("400")))
	require.True(t, bs.TotalLiabilitiesAndEquity.Equal(d("1600")))
	require.True(t, bs.IsBalanced)
	require.NoError(t, bs.Reconcile())

	last := bs.Equity.Lines[len(bs.Equity.Lines)-1]
	require.Equal(t, CurrentEarningsLabel, last.Name)
}

func TestBalanceSheetFlagsBrokenIdentity(t *testing.T) {
	bs := BuildBalanceSheet(time.Now(), []AccountBalance{
		{Code: "1.1", Type: ledger.AccountTypeAsset, Debit: d("100")},
		{Code: "2.1", Type: ledger.AccountTypeLiability, Credit: d("60")},
	})
	require.False(t, bs.IsBalanced)
	require.True(t, bs.Difference.Equal(d("40")))

	var rec *ledger.ReconciliationError
	require.ErrorAs(t, bs.Reconcile(), &rec)
	require.Equal(t, "accounting_identity", rec.Check)
}

func TestBuildCashFlow(t *testing.T) {
	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	cf := BuildCashFlow(from, from.AddDate(0, 1, -1), d("100"), []CashMovement{
		{VoucherType: ledger.VoucherTypeReceipt, Debit: d("500")},
		{VoucherType: ledger.VoucherTypePayment, Credit: d("120")},
		{VoucherType: ledger.VoucherTypeJournal, Debit: d("30"), Credit: d("10")},
		{VoucherType: ledger.VoucherTypeReceipt, Debit: d("50")},
	})

	require.Len(t, cf.Inflows, 2)
	require.Equal(t, ledger.VoucherTypeJournal, cf.Inflows[0].VoucherType)
	require.True(t, cf.Inflows[1].Amount.Equal(d("550")))
	require.True(t, cf.TotalInflow.Equal(d("580")))
	require.True(t, cf.TotalOutflow.Equal(d("130")))
	require.True(t, cf.NetChange.Equal(d("450")))
	require.True(t, cf.Closing.Equal(d("550")))
}

func TestAccountBalanceHelpers(t *testing.T) {
	a := AccountBalance{Code: "4.1.2", Type: ledger.AccountTypeRevenue, Debit: d("5"), Credit: d("20")}
	require.True(t, a.Balance().Equal(d("15")))
	require.Equal(t, "4", a.GroupKey())
	require.Equal(t, "7", AccountBalance{Code: "7"}.GroupKey())
}

func TestCashPositionUsesSignedBalances(t *testing.T) {
	require.True(t, CashPosition(sampleBalances()).Equal(d("1200")))
	require.True(t, CashPosition([]AccountBalance{
		{Code: "1.1.1", Type: ledger.AccountTypeAsset, IsCash: true, Debit: d("50"), Credit: d("80")},
		{Code: "1.1.2", Type: ledger.AccountTypeAsset, IsCash: true, Debit: d("100")},
		{Code: "4.1", Type: ledger.AccountTypeRevenue, Credit: d("999")},
	}).Equal(d("70")))
	require.True(t, CashPosition(nil).IsZero())
}
