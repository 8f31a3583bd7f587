package ledger

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestImportChartIsIdempotentAndOrdersParents(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	entries := []ChartEntry{
		{Code: "1.1.1", Name: "Petty Cash", Type: AccountTypeAsset, Cash: true},
		{Code: "1.1", Name: "Cash", Type: AccountTypeAsset, Group: true},
		{Code: "1", Name: "Assets", Type: AccountTypeAsset, Group: true},
	}
	res, err := svc.ImportChart(ctx, entries, "tester")
	require.NoError(t, err)
	require.Equal(t, ImportResult{Created: 3}, res)

	res, err = svc.ImportChart(ctx, entries, "tester")
	require.NoError(t, err)
	require.Equal(t, ImportResult{Skipped: 3}, res)

	accounts, err := svc.ListAccounts(ctx)
	require.NoError(t, err)
	require.Equal(t, "1", accounts[0].Code)
	require.True(t, accounts[2].IsCash)
}

func TestImportChartRollsBackOnError(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil, nil)
	_, err := svc.ImportChart(context.Background(), []ChartEntry{
		{Code: "1", Name: "Assets", Type: AccountTypeAsset, Group: true},
		{Code: "1.1", Name: "Sales", Type: AccountTypeRevenue},
	}, "tester")
	require.ErrorIs(t, err, ErrValidation)
	require.Contains(t, err.Error(), "account 1.1")

	accounts, err := svc.ListAccounts(context.Background())
	require.NoError(t, err)
	require.Empty(t, accounts)
}

func TestCreateAccountRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input CreateAccountInput
		field string
	}{
		{"bad code", CreateAccountInput{Code: "1.a", Name: "X", Type: AccountTypeAsset}, "code"},
		{"missing parent", CreateAccountInput{Code: "9.1", Name: "X", Type: AccountTypeAsset}, "code"},
		{"parent not group", CreateAccountInput{Code: "1.2.1", Name: "X", Type: AccountTypeAsset}, "code"},
		{"type mismatch", CreateAccountInput{Code: "1.1.9", Name: "X", Type: AccountTypeExpense}, "type"},
		{"blank name", CreateAccountInput{Code: "1.1.9", Name: "  ", Type: AccountTypeAsset}, "name"},
		{"unknown type", CreateAccountInput{Code: "9", Name: "X", Type: "other"}, "type"},
		{"cash liability", CreateAccountInput{Code: "2.9", Name: "X", Type: AccountTypeLiability, IsCash: true}, "is_cash"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateAccount(ctx, tc.input)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.Equal(t, tc.field, verr.Field)
		})
	}

	acc, err := f.svc.CreateAccount(ctx, CreateAccountInput{Code: " 1.1.3 ", Name: "Savings", Type: AccountTypeAsset, IsCash: true, Actor: "tester"})
	require.NoError(t, err)
	require.Equal(t, "1.1.3", acc.Code)
	require.True(t, acc.IsActive)
	require.Contains(t, f.audit.actions(), "account.create")

	_, err = f.svc.CreateAccount(ctx, CreateAccountInput{Code: "1.1.3", Name: "Again", Type: AccountTypeAsset})
	require.ErrorIs(t, err, ErrDuplicateCode)

	got, err := f.svc.GetAccountByCode(ctx, "1.1.3")
	require.NoError(t, err)
	require.Equal(t, acc.ID, got.ID)
	_, err = f.svc.GetAccountByCode(ctx, "7.7")
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestParseChart(t *testing.T) {
	entries, err := ParseChart(strings.NewReader(`
accounts:
  - code: "1"
    name: Assets
    type: asset
    group: true
  - code: "1.1"
    name: Cash
    type: asset
    cash: true
`))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.True(t, entries[1].Cash)

	_, err = ParseChart(strings.NewReader("accounts: []\n"))
	require.ErrorIs(t, err, ErrValidation)

	_, err = ParseChart(strings.NewReader("accounts:\n  - code: \"1\"\n    colour: red\n"))
	require.Error(t, err)
}

func TestDefaultChartIsImportable(t *testing.T) {
	svc := NewService(newMemRepo(), nil, nil)
	res, err := svc.ImportChart(context.Background(), DefaultChart(), "tester")
	require.NoError(t, err)
	require.Equal(t, len(DefaultChart()), res.Created)
}

func TestActivateMapping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	active, err := f.svc.ActiveMapping(ctx)
	require.NoError(t, err)
	require.Equal(t, f.mapping.ID, active.ID)

	next := f.mapping
	next.Discount = f.id("4.1")
	stored, err := f.svc.ActivateMapping(ctx, next, "tester")
	require.NoError(t, err)
	require.NotEqual(t, f.mapping.ID, stored.ID)

	active, err = f.svc.ActiveMapping(ctx)
	require.NoError(t, err)
	require.Equal(t, stored.ID, active.ID)

	bad := f.mapping
	bad.Tax = f.id("1.1.1")
	_, err = f.svc.ActivateMapping(ctx, bad, "tester")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "tax", verr.Field)

	bad = f.mapping
	bad.Cash = f.id("1.1")
	_, err = f.svc.ActivateMapping(ctx, bad, "tester")
	require.ErrorIs(t, err, ErrValidation)

	bad = f.mapping
	bad.Payable = uuid.Nil
	_, err = f.svc.ActivateMapping(ctx, bad, "tester")
	require.ErrorIs(t, err, ErrValidation)

	active, err = f.svc.ActiveMapping(ctx)
	require.NoError(t, err)
	require.Equal(t, stored.ID, active.ID)
}
