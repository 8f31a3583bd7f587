package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/odyssey-erp/odyssey-ledger/internal/audit"
)

var codePattern = regexp.MustCompile(`^\d+(\.\d+)*$`)

// CreateAccountInput carries the fields of a new chart node.
type CreateAccountInput struct {
	Code    string
	Name    string
	Type    AccountType
	IsGroup bool
	IsCash  bool
	Actor   string
}

// ChartEntry is one account in a chart of accounts file.
type ChartEntry struct {
	Code  string      `yaml:"code"`
	Name  string      `yaml:"name"`
	Type  AccountType `yaml:"type"`
	Group bool        `yaml:"group"`
	Cash  bool        `yaml:"cash"`
}

type chartFile struct {
	Accounts []ChartEntry `yaml:"accounts"`
}

// ImportResult summarises a chart import.
type ImportResult struct {
	Created int
	Skipped int
}

// CreateAccount adds an account under an existing group parent.
func (s *Service) CreateAccount(ctx context.Context, input CreateAccountInput) (Account, error) {
	var created Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		created, err = createAccount(ctx, tx, input)
		return err
	})
	if err != nil {
		return Account{}, err
	}
	s.record(ctx, audit.Log{
		Actor:    input.Actor,
		Action:   "account.create",
		Entity:   "account",
		EntityID: created.ID.String(),
		Meta:     map[string]any{"code": created.Code, "type": string(created.Type)},
	})
	return created, nil
}

// ListAccounts returns the chart ordered by code.
func (s *Service) ListAccounts(ctx context.Context) ([]Account, error) {
	var accounts []Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		accounts, err = tx.ListAccounts(ctx)
		return err
	})
	return accounts, err
}

// GetAccountByCode resolves an account from its hierarchical code.
func (s *Service) GetAccountByCode(ctx context.Context, code string) (Account, error) {
	var acc Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		acc, err = tx.GetAccountByCode(ctx, strings.TrimSpace(code))
		return err
	})
	return acc, err
}

// DeactivateAccount retires an account. Accounts carrying a balance are
// refused unless force is set.
func (s *Service) DeactivateAccount(ctx context.Context, code string, force bool, actor string) (Account, error) {
	var acc Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		found, err := tx.GetAccountByCode(ctx, strings.TrimSpace(code))
		if err != nil {
			return err
		}
		locked, err := tx.LockAccounts(ctx, []uuid.UUID{found.ID})
		if err != nil {
			return err
		}
		acc = locked[found.ID]
		if !acc.IsActive {
			return nil
		}
		if !acc.Balance.IsZero() && !force {
			return invalid("balance", fmt.Sprintf("account %s carries a balance of %s", acc.Code, acc.Balance.StringFixed(2)))
		}
		if err := tx.SetAccountActive(ctx, acc.ID, false); err != nil {
			return err
		}
		acc.IsActive = false
		return nil
	})
	if err != nil {
		return Account{}, err
	}
	s.record(ctx, audit.Log{
		Actor:    actor,
		Action:   "account.deactivate",
		Entity:   "account",
		EntityID: acc.ID.String(),
		Meta:     map[string]any{"code": acc.Code, "forced": force},
	})
	return acc, nil
}

// ImportChart creates every entry that does not exist yet. Parents are
// created before their children regardless of file order.
func (s *Service) ImportChart(ctx context.Context, entries []ChartEntry, actor string) (ImportResult, error) {
	ordered := make([]ChartEntry, len(entries))
	copy(ordered, entries)
	sort.SliceStable(ordered, func(i, j int) bool {
		di, dj := strings.Count(ordered[i].Code, "."), strings.Count(ordered[j].Code, ".")
		if di != dj {
			return di < dj
		}
		return ordered[i].Code < ordered[j].Code
	})
	var result ImportResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, entry := range ordered {
			_, err := tx.GetAccountByCode(ctx, entry.Code)
			if err == nil {
				result.Skipped++
				continue
			}
			if !errors.Is(err, ErrAccountNotFound) {
				return err
			}
			if _, err := createAccount(ctx, tx, CreateAccountInput{
				Code:    entry.Code,
				Name:    entry.Name,
				Type:    entry.Type,
				IsGroup: entry.Group,
				IsCash:  entry.Cash,
				Actor:   actor,
			}); err != nil {
				return fmt.Errorf("account %s: %w", entry.Code, err)
			}
			result.Created++
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	s.logger.Info("chart imported", slog.Int("created", result.Created), slog.Int("skipped", result.Skipped))
	return result, nil
}

// ParseChart decodes a YAML chart of accounts document.
func ParseChart(r io.Reader) ([]ChartEntry, error) {
	var file chartFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode chart: %w", err)
	}
	if len(file.Accounts) == 0 {
		return nil, invalid("accounts", "chart contains no accounts")
	}
	return file.Accounts, nil
}

// DefaultChart returns a minimal chart with one root group per account type.
func DefaultChart() []ChartEntry {
	return []ChartEntry{
		{Code: "1", Name: "Assets", Type: AccountTypeAsset, Group: true},
		{Code: "1.1", Name: "Cash and Bank", Type: AccountTypeAsset, Group: true},
		{Code: "1.1.1", Name: "Cash", Type: AccountTypeAsset, Cash: true},
		{Code: "1.1.2", Name: "Bank", Type: AccountTypeAsset, Cash: true},
		{Code: "1.2", Name: "Accounts Receivable", Type: AccountTypeAsset},
		{Code: "2", Name: "Liabilities", Type: AccountTypeLiability, Group: true},
		{Code: "2.1", Name: "Accounts Payable", Type: AccountTypeLiability},
		{Code: "2.2", Name: "Tax Payable", Type: AccountTypeLiability},
		{Code: "3", Name: "Equity", Type: AccountTypeEquity, Group: true},
		{Code: "3.1", Name: "Owner Capital", Type: AccountTypeEquity},
		{Code: "3.2", Name: "Retained Earnings", Type: AccountTypeEquity},
		{Code: "4", Name: "Revenue", Type: AccountTypeRevenue, Group: true},
		{Code: "4.1", Name: "Sales Revenue", Type: AccountTypeRevenue},
		{Code: "4.2", Name: "Shipping Revenue", Type: AccountTypeRevenue},
		{Code: "5", Name: "Expenses", Type: AccountTypeExpense, Group: true},
		{Code: "5.1", Name: "Cost of Goods Sold", Type: AccountTypeExpense},
		{Code: "5.2", Name: "Sales Discounts", Type: AccountTypeExpense},
		{Code: "5.3", Name: "Operating Expenses", Type: AccountTypeExpense},
	}
}

func createAccount(ctx context.Context, tx TxRepository, input CreateAccountInput) (Account, error) {
	code := strings.TrimSpace(input.Code)
	if !codePattern.MatchString(code) {
		return Account{}, invalid("code", fmt.Sprintf("%q is not a dotted numeric code", input.Code))
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Account{}, invalid("name", "name required")
	}
	if !input.Type.Valid() {
		return Account{}, invalid("type", fmt.Sprintf("unknown account type %q", input.Type))
	}
	if input.IsCash && input.Type != AccountTypeAsset {
		return Account{}, invalid("is_cash", "only asset accounts can be cash accounts")
	}
	if parentCode := ParentCode(code); parentCode != "" {
		parent, err := tx.GetAccountByCode(ctx, parentCode)
		if err != nil {
			if errors.Is(err, ErrAccountNotFound) {
				return Account{}, invalid("code", fmt.Sprintf("parent account %s does not exist", parentCode))
			}
			return Account{}, err
		}
		if !parent.IsGroup {
			return Account{}, invalid("code", fmt.Sprintf("parent account %s is not a group", parentCode))
		}
		if parent.Type != input.Type {
			return Account{}, invalid("type", fmt.Sprintf("account type %s differs from parent type %s", input.Type, parent.Type))
		}
	}
	return tx.InsertAccount(ctx, Account{
		ID:       uuid.New(),
		Code:     code,
		Name:     name,
		Type:     input.Type,
		IsGroup:  input.IsGroup,
		IsCash:   input.IsCash,
		Balance:  decimal.Zero,
		IsActive: true,
	})
}
