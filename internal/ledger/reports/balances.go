package reports

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
)

// AccountBalance is an account with the debit and credit totals of its
// non-cancelled entries over the report window.
type AccountBalance struct {
	AccountID uuid.UUID
	Code      string
	Name      string
	Type      ledger.AccountType
	IsActive  bool
	IsCash    bool
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// Balance returns the signed balance on the account's normal side.
func (a AccountBalance) Balance() decimal.Decimal {
	return ledger.SignedAmount(a.Type, a.Debit, a.Credit)
}

// GroupKey returns the top-level code segment used to group report rows.
func (a AccountBalance) GroupKey() string {
	if idx := strings.Index(a.Code, "."); idx > 0 {
		return a.Code[:idx]
	}
	return a.Code
}

// Line is one account row of a statement section.
type Line struct {
	Code   string          `json:"code"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// Section groups statement lines under a label.
type Section struct {
	Label string          `json:"label"`
	Lines []Line          `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

func (s *Section) add(code, name string, amount decimal.Decimal) {
	s.Lines = append(s.Lines, Line{Code: code, Name: name, Amount: amount})
	s.Total = s.Total.Add(amount)
}
