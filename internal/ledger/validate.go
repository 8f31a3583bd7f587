package ledger

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// ValidatePosting checks a proposed line set before anything is written.
// It returns the lines unchanged on success and has no side effects.
func ValidatePosting(lines []PostingLine, accounts map[uuid.UUID]Account, cur string, declaredTotal decimal.Decimal) ([]PostingLine, error) {
	if err := validateLines(lines, accounts, cur, declaredTotal, false); err != nil {
		return nil, err
	}
	return lines, nil
}

// validateReversal applies the same rules as ValidatePosting except that
// inactive accounts are accepted: history posted to an account must stay
// reversible after the account is retired.
func validateReversal(lines []PostingLine, accounts map[uuid.UUID]Account, cur string) error {
	return validateLines(lines, accounts, cur, decimal.Zero, true)
}

func validateLines(lines []PostingLine, accounts map[uuid.UUID]Account, cur string, declaredTotal decimal.Decimal, allowInactive bool) error {
	if len(lines) == 0 {
		return invalid("lines", "posting requires at least one line")
	}
	if _, err := currency.ParseISO(cur); err != nil {
		return invalid("currency", fmt.Sprintf("%q is not an ISO 4217 code", cur))
	}
	var debit, credit decimal.Decimal
	for idx, line := range lines {
		if line.AccountID == uuid.Nil {
			return invalidLine(idx, "account", "account required")
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return invalidLine(idx, "amount", "amounts must not be negative")
		}
		lineDebit, lineCredit := Round2(line.Debit), Round2(line.Credit)
		hasDebit := !lineDebit.IsZero()
		hasCredit := !lineCredit.IsZero()
		if hasDebit == hasCredit {
			return invalidLine(idx, "amount", "exactly one of debit or credit must be non-zero")
		}
		acc, ok := accounts[line.AccountID]
		if !ok {
			return invalidLine(idx, "account", fmt.Sprintf("unknown account %s", line.AccountID))
		}
		if acc.IsGroup {
			return invalidLine(idx, "account", fmt.Sprintf("account %s is a group account", acc.Code))
		}
		if !acc.IsActive && !allowInactive {
			return invalidLine(idx, "account", fmt.Sprintf("account %s is inactive", acc.Code))
		}
		debit = debit.Add(lineDebit)
		credit = credit.Add(lineCredit)
	}
	// totals are compared on the amounts that will be stored
	if !Balanced(debit, credit) {
		return invalid("lines", fmt.Sprintf("debits (%s) != credits (%s)", debit.StringFixed(2), credit.StringFixed(2)))
	}
	if !declaredTotal.IsZero() && !Balanced(Round2(declaredTotal), debit) {
		return invalid("total", fmt.Sprintf("declared total %s does not match posted %s", declaredTotal.StringFixed(2), debit.StringFixed(2)))
	}
	return nil
}

// LineAccountIDs returns the distinct account ids referenced by lines.
func LineAccountIDs(lines []PostingLine) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(lines))
	out := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.AccountID]; ok {
			continue
		}
		seen[line.AccountID] = struct{}{}
		out = append(out, line.AccountID)
	}
	return out
}

// TotalDebit sums the debit column of lines.
func TotalDebit(lines []PostingLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Debit)
	}
	return total
}

// debitsTo sums the debit lines posted to accounts of type t. For an invoice
// this is the receivable that settlements draw down.
func debitsTo(lines []PostingLine, accounts map[uuid.UUID]Account, t AccountType) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		if accounts[line.AccountID].Type == t {
			total = total.Add(line.Debit)
		}
	}
	return total
}

func reverseLines(entries []Entry) []PostingLine {
	out := make([]PostingLine, 0, len(entries))
	for _, e := range entries {
		out = append(out, PostingLine{
			AccountID: e.AccountID,
			Debit:     e.Credit,
			Credit:    e.Debit,
			Remarks:   e.Remarks,
		})
	}
	return out
}
