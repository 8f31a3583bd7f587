package ledger

import "github.com/shopspring/decimal"

// Tolerance is the largest debit/credit difference treated as balanced:
// one hundredth of a cent. Amounts are stored with two decimals, so
// balanced totals must agree exactly.
var Tolerance = decimal.New(1, -4)

// NormalSide returns the side that increases an account of type t.
func NormalSide(t AccountType) Side {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return SideDebit
	default:
		return SideCredit
	}
}

// SignedAmount converts a debit/credit pair into the change of an account's
// balance expressed on its normal side. Every balance computation in the
// module goes through this function.
func SignedAmount(t AccountType, debit, credit decimal.Decimal) decimal.Decimal {
	if NormalSide(t) == SideDebit {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

// Balanced reports whether two totals agree within Tolerance.
func Balanced(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}

// Round2 rounds a monetary amount to two decimal places.
func Round2(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}
