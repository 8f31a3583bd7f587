package ledger

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("ledger: validation failed")
	// ErrStaleReference is matched by every *StaleReferenceError.
	ErrStaleReference = errors.New("ledger: stale reference")
	// ErrAlreadyReversed is matched by every *AlreadyReversedError.
	ErrAlreadyReversed = errors.New("ledger: voucher already reversed")
	// ErrReconciliation is matched by every *ReconciliationError.
	ErrReconciliation = errors.New("ledger: reconciliation failed")

	// ErrVoucherNotFound indicates a missing voucher.
	ErrVoucherNotFound = errors.New("ledger: voucher not found")
	// ErrAccountNotFound indicates a missing account.
	ErrAccountNotFound = errors.New("ledger: account not found")
	// ErrInvalidStatus indicates a voucher state machine violation.
	ErrInvalidStatus = errors.New("ledger: invalid status transition")
	// ErrDuplicateCode indicates an account code collision.
	ErrDuplicateCode = errors.New("ledger: account code already exists")
	// ErrMappingNotFound indicates there is no active account mapping.
	ErrMappingNotFound = errors.New("ledger: active account mapping not found")
)

// ValidationError describes a structurally or arithmetically invalid posting.
type ValidationError struct {
	Field  string
	Line   int
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Line >= 0 && e.Field != "" {
		return fmt.Sprintf("ledger: line %d %s: %s", e.Line, e.Field, e.Reason)
	}
	if e.Field != "" {
		return fmt.Sprintf("ledger: %s: %s", e.Field, e.Reason)
	}
	return "ledger: " + e.Reason
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Line: -1, Reason: reason}
}

func invalidLine(line int, field, reason string) *ValidationError {
	return &ValidationError{Field: field, Line: line, Reason: reason}
}

// StaleReferenceError reports an account or voucher that changed state
// between validation and commit.
type StaleReferenceError struct {
	Entity string
	ID     uuid.UUID
	Reason string
}

func (e *StaleReferenceError) Error() string {
	return fmt.Sprintf("ledger: stale %s %s: %s", e.Entity, e.ID, e.Reason)
}

// Is lets errors.Is(err, ErrStaleReference) match.
func (e *StaleReferenceError) Is(target error) bool {
	return target == ErrStaleReference
}

// AlreadyReversedError reports an attempt to reverse a cancelled voucher.
type AlreadyReversedError struct {
	VoucherID uuid.UUID
	Number    string
}

func (e *AlreadyReversedError) Error() string {
	return fmt.Sprintf("ledger: voucher %s already reversed", e.Number)
}

// Is lets errors.Is(err, ErrAlreadyReversed) match.
func (e *AlreadyReversedError) Is(target error) bool {
	return target == ErrAlreadyReversed
}

// ReconciliationError reports a broken accounting identity.
type ReconciliationError struct {
	Report string
	Check  string
	Left   decimal.Decimal
	Right  decimal.Decimal
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("ledger: %s %s out of balance: %s != %s (difference %s)",
		e.Report, e.Check, e.Left.StringFixed(2), e.Right.StringFixed(2), e.Difference().StringFixed(2))
}

// Difference returns Left - Right.
func (e *ReconciliationError) Difference() decimal.Decimal {
	return e.Left.Sub(e.Right)
}

// Is lets errors.Is(err, ErrReconciliation) match.
func (e *ReconciliationError) Is(target error) bool {
	return target == ErrReconciliation
}
