package reports

// Reconcilable is a report that can verify its own accounting identity.
type Reconcilable interface {
	Reconcile() error
}

// Check returns the report's *ledger.ReconciliationError, or nil when it balances.
func Check(r Reconcilable) error {
	return r.Reconcile()
}
