// Package testing flips the runtime into test mode so binaries imported by
// tests skip their network side effects.
package testing

import (
	"os"
	"sync"
)

var once sync.Once

// EnsureTestMode sets LEDGER_TEST_MODE once for the process.
func EnsureTestMode() {
	once.Do(func() {
		_ = os.Setenv("LEDGER_TEST_MODE", "1")
	})
}

func init() {
	EnsureTestMode()
}
