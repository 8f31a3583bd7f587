package testing

import (
	"os"
	stdtesting "testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/app"
)

func TestMain(m *stdtesting.M) {
	EnsureTestMode()
	app.RefreshTestMode()
	os.Exit(m.Run())
}

func TestRuntimeInTestMode(t *stdtesting.T) {
	require.Equal(t, "1", os.Getenv("LEDGER_TEST_MODE"))
	require.True(t, app.InTestMode())
}
