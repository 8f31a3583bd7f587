package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-ledger/internal/app"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
)

// env carries the configuration shared by every subcommand.
type env struct {
	envFile string
	cfg     *app.Config
	logger  *slog.Logger
}

// NewRootCommand creates the ledgerctl command tree.
func NewRootCommand() *cobra.Command {
	e := &env{}
	rootCmd := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Operate the Odyssey ledger",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.load()
		},
	}
	rootCmd.PersistentFlags().StringVar(&e.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	rootCmd.AddCommand(
		newMigrateCommand(e),
		newAccountsCommand(e),
		newReportCommand(e),
		newReconcileCommand(e),
		newJobsCommand(e),
	)
	return rootCmd
}

func (e *env) load() error {
	if e.cfg != nil {
		return nil
	}
	// a missing file is fine; the environment may already be populated
	_ = godotenv.Load(e.envFile)
	cfg, err := app.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	e.cfg = cfg
	e.logger = app.NewLogger(cfg)
	return nil
}

func (e *env) pool(ctx context.Context) (*pgxpool.Pool, error) {
	return db.New(ctx, e.cfg.PGDSN, e.cfg.PGMaxConns)
}
