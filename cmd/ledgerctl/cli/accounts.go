package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-ledger/internal/audit"
	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
)

func newAccountsCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage the chart of accounts",
	}
	cmd.AddCommand(newAccountsImportCommand(e), newAccountsListCommand(e))
	return cmd
}

func newAccountsImportCommand(e *env) *cobra.Command {
	var file, actor string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a YAML chart of accounts, or the default chart when no file is given",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := loadChart(file)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := e.pool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := ledger.NewService(ledger.NewRepository(pool), audit.NewLogger(pool), e.logger)
			res, err := svc.ImportChart(ctx, entries, actor)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d, skipped %d\n", res.Created, res.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "chart of accounts YAML file")
	cmd.Flags().StringVar(&actor, "actor", "ledgerctl", "actor recorded in the audit log")
	return cmd
}

func loadChart(path string) ([]ledger.ChartEntry, error) {
	if path == "" {
		return ledger.DefaultChart(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open chart: %w", err)
	}
	defer f.Close()
	return ledger.ParseChart(f)
}

func newAccountsListCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts with their stored balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := e.pool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := ledger.NewService(ledger.NewRepository(pool), nil, e.logger)
			accounts, err := svc.ListAccounts(ctx)
			if err != nil {
				return err
			}
			return printAccounts(cmd.OutOrStdout(), accounts)
		},
	}
}

func printAccounts(w io.Writer, accounts []ledger.Account) error {
	p := newPrinter()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "CODE\tNAME\tTYPE\tBALANCE\t")
	for _, a := range accounts {
		name := a.Name
		if a.IsGroup {
			name += " (group)"
		}
		if !a.IsActive {
			name += " (inactive)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", a.Code, name, a.Type, p.amount(a.Balance))
	}
	return tw.Flush()
}
