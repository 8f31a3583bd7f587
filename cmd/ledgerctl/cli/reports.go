package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-ledger/internal/ledger/reporter"
	"github.com/odyssey-erp/odyssey-ledger/internal/ledger/reports"
	"github.com/odyssey-erp/odyssey-ledger/jobs"
)

const dateLayout = "2006-01-02"

// errAnomalies makes reconcile exit non-zero without printing usage.
var errAnomalies = errors.New("ledger integrity anomalies found")

func newReportCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print financial reports",
	}
	cmd.AddCommand(newTrialBalanceCommand(e))
	return cmd
}

func newTrialBalanceCommand(e *env) *cobra.Command {
	var asOf, currencyCode string
	cmd := &cobra.Command{
		Use:   "trial-balance",
		Short: "Print the trial balance as of a date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := parseAsOf(asOf)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := e.pool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := reporter.NewService(reporter.NewPGStore(pool, e.cfg.ReportStatementTimeout), nil, e.logger, e.cfg.ReportTimeout)
			tb, err := svc.TrialBalance(ctx, date)
			if err != nil {
				return err
			}
			return printTrialBalance(cmd.OutOrStdout(), tb, currencyCode)
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "report date (YYYY-MM-DD), defaults to today")
	cmd.Flags().StringVar(&currencyCode, "currency", "IDR", "ISO currency code shown on totals")
	return cmd
}

func printTrialBalance(w io.Writer, tb reports.TrialBalance, currencyCode string) error {
	p := newPrinter()
	fmt.Fprintf(w, "Trial balance as of %s\n\n", tb.AsOf.Format(dateLayout))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "CODE\tNAME\tDEBIT\tCREDIT\t")
	for _, grp := range tb.Groups {
		for _, acc := range grp.Accounts {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", acc.Code, acc.Name, p.amount(acc.Debit), p.amount(acc.Credit))
		}
		fmt.Fprintf(tw, "\tgroup %s\t%s\t%s\t\n", grp.Key, p.amount(grp.Debit), p.amount(grp.Credit))
	}
	fmt.Fprintf(tw, "\tTOTAL\t%s\t%s\t\n", p.money(currencyCode, tb.TotalDebit), p.money(currencyCode, tb.TotalCredit))
	if err := tw.Flush(); err != nil {
		return err
	}
	if !tb.IsBalanced {
		fmt.Fprintf(w, "\nOUT OF BALANCE by %s\n", p.money(currencyCode, tb.Difference))
	}
	return nil
}

func newReconcileCommand(e *env) *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run the ledger integrity checks and exit non-zero on anomalies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := parseAsOf(asOf)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := e.pool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			job := jobs.NewGLIntegrityJob(reporter.NewPGStore(pool, e.cfg.ReportStatementTimeout), e.logger, nil)
			report, err := job.Scan(ctx, date)
			if err != nil {
				return err
			}
			printIntegrity(cmd.OutOrStdout(), report)
			if report.Anomalies() > 0 {
				return errAnomalies
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "trial balance date (YYYY-MM-DD), defaults to today")
	return cmd
}

func printIntegrity(w io.Writer, report jobs.IntegrityReport) {
	p := newPrinter()
	for _, v := range report.Unbalanced {
		fmt.Fprintf(w, "unbalanced voucher %s: debit %s credit %s\n", v.Number, p.amount(v.Debit), p.amount(v.Credit))
	}
	for _, d := range report.Drifts {
		fmt.Fprintf(w, "balance drift on %s: stored %s computed %s\n", d.Code, p.amount(d.Stored), p.amount(d.Computed))
	}
	if tb := report.TrialBalance; tb != nil {
		fmt.Fprintf(w, "trial balance out of balance: debit %s credit %s\n", p.amount(tb.Left), p.amount(tb.Right))
	}
	if report.Anomalies() == 0 {
		fmt.Fprintf(w, "ledger consistent as of %s\n", report.AsOf.Format(dateLayout))
	}
}

func parseAsOf(value string) (time.Time, error) {
	if value == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --as-of %q: %w", value, err)
	}
	return t, nil
}
