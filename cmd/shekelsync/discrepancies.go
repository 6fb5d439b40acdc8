package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"
	"github.com/shekelsync/shekelsync/internal/cli"
	"github.com/shekelsync/shekelsync/internal/recon"
	"github.com/spf13/cobra"
)

func discrepanciesCmd() *cobra.Command {
	var (
		ccVendor    string
		ccAccount   string
		bankVendor  string
		bankAccount string
		monthsBack  int
		all         bool
	)

	cmd := &cobra.Command{
		Use:   "discrepancies",
		Short: "Check billing cycles for bank/card discrepancies",
		Long: `Group a pairing's repayments into billing cycles and compare what the bank
paid against what the card charged in each cycle. With --all, sweep every
active pairing and report only those with unacknowledged discrepancies.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			engine := newEngine(store)

			if all {
				return sweepDiscrepancies(cmd, engine, monthsBack)
			}

			if ccVendor == "" || bankVendor == "" {
				return fmt.Errorf("--cc-vendor and --bank-vendor are required unless --all is set")
			}

			report, err := engine.CheckDiscrepancy(ctx, recon.DiscrepancyRequest{
				CreditCardVendor:        ccVendor,
				CreditCardAccountNumber: optionalString(ccAccount),
				BankVendor:              bankVendor,
				BankAccountNumber:       optionalString(bankAccount),
				MonthsBack:              monthsBack,
			})
			if err != nil {
				return err
			}

			printDiscrepancyReport(report)
			return nil
		},
	}

	cmd.Flags().StringVar(&ccVendor, "cc-vendor", "", "credit card vendor")
	cmd.Flags().StringVar(&ccAccount, "cc-account", "", "credit card account number")
	cmd.Flags().StringVar(&bankVendor, "bank-vendor", "", "bank vendor")
	cmd.Flags().StringVar(&bankAccount, "bank-account", "", "bank account number")
	cmd.Flags().IntVar(&monthsBack, "months", 0, "lookback window in months (default 3)")
	cmd.Flags().BoolVar(&all, "all", false, "sweep every active pairing")
	return cmd
}

// sweepDiscrepancies checks every active pairing and prints the ones whose
// discrepancy is real and unacknowledged.
func sweepDiscrepancies(cmd *cobra.Command, engine *recon.Engine, monthsBack int) error {
	ctx := cmd.Context()

	pairings, err := engine.ListPairings(ctx, true)
	if err != nil {
		return err
	}
	if len(pairings) == 0 {
		fmt.Println(cli.InfoStyle.Render("No active pairings to check."))
		return nil
	}

	bar := progressbar.NewOptions(len(pairings),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Checking pairings...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)

	flagged := 0
	for i := range pairings {
		p := &pairings[i]

		report, err := engine.CheckDiscrepancy(ctx, recon.DiscrepancyRequest{
			CreditCardVendor:        p.CreditCardVendor,
			CreditCardAccountNumber: p.CreditCardAccountNumber,
			BankVendor:              p.BankVendor,
			BankAccountNumber:       p.BankAccountNumber,
			MonthsBack:              monthsBack,
		})
		_ = bar.Add(1)
		if err != nil {
			fmt.Println(cli.FormatError(fmt.Sprintf("pairing #%d: %v", p.ID, err)))
			continue
		}
		if !report.Exists {
			continue
		}

		flagged++
		fmt.Println()
		fmt.Println(cli.FormatTitle(fmt.Sprintf("Pairing #%d: %s/%s ← %s/%s",
			p.ID,
			p.CreditCardVendor, displayAccount(p.CreditCardAccountNumber),
			p.BankVendor, displayAccount(p.BankAccountNumber))))
		printDiscrepancyReport(report)
	}

	fmt.Println()
	if flagged == 0 {
		fmt.Println(cli.FormatSuccess("All pairings reconcile cleanly."))
	} else {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("%d of %d pairings have unacknowledged discrepancies", flagged, len(pairings))))
	}
	return nil
}

func printDiscrepancySummary(report *recon.DiscrepancyReport) {
	if !report.HasDiscrepancy {
		fmt.Println(cli.FormatSuccess("Cycles reconcile cleanly."))
		return
	}
	if report.Acknowledged {
		fmt.Println(cli.FormatInfo(fmt.Sprintf("Discrepancy of %.2f%% acknowledged earlier.", report.PercentDiff)))
		return
	}
	fmt.Println(cli.FormatWarning(fmt.Sprintf("Discrepancy: bank %.2f vs card %.2f (%.2f%%)",
		report.BankTotal, report.CCTotal, report.PercentDiff)))
}

func printDiscrepancyReport(report *recon.DiscrepancyReport) {
	printDiscrepancySummary(report)

	if len(report.Cycles) == 0 {
		fmt.Println(cli.SubtleStyle.Render("No billing cycles in the lookback window."))
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", "Cycle", "Bank", "Card", "Diff", "Status")
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
		strings.Repeat("-", 10), strings.Repeat("-", 10), strings.Repeat("-", 10),
		strings.Repeat("-", 8), strings.Repeat("-", 18))

	for i := range report.Cycles {
		c := &report.Cycles[i]
		fmt.Fprintf(w, "%s\t%.2f\t%s\t%s\t%s\n",
			c.CycleDate.Format("2006-01-02"),
			c.BankTotal,
			formatNullable(c.CCTotal),
			formatNullable(c.Difference),
			c.Status)
	}
}

func formatNullable(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}
