package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/shekelsync/shekelsync/internal/cli"
	"github.com/spf13/cobra"
)

func settlementCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "settlement",
		Short: "List repayments that could be paired manually",
		Long: `List repayment transactions not covered by any active pairing, grouped by
how they could be paired: an account-number mention or a vendor keyword.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			report, err := newEngine(store).SettlementCandidates(ctx)
			if err != nil {
				return err
			}

			if len(report.Candidates) == 0 {
				fmt.Println(cli.FormatSuccess("No unpaired settlement candidates."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", "Date", "Vendor", "Name", "Amount", "Reason")
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				strings.Repeat("-", 10), strings.Repeat("-", 12), strings.Repeat("-", 32),
				strings.Repeat("-", 10), strings.Repeat("-", 22))

			for i := range report.Candidates {
				c := &report.Candidates[i]
				fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\n",
					c.Transaction.Date.Format("2006-01-02"),
					c.Transaction.Vendor,
					c.Transaction.Name,
					c.Transaction.Price,
					c.MatchReason)
			}
			_ = w.Flush()

			fmt.Println()
			for reason, totals := range report.TotalsByReason {
				fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf("%s: %d transactions, %.2f total",
					reason, totals.Count, totals.Total)))
			}
			return nil
		},
	}
}
