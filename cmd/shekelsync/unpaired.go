package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/shekelsync/shekelsync/internal/cli"
	"github.com/spf13/cobra"
)

func unpairedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unpaired",
		Short: "Count repayments not covered by any pairing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			report, err := newEngine(store).UnpairedTransactions(ctx)
			if err != nil {
				return err
			}

			if report.Count == 0 {
				fmt.Println(cli.FormatSuccess("Every repayment is covered by a pairing."))
				return nil
			}

			fmt.Println(cli.FormatWarning(fmt.Sprintf("%d repayments are not covered by any pairing", report.Count)))

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", "Date", "Vendor", "Name", "Amount")
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				strings.Repeat("-", 10), strings.Repeat("-", 12), strings.Repeat("-", 32), strings.Repeat("-", 10))

			for i := range report.Transactions {
				t := &report.Transactions[i]
				fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\n",
					t.Date.Format("2006-01-02"), t.Vendor, t.Name, t.Price)
			}
			return nil
		},
	}
}
