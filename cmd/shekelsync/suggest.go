package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/shekelsync/shekelsync/internal/cli"
	"github.com/spf13/cobra"
)

func suggestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest",
		Short: "Suggest unregistered credit cards found in history",
		Long: `Scan transaction history for credit cards that appear in repayments but
have no pairing yet, ranked by detection confidence.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			suggestions, err := newEngine(store).SuggestCards(ctx)
			if err != nil {
				return err
			}

			if len(suggestions) == 0 {
				fmt.Println(cli.FormatSuccess("No unregistered cards detected."))
				return nil
			}

			fmt.Println(cli.FormatTitle("Suggested cards"))

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", "Confidence", "Vendor", "Card", "Mentions")
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				strings.Repeat("-", 10), strings.Repeat("-", 12), strings.Repeat("-", 6), strings.Repeat("-", 8))

			for i := range suggestions {
				s := &suggestions[i]
				card := s.CardNumber
				if card == "" {
					card = "-"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", s.Confidence, s.Vendor, card, s.TransactionCount)
			}
			return nil
		},
	}
}
