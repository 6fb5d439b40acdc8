package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/shekelsync/shekelsync/internal/cli"
	"github.com/shekelsync/shekelsync/internal/recon"
	"github.com/spf13/cobra"
)

func smartMatchCmd() *cobra.Command {
	var (
		vendor        string
		account       string
		nickname      string
		partialDigits string
	)

	cmd := &cobra.Command{
		Use:   "smartmatch",
		Short: "Search bank transactions for mentions of a card",
		Long: `Search bank transactions for a card described by vendor, account digits,
nickname, or partial digits, and rank the hits by confidence. Useful when
auto-detection finds nothing and you want to pair manually.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			hits, err := newEngine(store).SmartMatch(ctx, recon.SmartMatchRequest{
				Vendor:        vendor,
				AccountNumber: optionalString(account),
				Nickname:      nickname,
				PartialDigits: partialDigits,
			})
			if err != nil {
				return err
			}

			if len(hits) == 0 {
				fmt.Println(cli.InfoStyle.Render("No matching transactions found."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", "Score", "Date", "Vendor", "Name", "Matched")
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				strings.Repeat("-", 5), strings.Repeat("-", 10), strings.Repeat("-", 12),
				strings.Repeat("-", 32), strings.Repeat("-", 24))

			for i := range hits {
				h := &hits[i]
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
					h.Confidence,
					h.Transaction.Date.Format("2006-01-02"),
					h.Transaction.Vendor,
					h.Transaction.Name,
					strings.Join(h.MatchedPatterns, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&vendor, "vendor", "", "credit card vendor")
	cmd.Flags().StringVar(&account, "account", "", "credit card account number")
	cmd.Flags().StringVar(&nickname, "nickname", "", "card nickname to match")
	cmd.Flags().StringVar(&partialDigits, "digits", "", "partial card digits")
	return cmd
}
