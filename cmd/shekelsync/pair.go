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

func detectCmd() *cobra.Command {
	var accountNumber string

	cmd := &cobra.Command{
		Use:   "detect <cc-vendor>",
		Short: "Detect which bank account repays a credit card",
		Long: `Scan repayment transactions for mentions of the card's vendor or account
digits and rank the bank accounts most likely to be its payer. This is a
dry run: nothing is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			engine := newEngine(store)
			result, err := engine.FindBestBankAccount(ctx, args[0], optionalString(accountNumber))
			if err != nil {
				return err
			}

			printDetection(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&accountNumber, "account", "", "credit card account number")
	return cmd
}

func pairCmd() *cobra.Command {
	var (
		accountNumber string
		apply         bool
	)

	cmd := &cobra.Command{
		Use:   "pair <cc-vendor>",
		Short: "Auto-pair a credit card with its repaying bank account",
		Long: `Detect the bank account that repays the card, create or refresh the
pairing, optionally recategorize matching transactions, and report any
cycle discrepancy for the new pairing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			engine := newEngine(store)
			result, err := engine.AutoPair(ctx, recon.AutoPairRequest{
				CreditCardVendor:        args[0],
				CreditCardAccountNumber: optionalString(accountNumber),
				ApplyTransactions:       apply,
			})
			if err != nil {
				return err
			}

			if !result.Success {
				fmt.Println(cli.FormatWarning("No bank account paired: " + result.Reason))
				if result.Detection != nil {
					printDetection(result.Detection)
				}
				return nil
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Paired %s/%s with %s/%s (pairing #%d)",
				result.Pairing.CreditCardVendor,
				displayAccount(result.Pairing.CreditCardAccountNumber),
				result.Pairing.BankVendor,
				displayAccount(result.Pairing.BankAccountNumber),
				result.Pairing.ID)))
			if apply {
				fmt.Println(cli.FormatInfo(fmt.Sprintf("Recategorized %d transactions", result.Recategorized)))
			}
			if result.Discrepancy != nil {
				printDiscrepancySummary(result.Discrepancy)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&accountNumber, "account", "", "credit card account number")
	cmd.Flags().BoolVar(&apply, "apply", false, "recategorize matching transactions as card repayments")
	return cmd
}

func printDetection(result *recon.DetectionResult) {
	if !result.Found {
		fmt.Println(cli.FormatWarning("No candidate found: " + result.Reason))
		return
	}

	fmt.Println(cli.FormatTitle("Detected bank account"))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", "Bank", "Account", "Last-4 hits", "Vendor hits", "Repayments")
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
		strings.Repeat("-", 12), strings.Repeat("-", 10), strings.Repeat("-", 11), strings.Repeat("-", 11), strings.Repeat("-", 10))

	printCandidate(w, result.Best)
	for i := range result.RunnersUp {
		printCandidate(w, &result.RunnersUp[i])
	}
}

func printCandidate(w *tabwriter.Writer, c *recon.BankCandidate) {
	fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\n",
		c.BankVendor,
		displayAccount(c.BankAccountNumber),
		c.MatchingLast4Count,
		c.MatchingVendorCount,
		c.TransactionCount)
}
