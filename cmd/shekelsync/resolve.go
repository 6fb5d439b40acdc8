package main

import (
	"fmt"

	"github.com/shekelsync/shekelsync/internal/cli"
	"github.com/shekelsync/shekelsync/internal/recon"
	"github.com/spf13/cobra"
)

func resolveCmd() *cobra.Command {
	var (
		action    string
		cycleDate string
		feeName   string
		feeDate   string
		feeAmount float64
	)

	cmd := &cobra.Command{
		Use:   "resolve <pairing-id>",
		Short: "Resolve a flagged discrepancy",
		Long: `Resolve a pairing's discrepancy either by acknowledging it (ignore) or by
recording the missing card fee as a synthetic transaction (add_cc_fee).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parsePairingID(args[0])
			if err != nil {
				return err
			}

			req := recon.ResolveRequest{
				PairingID: id,
				Action:    action,
				CycleDate: cycleDate,
			}
			if action == recon.ActionAddCCFee {
				req.FeeDetails = &recon.FeeDetails{
					Name:   feeName,
					Date:   feeDate,
					Amount: feeAmount,
				}
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			result, err := newEngine(store).ResolveDiscrepancy(ctx, req)
			if err != nil {
				return err
			}

			switch result.Action {
			case recon.ActionIgnore:
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("Acknowledged discrepancy on pairing #%d", result.PairingID)))
			case recon.ActionAddCCFee:
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("Recorded fee %s (%.2f) on pairing #%d",
					result.TransactionID, -result.Transaction.Price, result.PairingID)))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&action, "action", recon.ActionIgnore, "resolution action (ignore, add_cc_fee)")
	cmd.Flags().StringVar(&cycleDate, "cycle-date", "", "cycle date being acknowledged (YYYY-MM-DD)")
	cmd.Flags().StringVar(&feeName, "fee-name", "", "fee transaction name")
	cmd.Flags().StringVar(&feeDate, "fee-date", "", "fee date (YYYY-MM-DD)")
	cmd.Flags().Float64Var(&feeAmount, "fee-amount", 0, "fee amount (positive)")
	return cmd
}
