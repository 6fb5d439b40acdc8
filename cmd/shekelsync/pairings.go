package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/shekelsync/shekelsync/internal/cli"
	"github.com/shekelsync/shekelsync/internal/model"
	"github.com/spf13/cobra"
)

func pairingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pairings",
		Short: "Manage card-to-bank pairings",
		Long:  `List, create, deactivate, reactivate, and delete account pairings, and inspect their audit log.`,
	}

	cmd.AddCommand(pairingsListCmd())
	cmd.AddCommand(pairingsCreateCmd())
	cmd.AddCommand(pairingsPatternsCmd())
	cmd.AddCommand(pairingsDeactivateCmd())
	cmd.AddCommand(pairingsReactivateCmd())
	cmd.AddCommand(pairingsDeleteCmd())
	cmd.AddCommand(pairingsLogCmd())

	return cmd
}

func pairingsListCmd() *cobra.Command {
	var activeOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List account pairings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			pairings, err := newEngine(store).ListPairings(ctx, activeOnly)
			if err != nil {
				return err
			}

			if len(pairings) == 0 {
				fmt.Println(cli.InfoStyle.Render("No pairings found. Use 'shekelsync pair' to create one."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", "ID", "Card", "Card Account", "Bank", "Bank Account", "Active", "Patterns")
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				strings.Repeat("-", 4), strings.Repeat("-", 10), strings.Repeat("-", 12),
				strings.Repeat("-", 10), strings.Repeat("-", 12), strings.Repeat("-", 6), strings.Repeat("-", 24))

			for i := range pairings {
				p := &pairings[i]
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%t\t%s\n",
					p.ID,
					p.CreditCardVendor,
					displayAccount(p.CreditCardAccountNumber),
					p.BankVendor,
					displayAccount(p.BankAccountNumber),
					p.IsActive,
					strings.Join(p.MatchPatterns, ", "))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&activeOnly, "active", false, "show only active pairings")
	return cmd
}

func pairingsCreateCmd() *cobra.Command {
	var (
		ccAccount   string
		bankAccount string
		patterns    []string
	)

	cmd := &cobra.Command{
		Use:   "create <cc-vendor> <bank-vendor>",
		Short: "Create a pairing manually",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			pairing := &model.AccountPairing{
				CreditCardVendor:        args[0],
				CreditCardAccountNumber: optionalString(ccAccount),
				BankVendor:              args[1],
				BankAccountNumber:       optionalString(bankAccount),
				MatchPatterns:           patterns,
				IsActive:                true,
			}
			if err := newEngine(store).CreatePairing(ctx, pairing); err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Created pairing #%d", pairing.ID)))
			return nil
		},
	}

	cmd.Flags().StringVar(&ccAccount, "cc-account", "", "credit card account number")
	cmd.Flags().StringVar(&bankAccount, "bank-account", "", "bank account number")
	cmd.Flags().StringSliceVar(&patterns, "pattern", nil, "match pattern (repeatable)")
	return cmd
}

func pairingsPatternsCmd() *cobra.Command {
	var patterns []string

	cmd := &cobra.Command{
		Use:   "patterns <id>",
		Short: "Replace a pairing's match patterns",
		Long: `Replace the pairing's match patterns. Updating patterns also clears the
pairing's discrepancy acknowledgment, so the next check re-reports it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parsePairingID(args[0])
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			pairing, err := newEngine(store).UpdatePairingPatterns(ctx, id, patterns)
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Updated pairing #%d patterns: %s",
				pairing.ID, strings.Join(pairing.MatchPatterns, ", "))))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&patterns, "pattern", nil, "match pattern (repeatable)")
	_ = cmd.MarkFlagRequired("pattern")
	return cmd
}

func pairingsDeactivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <id>",
		Short: "Deactivate a pairing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setPairingActive(cmd, args[0], false)
		},
	}
}

func pairingsReactivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reactivate <id>",
		Short: "Reactivate a pairing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setPairingActive(cmd, args[0], true)
		},
	}
}

func setPairingActive(cmd *cobra.Command, rawID string, active bool) error {
	ctx := cmd.Context()

	id, err := parsePairingID(rawID)
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	engine := newEngine(store)
	if active {
		err = engine.ReactivatePairing(ctx, id)
	} else {
		err = engine.DeactivatePairing(ctx, id)
	}
	if err != nil {
		return err
	}

	state := "deactivated"
	if active {
		state = "reactivated"
	}
	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Pairing #%d %s", id, state)))
	return nil
}

func pairingsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a pairing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parsePairingID(args[0])
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := newEngine(store).DeletePairing(ctx, id); err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted pairing #%d", id)))
			return nil
		},
	}
}

func pairingsLogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "log <id>",
		Short: "Show a pairing's audit log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parsePairingID(args[0])
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			entries, err := newEngine(store).PairingLog(ctx, id)
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				fmt.Println(cli.InfoStyle.Render("No log entries for this pairing."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintf(w, "%s\t%s\t%s\n", "When", "Action", "Details")
			fmt.Fprintf(w, "%s\t%s\t%s\n",
				strings.Repeat("-", 19), strings.Repeat("-", 12), strings.Repeat("-", 40))
			for i := range entries {
				e := &entries[i]
				fmt.Fprintf(w, "%s\t%s\t%v\n",
					e.CreatedAt.Format("2006-01-02 15:04:05"), e.Action, e.Details)
			}
			return nil
		},
	}
}

func parsePairingID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid pairing id %q", raw)
	}
	return id, nil
}
