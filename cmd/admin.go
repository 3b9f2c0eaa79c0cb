package cmd

import (
	"context"
	"fmt"

	"giftrank/config"

	"github.com/spf13/cobra"
)

// withApp wires the application for a one-shot command and tears it down afterwards
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(cmd.Context(), config.Get())
	if err != nil {
		return err
	}
	defer a.shutdown()
	return fn(cmd.Context(), a)
}

func offersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "offers",
		Short: "Inspect and manage gift offers",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list <store-id-or-slug>",
		Short: "List every offer of a store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				offers, err := a.adminService.ListOffers(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), offers)
			})
		},
	})

	for _, active := range []bool{true, false} {
		use, short := "enable", "Make an offer available for checkout"
		if !active {
			use, short = "disable", "Stop an offer from being checked out"
		}
		cmd.AddCommand(&cobra.Command{
			Use:   use + " <offer-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, func(ctx context.Context, a *app) error {
					if err := a.adminService.SetOfferActive(ctx, args[0], active); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Offer %s %sd\n", args[0], use)
					return nil
				})
			},
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "reset-link <offer-id>",
		Short: "Forget the memoized checkout link of an offer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.adminService.ResetCheckoutLink(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Checkout link of offer %s cleared\n", args[0])
				return nil
			})
		},
	})

	return cmd
}

func paymentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "payments <store-id-or-slug> [YYYY-MM]",
		Short: "List a store's settled payments for a month (default: current month)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			month := ""
			if len(args) == 2 {
				month = args[1]
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				payments, err := a.adminService.ListPayments(ctx, args[0], month)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), payments)
			})
		},
	}
}
