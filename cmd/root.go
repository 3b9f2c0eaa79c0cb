package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"giftrank/config"
	"giftrank/database"
	"giftrank/infrastructure"
	"giftrank/service"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the giftrank command tree
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "giftrank",
		Short:         "Gift payment sync and monthly talent rankings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(rebuildCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(offersCmd())
	rootCmd.AddCommand(paymentsCmd())

	return rootCmd
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and, when SYNC_INTERVAL is set, the sync worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			if addr != "" {
				cfg.HTTPAddr = addr
			}
			return Serve(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides HTTP_ADDR)")
	return cmd
}

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one payment sync and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				result, err := a.syncService.Run(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
}

func rebuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild-ranking [YYYY-MM]",
		Short: "Drop and recompute the cached totals of a month (default: current month)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			month := ""
			if len(args) == 1 {
				month = args[0]
			}

			return withApp(cmd, func(ctx context.Context, a *app) error {
				result, err := a.syncService.Rebuild(ctx, month)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the sample store, talents and gift offers",
		RunE: func(cmd *cobra.Command, args []string) error {
			if config.Get().IsProduction() {
				return fmt.Errorf("refusing to seed sample data in production")
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				result, err := service.SeedSampleData(ctx, a.uowFactory)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			closer, err := infrastructure.SetupLogging(config.Get())
			if err != nil {
				return err
			}
			cobra.OnFinalize(func() { _ = closer.Close() })
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return database.MigrateUp(config.Get().GetDatabaseURL())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations (default: 1 step)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n <= 0 {
					return fmt.Errorf("invalid steps %q: must be a positive integer", args[0])
				}
				steps = n
			}
			return database.MigrateDown(config.Get().GetDatabaseURL(), steps)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the current migration version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := database.MigrateStatus(config.Get().GetDatabaseURL())
			if err != nil {
				return err
			}
			if !status.Applied {
				fmt.Fprintln(cmd.OutOrStdout(), "No migrations applied")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Version: %d, dirty: %t\n", status.Version, status.Dirty)
			return nil
		},
	})

	return cmd
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
