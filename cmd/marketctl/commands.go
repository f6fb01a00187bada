package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jrsteele09/go-property-market/events"
	"github.com/jrsteele09/go-property-market/internal/app"
	"github.com/jrsteele09/go-property-market/internal/config"
	"github.com/jrsteele09/go-property-market/internal/store"
	"github.com/jrsteele09/go-property-market/mail"
	memstore "github.com/jrsteele09/go-property-market/objectstore/memory"
)

// withApp opens the configured database and builds the services over it. Mail and events
// are not delivered from the CLI.
func withApp(c config.Config, fn func(ctx context.Context, a *app.App) error) error {
	if c.GetStoreDriver() == store.DriverMemory {
		return fmt.Errorf("STORE_DRIVER is %q; marketctl needs sqlite or postgres", store.DriverMemory)
	}
	repos, err := store.Open(c)
	if err != nil {
		return err
	}
	defer repos.Close()

	a, err := app.Build(c, app.Deps{
		Repos:     repos,
		Objects:   memstore.New(c.GetPublicBaseURL()),
		Mailer:    mail.LogMailer{},
		Publisher: events.Nop{},
	})
	if err != nil {
		return err
	}
	return fn(context.Background(), a)
}

func migrateCmd(c config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(c, func(context.Context, *app.App) error {
				fmt.Fprintf(cmd.OutOrStdout(), "schema is up to date (%s)\n", c.GetStoreDriver())
				return nil
			})
		},
	}
}

func createAdminCmd(c config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a verified admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			return withApp(c, func(ctx context.Context, a *app.App) error {
				generated, err := a.Services.Auth.EnsureAdmin(ctx, email, password)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				switch {
				case generated == "":
					fmt.Fprintf(out, "admin %s already exists\n", email)
				case password == "":
					fmt.Fprintf(out, "admin %s created with password %s\n", email, generated)
				default:
					fmt.Fprintf(out, "admin %s created\n", email)
				}
				return nil
			})
		},
	}
	cmd.Flags().String("email", "", "Admin email address")
	cmd.Flags().String("password", "", "Admin password (generated when empty)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func verifyLedgerCmd(c config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify-ledger",
		Short: "Check that a transaction's ledger entries balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			txID, _ := cmd.Flags().GetString("tx")
			return withApp(c, func(ctx context.Context, a *app.App) error {
				b, err := a.Services.Payments.VerifyLedger(ctx, txID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %d\n%-10s %d\n%-10s %d\n",
					"Entries", b.Entries, "Debits", b.Debits, "Credits", b.Credits)
				if !b.Balanced {
					return fmt.Errorf("transaction %s is not balanced", txID)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "balanced")
				return nil
			})
		},
	}
	cmd.Flags().String("tx", "", "Transaction ID")
	_ = cmd.MarkFlagRequired("tx")
	return cmd
}

func cleanupCmd(c config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove expired passcodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(c, func(ctx context.Context, a *app.App) error {
				n, err := a.OTPs.Cleanup(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired passcodes\n", n)
				return nil
			})
		},
	}
}
