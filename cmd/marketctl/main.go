package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jrsteele09/go-property-market/internal/config"
	"github.com/jrsteele09/go-property-market/internal/logging"
)

func main() {
	_ = godotenv.Load()

	c := config.New()
	logging.Setup(c.GetEnv(), c.GetLogLevel())

	if err := rootCmd(c).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd(c config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "marketctl",
		Short:         "Property market administration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		migrateCmd(c),
		createAdminCmd(c),
		verifyLedgerCmd(c),
		cleanupCmd(c),
	)
	return root
}
