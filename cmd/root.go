package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/faktorino/faktorino/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "faktorino",
	Short: "faktorino - Rechnungen aus Etsy-CSV-Exporten",
	Long: `faktorino converts Etsy CSV exports into German tax-compliant
invoices, validates Etsy payouts against bank statements, and meters
invoice generation through a purchased-credit balance.

Subcommands cover one-off CLI conversions as well as running the HTTP
API that the web frontend talks to.`,
	Version: version,
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}
