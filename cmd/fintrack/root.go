package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fintrack",
	Short: "Personal finance tracker",
	Long: `fintrack keeps a per-account ledger of income and outcome transactions
in SQLite and serves monthly analytics over HTTP.

Run "fintrack serve" to start the API, or use the report commands to
print the analytics JSON directly from the database.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
