package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fintrack/internal/cli"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and seed default data",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cli.LoadEnvFile()
	cfg, err := cli.LoadConfig()
	if err != nil {
		return err
	}
	logger, err := cli.SetupLogger(cfg, applog.ComponentStorage)
	if err != nil {
		return err
	}

	if err := storage.RunMigrations(cfg.SQLiteDBPath); err != nil {
		return err
	}
	repo, err := cli.OpenStore(cmd.Context(), logger, cfg.SQLiteDBPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	version, dirty, err := storage.SchemaVersion(cfg.SQLiteDBPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: schema version %d (dirty=%t)\n", cfg.SQLiteDBPath, version, dirty)
	return nil
}
