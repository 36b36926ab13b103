package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/storegate/config"
	"github.com/sagarc03/storegate/entitystore"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the customer table",
	Long: `Create the customer table in the configured entity store. Running it
again is harmless.

Supported by sqlite, postgres and aztables. DynamoDB tables are provisioned
outside storegate; badger needs no schema.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	if err := entitystore.Migrate(cmd.Context(), cfg.EntityStore); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	slog.Info("migration complete", "backend", cfg.EntityStore.Backend, "table", cfg.EntityStore.Table)
	if !quiet {
		fmt.Printf("Table %s ready (%s)\n", cfg.EntityStore.Table, cfg.EntityStore.Backend)
	}
	return nil
}
