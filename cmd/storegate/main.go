package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/storegate"
	"github.com/sagarc03/storegate/client"
	"github.com/sagarc03/storegate/config"
)

var version = "dev"

var (
	jsonOutput bool
	quiet      bool
	endpoint   string
)

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "storegate",
	Short:   "Gateway over an object store and a customer entity store",
	Long: `storegate issues time-limited write grants for blob containers, streams
uploads into them, and records customers in a keyed entity store.

Object stores: azure, s3, filesystem.
Entity stores: aztables, dynamodb, badger, sqlite, postgres.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var files []string
		if path, _ := cmd.Flags().GetString("config"); path != "" {
			files = append(files, path)
		}

		cfg, err := config.Load(files, cmd.Flags())
		if err != nil {
			return err
		}

		setupLogging(cfg.Env, cfg.Log.Level)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("object-backend", "", "object store: azure, s3, filesystem (env: STOREGATE_OBJECT_STORE_BACKEND)")
	rootCmd.PersistentFlags().String("entity-backend", "", "entity store: aztables, dynamodb, badger, sqlite, postgres (env: STOREGATE_ENTITY_STORE_BACKEND)")
	rootCmd.PersistentFlags().String("table", "", "customer table name (default: customers)")
	rootCmd.PersistentFlags().String("storage-root", "", "filesystem object store root (default: ./data)")
	rootCmd.PersistentFlags().String("sqlite-dsn", "", "sqlite data source (default: storegate.db)")
	rootCmd.PersistentFlags().String("postgres-dsn", "", "postgres connection string")
	rootCmd.PersistentFlags().String("log-level", "", "debug, info, warn or error")

	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "talk to a running gateway instead of the stores directly")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "print only the essential value")
}

func getFormatter() client.Formatter {
	return client.NewFormatter(jsonOutput, quiet)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		_ = getFormatter().FormatError(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode distinguishes caller mistakes from backend trouble for scripts.
func exitCode(err error) int {
	switch storegate.ErrorKind(err) {
	case "invalid_input", "empty_payload", "container_not_found", "not_found", "insert_conflict", "object_exists":
		return 2
	case "backend_unavailable":
		return 3
	case "invalid_configuration":
		return 4
	default:
		return 1
	}
}
