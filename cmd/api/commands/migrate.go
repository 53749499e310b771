package commands

import (
	"github.com/spf13/cobra"

	"github.com/flicky/go-storefront-api/internal/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create missing tables and indexes",
	Long: `Apply the embedded schema to the configured database. Every statement
is idempotent, so running it against an up to date database is a no-op.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		pool, err := connectDB(cmd.Context(), cfg.DB)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := migrations.Apply(cmd.Context(), pool); err != nil {
			return err
		}
		log.Info("schema applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
