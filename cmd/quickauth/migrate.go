package main

import (
	"errors"

	pgmigrations "github.com/PaulFidika/quickauth/migrations/postgres"
	"github.com/PaulFidika/quickauth/logging"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the Postgres nonce and job queue schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if settings.DatabaseURL == "" {
			return errors.New("a database is required (--database-url or QUICKAUTH_DATABASE_URL)")
		}
		rt, err := newRuntime(cmd.Context(), settings)
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := pgmigrations.MigrateAll(cmd.Context(), rt.pool); err != nil {
			return err
		}
		logging.Module("migrate").Info("schema up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
