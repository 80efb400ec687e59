package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vetclinic/aiadmin/internal/infrastructure/db"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update every table",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.close()

		if err := db.RunMigrations(e.db); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations completed")
		return nil
	},
}
