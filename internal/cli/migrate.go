package cli

import (
	"focus-billing/database"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := database.Migrate(cmd.Context(), a.db); err != nil {
			return err
		}
		a.log.Infow("migrations applied")
		return nil
	},
}
