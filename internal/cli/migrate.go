package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd(global *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and print the schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Opening the store runs pending migrations
			e, err := openEnv(global, "migrate")
			if err != nil {
				return err
			}
			defer e.Close()

			version, err := e.store.SchemaVersion(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read schema version: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: schema version %d\n", e.cfg.Storage.DatabasePath, version)
			return nil
		},
	}
}
