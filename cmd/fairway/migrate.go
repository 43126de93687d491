package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yourusername/fairway-edge/internal/database"
)

var migrateStatus bool

func init() {
	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "Print the schema version without migrating")
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		db, err := database.NewDB(ctx, &cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		if migrateStatus {
			version, err := database.SchemaVersion(ctx, db)
			if err != nil {
				return err
			}
			fmt.Printf("schema version %d of %d\n", version, database.LatestVersion())
			return nil
		}

		applied, err := database.Migrate(ctx, db, logger)
		if err != nil {
			return err
		}
		fmt.Printf("applied %d migration(s); schema at version %d\n", applied, database.LatestVersion())
		return nil
	},
}
