package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/krshsl/brandcast/repository"
	svc "github.com/krshsl/brandcast/services"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the postgres schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeDB, err := openDatabase()
		if err != nil {
			return err
		}
		defer closeDB()

		if err := repo.AutoMigrate(); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		slog.Info("Database migrated")
		return nil
	},
}

// openDatabase is for commands that only make sense against postgres
func openDatabase() (*repository.GORMRepository, func(), error) {
	if config.Database.URL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is required")
	}
	store, db, err := svc.OpenStore(config.Database)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if err := repository.Close(db); err != nil {
			slog.Error("Failed to close database", "error", err)
		}
	}
	return store.(*repository.GORMRepository), closeDB, nil
}
