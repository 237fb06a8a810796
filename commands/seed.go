package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	svc "github.com/krshsl/brandcast/services"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the default owner if it does not exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeDB, err := openDatabase()
		if err != nil {
			return err
		}
		defer closeDB()

		if err := repo.AutoMigrate(); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		return svc.NewDatabaseSeeder(repo, config.Auth.DefaultOwnerID).SeedDatabase(cmd.Context())
	},
}
