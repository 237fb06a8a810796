package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/krshsl/brandcast/repository"
	svc "github.com/krshsl/brandcast/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, db, err := svc.OpenStore(config.Database)
	if err != nil {
		return err
	}

	server := svc.NewServer(config)
	server.SetStore(store, db)
	defer server.Close()

	if repo, ok := store.(*repository.GORMRepository); ok {
		if err := repo.AutoMigrate(); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}
	if config.Database.Seed {
		if err := svc.NewDatabaseSeeder(store, config.Auth.DefaultOwnerID).SeedDatabase(ctx); err != nil {
			slog.Error("Failed to seed database", "error", err)
		}
	}

	if err := server.InitializeServices(ctx); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	return server.Start(ctx)
}
