package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/krshsl/brandcast/models"
)

// DatabaseSeeder handles database seeding operations
type DatabaseSeeder struct {
	users   UserStore
	ownerID string
}

// NewDatabaseSeeder creates a new database seeder
func NewDatabaseSeeder(users UserStore, ownerID string) *DatabaseSeeder {
	if ownerID == "" {
		ownerID = DefaultOwnerID
	}
	return &DatabaseSeeder{users: users, ownerID: ownerID}
}

// SeedDatabase seeds the database with initial data (idempotent)
func (s *DatabaseSeeder) SeedDatabase(ctx context.Context) error {
	existing, err := s.users.GetUserByID(ctx, s.ownerID)
	if err != nil {
		return fmt.Errorf("failed to look up default owner: %w", err)
	}
	if existing != nil {
		slog.Info("Database seeding already completed, skipping", "user_id", s.ownerID)
		return nil
	}

	if err := s.seedUser(ctx, models.User{
		ID:       s.ownerID,
		Email:    "owner@brandcast.local",
		FullName: "Default Owner",
	}); err != nil {
		return err
	}

	slog.Info("Database seeding completed successfully", "user_id", s.ownerID)
	return nil
}

func (s *DatabaseSeeder) seedUser(ctx context.Context, user models.User) error {
	if err := s.users.EnsureUser(ctx, &user); err != nil {
		return fmt.Errorf("failed to seed user %s: %w", user.Email, err)
	}
	slog.Info("Seeded user", "email", user.Email, "user_id", user.ID)
	return nil
}
