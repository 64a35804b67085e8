package services

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/hirecraft/interview-engine/models"
	"github.com/hirecraft/interview-engine/repository"
)

// DatabaseSeeder handles database seeding operations
type DatabaseSeeder struct {
	repo *repository.GORMRepository
}

func NewDatabaseSeeder(repo *repository.GORMRepository) *DatabaseSeeder {
	return &DatabaseSeeder{repo: repo}
}

// SeedDatabase seeds demo accounts for local development (idempotent).
func (s *DatabaseSeeder) SeedDatabase() error {
	ctx := context.Background()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	users := []models.User{
		{
			Email:    "candidate@example.com",
			Password: string(hashedPassword),
			FullName: "Demo Candidate",
			UserType: models.UserTypeCandidate,
			PlanType: models.PlanFree,
		},
		{
			Email:    "premium@example.com",
			Password: string(hashedPassword),
			FullName: "Premium Candidate",
			UserType: models.UserTypeCandidate,
			PlanType: models.PlanPremium,
		},
		{
			Email:    "recruiter@example.com",
			Password: string(hashedPassword),
			FullName: "Demo Recruiter",
			UserType: models.UserTypeRecruiter,
			PlanType: models.PlanFree,
		},
	}

	for _, user := range users {
		if err := s.seedUser(ctx, user); err != nil {
			slog.Error("Failed to seed user", "email", user.Email, "error", err)
		}
	}

	slog.Info("Database seeding completed")
	return nil
}

func (s *DatabaseSeeder) seedUser(ctx context.Context, user models.User) error {
	existing, err := s.repo.GetUserByEmail(ctx, user.Email)
	if err != nil {
		return err
	}
	if existing != nil {
		slog.Info("User already exists, skipping", "email", user.Email)
		return nil
	}
	if err := s.repo.CreateUser(ctx, &user); err != nil {
		return err
	}
	// Seed the usage ledger alongside so demo accounts start with a clean
	// allowance row instead of creating it lazily on first session.
	if _, err := s.repo.GetOrCreateLedgerForUpdate(ctx, user.ID); err != nil {
		return err
	}
	slog.Info("Seeded user", "email", user.Email, "user_type", user.UserType)
	return nil
}
