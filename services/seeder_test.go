package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirecraft/interview-engine/models"
)

func TestSeedDatabaseCreatesUsersAndLedgers(t *testing.T) {
	repo := setupTestDB(t)
	seeder := NewDatabaseSeeder(repo)
	ctx := context.Background()

	require.NoError(t, seeder.SeedDatabase())

	for _, email := range []string{"candidate@example.com", "premium@example.com", "recruiter@example.com"} {
		user, err := repo.GetUserByEmail(ctx, email)
		require.NoError(t, err)
		require.NotNil(t, user, email)

		ledger, err := repo.GetLedger(ctx, user.ID)
		require.NoError(t, err)
		require.NotNil(t, ledger, "seeded account should start with a ledger row")
		assert.Zero(t, ledger.FreeUsed)
		assert.Zero(t, ledger.TotalSessions)
	}

	recruiter, err := repo.GetUserByEmail(ctx, "recruiter@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.UserTypeRecruiter, recruiter.UserType)
}

func TestSeedDatabaseIsIdempotent(t *testing.T) {
	repo := setupTestDB(t)
	seeder := NewDatabaseSeeder(repo)
	ctx := context.Background()

	require.NoError(t, seeder.SeedDatabase())
	require.NoError(t, seeder.SeedDatabase())

	user, err := repo.GetUserByEmail(ctx, "candidate@example.com")
	require.NoError(t, err)
	require.NotNil(t, user)
}
