package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirecraft/interview-engine/models"
)

func newTestSweep(env *testEnv) *SweepService {
	return NewSweepService(env.repo, env.broker, SweepConfig{
		Interval:          time.Minute,
		IdleTimeout:       30 * time.Minute,
		ReconcileSchedule: "*/5 * * * *",
	})
}

func TestSweepAbandonsIdleSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, models.UserTypeCandidate, models.PlanPremium)

	idle := env.createActiveSession(t, user.ID)
	fresh := env.createActiveSession(t, user.ID)

	stale, err := env.repo.GetInterviewSession(ctx, idle.ID)
	require.NoError(t, err)
	stale.LastActivityAt = time.Now().Add(-time.Hour)
	require.NoError(t, env.repo.SaveSession(ctx, stale))

	swept := newTestSweep(env).SweepAbandoned(ctx)
	assert.Equal(t, 1, swept)

	updated, err := env.repo.GetInterviewSession(ctx, idle.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionAbandoned, updated.Status)

	untouched, err := env.repo.GetInterviewSession(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionActive, untouched.Status)
}

func TestSweepSkipsNonActiveSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, models.UserTypeCandidate, models.PlanFree)

	session := env.createActiveSession(t, user.ID)
	env.runFullSession(t, session, user.ID, 70)

	completed, err := env.repo.GetInterviewSession(ctx, session.ID)
	require.NoError(t, err)
	completed.LastActivityAt = time.Now().Add(-time.Hour)
	require.NoError(t, env.repo.SaveSession(ctx, completed))

	swept := newTestSweep(env).SweepAbandoned(ctx)
	assert.Zero(t, swept)

	updated, err := env.repo.GetInterviewSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, updated.Status)
}

func TestAbandonedSessionAllowsRetake(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, models.UserTypeCandidate, models.PlanFree)

	session := env.createActiveSession(t, user.ID)
	stale, err := env.repo.GetInterviewSession(ctx, session.ID)
	require.NoError(t, err)
	stale.LastActivityAt = time.Now().Add(-time.Hour)
	require.NoError(t, env.repo.SaveSession(ctx, stale))

	require.Equal(t, 1, newTestSweep(env).SweepAbandoned(ctx))

	payment, err := env.broker.RequestRetake(ctx, session.ID, user.ID, "stripe")
	require.NoError(t, err)
	unlocked, err := env.broker.OnPaymentConfirmed(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionAssigned, unlocked.Status)
}
