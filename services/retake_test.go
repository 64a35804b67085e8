package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirecraft/interview-engine/models"
)

func (env *testEnv) completedSession(t *testing.T, userID string) *models.InterviewSession {
	t.Helper()
	session := env.createActiveSession(t, userID)
	env.runFullSession(t, session, userID, 65)
	updated, err := env.repo.GetInterviewSession(context.Background(), session.ID)
	require.NoError(t, err)
	return updated
}

func TestRequestRetakeOnActiveSessionRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, models.UserTypeCandidate, models.PlanFree)
	session := env.createActiveSession(t, user.ID)

	_, err := env.broker.RequestRetake(ctx, session.ID, user.ID, "stripe")
	var transitionErr *models.InvalidTransitionError
	assert.ErrorAs(t, err, &transitionErr)
}

func TestRetakePaymentFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, models.UserTypeCandidate, models.PlanFree)
	session := env.completedSession(t, user.ID)

	payment, err := env.broker.RequestRetake(ctx, session.ID, user.ID, "stripe")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, payment.Status)
	assert.Equal(t, 500, payment.AmountCents)
	assert.Equal(t, 1, payment.RetakeNumber)
	assert.InDelta(t, 65, payment.PreviousScore, 0.001)
	assert.NotEmpty(t, payment.ChargeRef)

	// A second request reuses the pending payment instead of double charging.
	again, err := env.broker.RequestRetake(ctx, session.ID, user.ID, "stripe")
	require.NoError(t, err)
	assert.Equal(t, payment.ID, again.ID)

	unlocked, err := env.broker.OnPaymentConfirmed(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionAssigned, unlocked.Status)
	assert.Equal(t, 1, unlocked.RetakeCount)
	assert.Equal(t, 0, unlocked.MessageCount)
	assert.Equal(t, 0, unlocked.QuestionsAsked)
	assert.Nil(t, unlocked.CompletedAt)

	// Transcript and feedback are gone; the turn index space is fresh.
	messages, err := env.repo.GetSessionMessages(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)
	feedback, err := env.repo.GetFeedbackBySession(ctx, session.ID)
	require.NoError(t, err)
	assert.Nil(t, feedback)

	// The re-armed session runs again from the top without index collisions.
	started, err := env.sessions.StartAssigned(ctx, session.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionActive, started.Status)
	result := env.runFullSession(t, started, user.ID, 82)
	assert.Equal(t, models.SessionCompleted, result.Status)
	require.NotNil(t, result.Feedback)
}

func TestConfirmIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, models.UserTypeCandidate, models.PlanFree)
	session := env.completedSession(t, user.ID)

	payment, err := env.broker.RequestRetake(ctx, session.ID, user.ID, "stripe")
	require.NoError(t, err)
	_, err = env.broker.OnPaymentConfirmed(ctx, payment.ID)
	require.NoError(t, err)

	unlocked, err := env.broker.OnPaymentConfirmed(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, unlocked.RetakeCount, "replayed confirmation must not grant another retake")
}

func TestRetakesExhausted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, models.UserTypeCandidate, models.PlanFree)
	session := env.completedSession(t, user.ID)

	for i := 0; i < 2; i++ {
		payment, err := env.broker.RequestRetake(ctx, session.ID, user.ID, "stripe")
		require.NoError(t, err)
		_, err = env.broker.OnPaymentConfirmed(ctx, payment.ID)
		require.NoError(t, err)

		started, err := env.sessions.StartAssigned(ctx, session.ID, user.ID)
		require.NoError(t, err)
		env.runFullSession(t, started, user.ID, 70)
	}

	_, err := env.broker.RequestRetake(ctx, session.ID, user.ID, "stripe")
	assert.ErrorIs(t, err, models.ErrRetakesExhausted)
}

func TestFailedPaymentLeavesSessionLocked(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, models.UserTypeCandidate, models.PlanFree)
	session := env.completedSession(t, user.ID)

	payment, err := env.broker.RequestRetake(ctx, session.ID, user.ID, "stripe")
	require.NoError(t, err)
	require.NoError(t, env.broker.OnPaymentFailed(ctx, payment.ID))

	updated, err := env.repo.GetInterviewSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, updated.Status)
	assert.Equal(t, 0, updated.RetakeCount)

	_, err = env.broker.OnPaymentConfirmed(ctx, payment.ID)
	assert.ErrorIs(t, err, models.ErrPaymentNotConfirmed)
}

func TestReconcileRepairsPaidButLockedSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, models.UserTypeCandidate, models.PlanFree)
	session := env.completedSession(t, user.ID)

	// Simulate the defect the sweep exists for: the payment reached
	// completed but the session was never re-armed.
	payment, err := env.broker.RequestRetake(ctx, session.ID, user.ID, "stripe")
	require.NoError(t, err)
	payment.Status = models.PaymentCompleted
	require.NoError(t, env.repo.SaveRetakePayment(ctx, payment))

	repaired, err := env.broker.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)

	updated, err := env.repo.GetInterviewSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionAssigned, updated.Status)
	assert.Equal(t, 1, updated.RetakeCount)

	// A clean state reconciles to nothing.
	repaired, err = env.broker.Reconcile(ctx)
	require.NoError(t, err)
	assert.Zero(t, repaired)
}
