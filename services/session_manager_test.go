package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirecraft/interview-engine/models"
	"github.com/hirecraft/interview-engine/repository"
)

func TestCreateSessionOpensWithGreeting(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, models.UserTypeCandidate, models.PlanFree)

	session := env.createActiveSession(t, user.ID)
	assert.Equal(t, models.SessionActive, session.Status)
	assert.NotNil(t, session.StartedAt)
	assert.Equal(t, 1, session.MessageCount)
	assert.NotEmpty(t, session.SessionKey)

	messages, err := env.repo.GetSessionMessages(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, 1, messages[0].TurnIndex)
	assert.Equal(t, models.SenderInterviewer, messages[0].Sender)
	assert.Equal(t, models.MessageGreeting, messages[0].Type)
}

func TestGreetingReplyIsNotScored(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, models.UserTypeCandidate, models.PlanFree)
	session := env.createActiveSession(t, user.ID)

	env.oracle.analyzeFn = flatAnalysis(90)
	result, err := env.sessions.PostAnswer(ctx, session.ID, user.ID, "Hi, I'm ready!", 5)
	require.NoError(t, err)
	assert.False(t, result.Answer.Scored)
	assert.Equal(t, models.MessageQuestion, result.Reply.Type)
}

func TestPostAnswerEnforcesOwnership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, models.UserTypeCandidate, models.PlanFree)
	other := env.createUser(t, models.UserTypeCandidate, models.PlanFree)
	session := env.createActiveSession(t, owner.ID)

	_, err := env.sessions.PostAnswer(ctx, session.ID, other.ID, "intruding", 5)
	assert.ErrorIs(t, err, models.ErrAccessDenied)
}

func TestFullSessionGaplessAlternatingTranscript(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, models.UserTypeCandidate, models.PlanFree)
	session := env.createActiveSession(t, user.ID)

	result := env.runFullSession(t, session, user.ID, 85)
	assert.Equal(t, models.SessionCompleted, result.Status)
	require.NotNil(t, result.Feedback)
	assert.InDelta(t, 85, result.Feedback.OverallScore, 0.001)
	assert.Equal(t, models.TierReady, result.Feedback.Readiness)

	messages, err := env.repo.GetSessionMessages(ctx, session.ID)
	require.NoError(t, err)
	require.NotEmpty(t, messages)

	// Gapless 1-based indices with strict alternation.
	for i, msg := range messages {
		assert.Equal(t, i+1, msg.TurnIndex)
		assert.Equal(t, models.SenderForIndex(i+1), msg.Sender)
	}
	assert.Equal(t, models.MessageGreeting, messages[0].Type)
	assert.Equal(t, models.MessageClosing, messages[len(messages)-1].Type)

	// All scored answers at 85: no follow-ups, so the transcript is
	// greeting, ack, then five question/answer pairs and the closing.
	assert.Len(t, messages, 13)

	updated, err := env.repo.GetInterviewSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, updated.QuestionsAsked)
	assert.Equal(t, 0, updated.FollowUpsAsked)
	assert.NotNil(t, updated.CompletedAt)
}

func TestCompletedSessionRejectsAnswers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, models.UserTypeCandidate, models.PlanFree)
	session := env.createActiveSession(t, user.ID)
	env.runFullSession(t, session, user.ID, 85)

	_, err := env.sessions.PostAnswer(ctx, session.ID, user.ID, "one more thing", 5)
	assert.ErrorIs(t, err, models.ErrSessionNotActive)
}

func TestAppendMessageRejectsOutOfTurnSender(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, models.UserTypeCandidate, models.PlanFree)
	session := env.createActiveSession(t, user.ID)

	// Turn 2 belongs to the candidate; an interviewer message must bounce.
	_, err := env.repo.AppendMessage(ctx, session.ID, &models.InterviewMessage{
		Sender:  models.SenderInterviewer,
		Type:    models.MessageQuestion,
		Content: "barging in",
	})
	assert.ErrorIs(t, err, models.ErrOutOfTurn)

	// The failed append claimed nothing.
	updated, err := env.repo.GetInterviewSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.MessageCount)
}

func TestFailedTurnWriteRollsBackWholePair(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, models.UserTypeCandidate, models.PlanFree)
	session := env.createActiveSession(t, user.ID)

	// An answer appended in an enclosing transaction that fails afterwards
	// must vanish with it, the same seam PostAnswer relies on when the reply
	// write fails after the answer write.
	injected := errors.New("disk full")
	err := env.repo.WithTx(ctx, func(tx *repository.GORMRepository) error {
		if _, err := tx.AppendMessage(ctx, session.ID, &models.InterviewMessage{
			Sender:  models.SenderCandidate,
			Type:    models.MessageAnswer,
			Content: "half a turn",
		}); err != nil {
			return err
		}
		return injected
	})
	require.ErrorIs(t, err, injected)

	updated, err := env.repo.GetInterviewSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.MessageCount, "rolled-back answer must not claim a turn")
	messages, err := env.repo.GetSessionMessages(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, messages, 1)

	// The turn slot is still the candidate's, so a retried post goes through.
	result, err := env.sessions.PostAnswer(ctx, session.ID, user.ID, "Ready now.", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Answer.TurnIndex)
	assert.Equal(t, 3, result.Reply.TurnIndex)
}

func TestCompleteUpdatesLedgerStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, models.UserTypeCandidate, models.PlanFree)
	session := env.createActiveSession(t, user.ID)
	env.runFullSession(t, session, user.ID, 75)

	ledger, err := env.repo.GetLedger(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, ledger.CompletedSessions)
	assert.InDelta(t, 75, ledger.BestScore, 0.001)
}

func TestCompleteTwiceIsInvalidTransition(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, models.UserTypeCandidate, models.PlanFree)
	session := env.createActiveSession(t, user.ID)
	env.runFullSession(t, session, user.ID, 75)

	_, err := env.sessions.Complete(ctx, session.ID, user.ID)
	var transitionErr *models.InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, models.SessionCompleted, transitionErr.From)
}

func TestGetSessionAccessControl(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, models.UserTypeCandidate, models.PlanFree)
	stranger := env.createUser(t, models.UserTypeCandidate, models.PlanFree)
	session := env.createActiveSession(t, owner.ID)

	got, err := env.sessions.GetSession(ctx, session.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)

	_, err = env.sessions.GetSession(ctx, session.ID, stranger.ID)
	assert.ErrorIs(t, err, models.ErrAccessDenied)

	_, err = env.sessions.GetSession(ctx, "00000000-0000-0000-0000-000000000000", owner.ID)
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}
