package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirecraft/interview-engine/models"
)

func TestShouldFollowUp(t *testing.T) {
	engine := NewDialogueEngine(&fakeOracle{}, testDialogueConfig(), time.Second)
	question := &models.InterviewMessage{Type: models.MessageQuestion}
	followUp := &models.InterviewMessage{Type: models.MessageFollowUp}

	assert.True(t, engine.ShouldFollowUp(40, question))
	assert.False(t, engine.ShouldFollowUp(60, question), "threshold score does not trigger a probe")
	assert.False(t, engine.ShouldFollowUp(85, question))
	assert.False(t, engine.ShouldFollowUp(40, followUp), "never two follow-ups in a row")
}

func TestNextQuestionFallsBackOnOracleFailure(t *testing.T) {
	oracle := &fakeOracle{
		generateFn: func(ctx context.Context, req QuestionRequest) (*GeneratedQuestion, error) {
			return nil, errors.New("upstream down")
		},
	}
	engine := NewDialogueEngine(oracle, testDialogueConfig(), time.Second)
	session := &models.InterviewSession{
		InterviewType: "technical",
		Difficulty:    "medium",
		Role:          "Backend Engineer",
	}

	question := engine.NextQuestion(context.Background(), session, nil)
	require.NotNil(t, question)
	assert.NotEmpty(t, question.Question)
	assert.Equal(t, "technical", question.Category)
}

func TestNextQuestionFallsBackOnHungOracle(t *testing.T) {
	oracle := &fakeOracle{
		generateFn: func(ctx context.Context, req QuestionRequest) (*GeneratedQuestion, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	engine := NewDialogueEngine(oracle, testDialogueConfig(), 10*time.Millisecond)
	session := &models.InterviewSession{
		InterviewType: "technical",
		Difficulty:    "medium",
		Role:          "Backend Engineer",
	}

	start := time.Now()
	question := engine.NextQuestion(context.Background(), session, nil)
	require.NotNil(t, question)
	assert.NotEmpty(t, question.Question)
	assert.Less(t, time.Since(start), time.Second, "question generation must not block past the timeout")
}

func TestFollowUpFallsBackOnHungOracle(t *testing.T) {
	oracle := &fakeOracle{
		followUpFn: func(ctx context.Context, req FollowUpRequest) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}
	engine := NewDialogueEngine(oracle, testDialogueConfig(), 10*time.Millisecond)
	session := &models.InterviewSession{Personality: "professional"}

	start := time.Now()
	followUp := engine.FollowUp(context.Background(), session, "Why Go?", "Dunno.", 30)
	assert.NotEmpty(t, followUp)
	assert.Less(t, time.Since(start), time.Second, "follow-up generation must not block past the timeout")
}

func TestNextQuestionBoundsContextWindow(t *testing.T) {
	var captured []string
	oracle := &fakeOracle{
		generateFn: func(ctx context.Context, req QuestionRequest) (*GeneratedQuestion, error) {
			captured = req.PreviousAnswers
			return &GeneratedQuestion{Category: "technical", Question: "Next?", Difficulty: req.Difficulty}, nil
		},
	}
	engine := NewDialogueEngine(oracle, testDialogueConfig(), time.Second)
	session := &models.InterviewSession{InterviewType: "technical", Difficulty: "easy", Role: "Engineer"}

	engine.NextQuestion(context.Background(), session, []string{"first", "second", "third", "fourth"})
	require.Len(t, captured, 2)
	assert.Equal(t, []string{"third", "fourth"}, captured)
}

func TestWeakAnswerGetsExactlyOneFollowUp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, models.UserTypeCandidate, models.PlanFree)
	session := env.createActiveSession(t, user.ID)

	// Past the greeting ack and the first question.
	env.oracle.analyzeFn = flatAnalysis(40)
	_, err := env.sessions.PostAnswer(ctx, session.ID, user.ID, "Hello!", 5)
	require.NoError(t, err)

	// Weak answer to the first question triggers a follow-up probe.
	result, err := env.sessions.PostAnswer(ctx, session.ID, user.ID, "Um, not sure.", 20)
	require.NoError(t, err)
	assert.Equal(t, models.MessageFollowUp, result.Reply.Type)

	// A weak answer to the follow-up moves on instead of probing again.
	result, err = env.sessions.PostAnswer(ctx, session.ID, user.ID, "Still not sure.", 20)
	require.NoError(t, err)
	assert.Equal(t, models.MessageQuestion, result.Reply.Type)

	updated, err := env.repo.GetInterviewSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.FollowUpsAsked)
}

func TestStrongAnswerSkipsFollowUp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, models.UserTypeCandidate, models.PlanFree)
	session := env.createActiveSession(t, user.ID)

	env.oracle.analyzeFn = flatAnalysis(88)
	_, err := env.sessions.PostAnswer(ctx, session.ID, user.ID, "Hello!", 5)
	require.NoError(t, err)

	result, err := env.sessions.PostAnswer(ctx, session.ID, user.ID, "A thorough, confident answer.", 45)
	require.NoError(t, err)
	assert.Equal(t, models.MessageQuestion, result.Reply.Type)
}

func TestGreetingUsesPersonality(t *testing.T) {
	engine := NewDialogueEngine(&fakeOracle{}, testDialogueConfig(), time.Second)

	friendly := engine.Greeting(&models.InterviewSession{Personality: "friendly", Role: "Engineer"}, "Ada")
	challenging := engine.Greeting(&models.InterviewSession{Personality: "challenging", Role: "Engineer"}, "Ada")
	fallback := engine.Greeting(&models.InterviewSession{Personality: "nonexistent", Role: "Engineer"}, "Ada")

	assert.Contains(t, friendly, "Ada")
	assert.NotEqual(t, friendly, challenging)
	assert.Contains(t, fallback, "Ada", "unknown personality falls back to professional")
}
