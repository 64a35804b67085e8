package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hirecraft/interview-engine/models"
	"github.com/hirecraft/interview-engine/repository"
)

func testQuotaConfig() QuotaConfig {
	return QuotaConfig{FreeLimit: 1, MonthlyLimit: 5, SessionCostCents: 200}
}

func testDialogueConfig() DialogueConfig {
	return DialogueConfig{PlannedQuestions: 5, FollowUpThreshold: 60, ContextWindow: 2}
}

func testRetakeConfig() RetakeConfig {
	return RetakeConfig{MaxRetakes: 2, PriceCents: 500}
}

func setupTestDB(t *testing.T) *repository.GORMRepository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	repo := repository.NewGORMRepository(db)
	require.NoError(t, repo.AutoMigrate())
	return repo
}

// fakeOracle lets tests script question, follow-up and analysis behavior.
// Unset fields fall through to the static backend.
type fakeOracle struct {
	static     StaticOracle
	generateFn func(ctx context.Context, req QuestionRequest) (*GeneratedQuestion, error)
	followUpFn func(ctx context.Context, req FollowUpRequest) (string, error)
	analyzeFn  func(ctx context.Context, req AnalyzeRequest) (*OracleAnalysis, error)
}

func (o *fakeOracle) GenerateQuestion(ctx context.Context, req QuestionRequest) (*GeneratedQuestion, error) {
	if o.generateFn != nil {
		return o.generateFn(ctx, req)
	}
	return o.static.GenerateQuestion(ctx, req)
}

func (o *fakeOracle) GenerateFollowUp(ctx context.Context, req FollowUpRequest) (string, error) {
	if o.followUpFn != nil {
		return o.followUpFn(ctx, req)
	}
	return o.static.GenerateFollowUp(ctx, req)
}

func (o *fakeOracle) Analyze(ctx context.Context, req AnalyzeRequest) (*OracleAnalysis, error) {
	if o.analyzeFn != nil {
		return o.analyzeFn(ctx, req)
	}
	return o.static.Analyze(ctx, req)
}

// flatAnalysis scripts the analyzer to return the same score on every axis.
func flatAnalysis(score float64) func(ctx context.Context, req AnalyzeRequest) (*OracleAnalysis, error) {
	return func(ctx context.Context, req AnalyzeRequest) (*OracleAnalysis, error) {
		return &OracleAnalysis{
			TechnicalAccuracy: score,
			Clarity:           score,
			Depth:             score,
			Confidence:        score,
			Sentiment:         "neutral",
			KeywordsMatched:   []string{},
		}, nil
	}
}

type testEnv struct {
	repo     *repository.GORMRepository
	oracle   *fakeOracle
	quota    *QuotaGate
	analyzer *ResponseAnalyzer
	dialogue *DialogueEngine
	sessions *SessionManager
	broker   *RetakeBroker
	director *AssignmentDirector
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := setupTestDB(t)
	oracle := &fakeOracle{}
	quota := NewQuotaGate(repo, testQuotaConfig())
	analyzer := NewResponseAnalyzer(oracle, 100*time.Millisecond)
	dialogue := NewDialogueEngine(oracle, testDialogueConfig(), 100*time.Millisecond)
	sessions := NewSessionManager(repo, quota, dialogue, analyzer, NewFeedbackSynthesizer(), testDialogueConfig(), testRetakeConfig())
	broker := NewRetakeBroker(repo, &LocalPaymentGateway{}, testRetakeConfig())
	director := NewAssignmentDirector(repo, sessions, &SlogNotifier{})
	return &testEnv{
		repo:     repo,
		oracle:   oracle,
		quota:    quota,
		analyzer: analyzer,
		dialogue: dialogue,
		sessions: sessions,
		broker:   broker,
		director: director,
	}
}

func (env *testEnv) createUser(t *testing.T, userType, planType string) *models.User {
	t.Helper()
	user := &models.User{
		Email:    uuid.New().String() + "@example.com",
		Password: "hashed",
		FullName: "Test User",
		UserType: userType,
		PlanType: planType,
	}
	require.NoError(t, env.repo.CreateUser(context.Background(), user))
	return user
}

func (env *testEnv) createActiveSession(t *testing.T, userID string) *models.InterviewSession {
	t.Helper()
	session, err := env.sessions.CreateSession(context.Background(), CreateSessionRequest{
		UserID:          userID,
		InterviewType:   "technical",
		Role:            "Backend Engineer",
		Difficulty:      "medium",
		DurationMinutes: 30,
	})
	require.NoError(t, err)
	return session
}

// runFullSession answers every turn until the session completes, with all
// answers scored at the given level.
func (env *testEnv) runFullSession(t *testing.T, session *models.InterviewSession, userID string, score float64) *PostAnswerResult {
	t.Helper()
	env.oracle.analyzeFn = flatAnalysis(score)
	ctx := context.Background()

	var result *PostAnswerResult
	var err error
	for i := 0; i < 30; i++ {
		result, err = env.sessions.PostAnswer(ctx, session.ID, userID, fmt.Sprintf("Answer number %d with some detail.", i+1), 30)
		require.NoError(t, err)
		if result.Status == models.SessionCompleted {
			return result
		}
	}
	t.Fatal("session never completed")
	return nil
}
