package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirecraft/interview-engine/models"
)

func flatScores(score float64, n int) []models.TurnScores {
	scores := make([]models.TurnScores, n)
	for i := range scores {
		scores[i] = models.TurnScores{
			TechnicalAccuracy: score,
			Clarity:           score,
			Depth:             score,
			Confidence:        score,
			Sentiment:         "neutral",
		}
	}
	return scores
}

func TestSynthesizeIsDeterministic(t *testing.T) {
	s := NewFeedbackSynthesizer()
	scores := []models.TurnScores{
		{TechnicalAccuracy: 82, Clarity: 71, Depth: 55, Confidence: 64},
		{TechnicalAccuracy: 90, Clarity: 68, Depth: 61, Confidence: 77},
	}
	first := s.Synthesize("session-1", scores)
	second := s.Synthesize("session-1", scores)
	require.NotNil(t, first)
	assert.Equal(t, first, second)
}

func TestSynthesizeNoScoredTurns(t *testing.T) {
	s := NewFeedbackSynthesizer()
	assert.Nil(t, s.Synthesize("session-1", nil))
	assert.Nil(t, s.Synthesize("session-1", []models.TurnScores{}))
}

func TestSynthesizeReadinessTiers(t *testing.T) {
	s := NewFeedbackSynthesizer()

	tests := []struct {
		name  string
		score float64
		tier  models.ReadinessTier
	}{
		{"uniform 90s is ready", 90, models.TierReady},
		{"boundary 80 is ready", 80, models.TierReady},
		{"uniform 65 needs practice", 65, models.TierNeedsPractice},
		{"boundary 60 needs practice", 60, models.TierNeedsPractice},
		{"uniform 40 has significant gaps", 40, models.TierSignificantGaps},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feedback := s.Synthesize("session-1", flatScores(tt.score, 5))
			require.NotNil(t, feedback)
			assert.InDelta(t, tt.score, feedback.OverallScore, 0.001)
			assert.Equal(t, tt.tier, feedback.Readiness)
		})
	}
}

func TestSynthesizeAxisMeans(t *testing.T) {
	s := NewFeedbackSynthesizer()
	scores := []models.TurnScores{
		{TechnicalAccuracy: 80, Clarity: 60, Depth: 40, Confidence: 100},
		{TechnicalAccuracy: 60, Clarity: 80, Depth: 60, Confidence: 80},
	}
	feedback := s.Synthesize("session-1", scores)
	require.NotNil(t, feedback)
	assert.InDelta(t, 70, feedback.TechnicalAccuracy, 0.001)
	assert.InDelta(t, 70, feedback.Clarity, 0.001)
	assert.InDelta(t, 50, feedback.Depth, 0.001)
	assert.InDelta(t, 90, feedback.Confidence, 0.001)
	assert.InDelta(t, 70, feedback.OverallScore, 0.001)
}

func TestSynthesizeStrengthsAndWeaknesses(t *testing.T) {
	s := NewFeedbackSynthesizer()
	scores := []models.TurnScores{
		{TechnicalAccuracy: 85, Clarity: 75, Depth: 50, Confidence: 40},
	}
	feedback := s.Synthesize("session-1", scores)
	require.NotNil(t, feedback)

	assert.Len(t, feedback.Strengths, 2)
	assert.Len(t, feedback.Weaknesses, 2)
	assert.Len(t, feedback.NextSteps, 2)

	// Strengths ordered best first, weaknesses worst first.
	assert.Contains(t, feedback.Strengths[0], "technical accuracy")
	assert.Contains(t, feedback.Weaknesses[0], "confidence")
}

func TestSynthesizeAllStrongStillHasNextStep(t *testing.T) {
	s := NewFeedbackSynthesizer()
	feedback := s.Synthesize("session-1", flatScores(95, 3))
	require.NotNil(t, feedback)
	assert.Empty(t, feedback.Weaknesses)
	assert.NotEmpty(t, feedback.NextSteps)
	assert.Len(t, feedback.Strengths, 3)
}
