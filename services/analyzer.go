package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/hirecraft/interview-engine/models"
)

// ResponseAnalyzer scores candidate answers through the configured Oracle and
// normalizes whatever comes back. The session flow never blocks on a slow or
// broken backend: past the timeout the analyzer returns neutral scores and
// flags the turn as degraded so the message is still persisted.
type ResponseAnalyzer struct {
	oracle  Oracle
	timeout time.Duration
}

func NewResponseAnalyzer(oracle Oracle, timeout time.Duration) *ResponseAnalyzer {
	return &ResponseAnalyzer{oracle: oracle, timeout: timeout}
}

// Analyze returns the normalized per-turn scores and whether the result is a
// degraded fallback rather than a real assessment.
func (a *ResponseAnalyzer) Analyze(ctx context.Context, req AnalyzeRequest) (models.TurnScores, bool) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	analysis, err := a.oracle.Analyze(ctx, req)
	if err != nil {
		slog.Warn("answer analysis degraded to neutral scores", "error", err)
		return neutralScores(), true
	}

	scores := models.TurnScores{
		TechnicalAccuracy: normalizeAxis(analysis.TechnicalAccuracy),
		Clarity:           normalizeAxis(analysis.Clarity),
		Depth:             normalizeAxis(analysis.Depth),
		Confidence:        normalizeAxis(analysis.Confidence),
		Sentiment:         analysis.Sentiment,
		KeywordsMatched:   analysis.KeywordsMatched,
	}
	if scores.Sentiment == "" {
		scores.Sentiment = "neutral"
	}
	if scores.KeywordsMatched == nil {
		scores.KeywordsMatched = matchKeywords(req.Answer, req.ExpectedKeywords)
	}
	return scores, false
}

// normalizeAxis clamps a backend score into [0,100]. A zero value is treated
// as missing and defaults to the midpoint, so a backend that omits an axis
// cannot tank the aggregate.
func normalizeAxis(v float64) float64 {
	if v == 0 {
		return 50
	}
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func neutralScores() models.TurnScores {
	return models.TurnScores{
		TechnicalAccuracy: 50,
		Clarity:           50,
		Depth:             50,
		Confidence:        50,
		Sentiment:         "neutral",
		KeywordsMatched:   []string{},
	}
}
