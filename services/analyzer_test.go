package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAnalyzeClampsAxes(t *testing.T) {
	oracle := &fakeOracle{
		analyzeFn: func(ctx context.Context, req AnalyzeRequest) (*OracleAnalysis, error) {
			return &OracleAnalysis{
				TechnicalAccuracy: 140,
				Clarity:           -10,
				Depth:             65,
				Confidence:        0, // missing axis
				Sentiment:         "positive",
				KeywordsMatched:   []string{"api"},
			}, nil
		},
	}
	analyzer := NewResponseAnalyzer(oracle, time.Second)

	scores, degraded := analyzer.Analyze(context.Background(), AnalyzeRequest{Answer: "something"})
	assert.False(t, degraded)
	assert.Equal(t, 100.0, scores.TechnicalAccuracy)
	assert.Equal(t, 0.0, scores.Clarity)
	assert.Equal(t, 65.0, scores.Depth)
	assert.Equal(t, 50.0, scores.Confidence, "missing axis defaults to the midpoint")
	assert.Equal(t, "positive", scores.Sentiment)
}

func TestAnalyzeDegradesOnFailure(t *testing.T) {
	oracle := &fakeOracle{
		analyzeFn: func(ctx context.Context, req AnalyzeRequest) (*OracleAnalysis, error) {
			return nil, errors.New("upstream down")
		},
	}
	analyzer := NewResponseAnalyzer(oracle, time.Second)

	scores, degraded := analyzer.Analyze(context.Background(), AnalyzeRequest{Answer: "something"})
	assert.True(t, degraded)
	assert.Equal(t, 50.0, scores.TechnicalAccuracy)
	assert.Equal(t, 50.0, scores.Clarity)
	assert.Equal(t, 50.0, scores.Depth)
	assert.Equal(t, 50.0, scores.Confidence)
	assert.Equal(t, "neutral", scores.Sentiment)
}

func TestAnalyzeDegradesOnTimeout(t *testing.T) {
	oracle := &fakeOracle{
		analyzeFn: func(ctx context.Context, req AnalyzeRequest) (*OracleAnalysis, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	analyzer := NewResponseAnalyzer(oracle, 10*time.Millisecond)

	start := time.Now()
	scores, degraded := analyzer.Analyze(context.Background(), AnalyzeRequest{Answer: "something"})
	assert.True(t, degraded)
	assert.Equal(t, 50.0, scores.Depth)
	assert.Less(t, time.Since(start), time.Second, "analysis must not block past the timeout")
}

func TestAnalyzeFillsMissingFields(t *testing.T) {
	oracle := &fakeOracle{
		analyzeFn: func(ctx context.Context, req AnalyzeRequest) (*OracleAnalysis, error) {
			return &OracleAnalysis{
				TechnicalAccuracy: 70,
				Clarity:           70,
				Depth:             70,
				Confidence:        70,
			}, nil
		},
	}
	analyzer := NewResponseAnalyzer(oracle, time.Second)

	scores, degraded := analyzer.Analyze(context.Background(), AnalyzeRequest{
		Answer:           "I would use caching and an index to speed this up.",
		ExpectedKeywords: []string{"caching", "index", "sharding"},
	})
	assert.False(t, degraded)
	assert.Equal(t, "neutral", scores.Sentiment)
	assert.ElementsMatch(t, []string{"caching", "index"}, scores.KeywordsMatched)
}

func TestMatchKeywordsIsCaseInsensitive(t *testing.T) {
	matched := matchKeywords("We picked PostgreSQL for its MVCC model.", []string{"postgresql", "mvcc", "redis"})
	assert.ElementsMatch(t, []string{"postgresql", "mvcc"}, matched)
}
