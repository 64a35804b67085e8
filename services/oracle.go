package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrOracleUnavailable signals that the scoring backend could not serve a
// request. It never reaches a caller of the engine; the analyzer and the
// dialogue engine both degrade to local fallbacks instead.
var ErrOracleUnavailable = errors.New("oracle unavailable")

// QuestionRequest carries everything the Oracle needs to produce the next
// planned question.
type QuestionRequest struct {
	InterviewType   string
	Difficulty      string
	Role            string
	Company         string
	QuestionNumber  int
	PreviousAnswers []string // bounded context window, most recent last
}

// GeneratedQuestion is the Oracle's question output with its scoring
// metadata.
type GeneratedQuestion struct {
	Category         string   `json:"category"`
	Question         string   `json:"question"`
	Difficulty       string   `json:"difficulty"`
	ExpectedKeywords []string `json:"expectedKeywords"`
}

// FollowUpRequest asks for one probing question on the topic of a weak
// answer.
type FollowUpRequest struct {
	Question       string
	Answer         string
	AggregateScore float64
	Personality    string
}

// AnalyzeRequest carries one question/answer pair for scoring.
type AnalyzeRequest struct {
	Question         string
	Answer           string
	Category         string
	ExpectedKeywords []string
}

// OracleAnalysis is the raw scoring output. Values arrive unclamped and
// possibly incomplete; the ResponseAnalyzer normalizes them before anything
// else sees them.
type OracleAnalysis struct {
	TechnicalAccuracy float64  `json:"technicalAccuracy"`
	Clarity           float64  `json:"clarityScore"`
	Depth             float64  `json:"depthScore"`
	Confidence        float64  `json:"confidence"`
	Sentiment         string   `json:"sentiment"`
	KeywordsMatched   []string `json:"keywordsMatched"`
}

// Oracle is the pluggable question-generation and scoring capability. Any
// backend (LLM-backed or rule-based) can satisfy it without the dialogue
// engine changing.
type Oracle interface {
	GenerateQuestion(ctx context.Context, req QuestionRequest) (*GeneratedQuestion, error)
	GenerateFollowUp(ctx context.Context, req FollowUpRequest) (string, error)
	Analyze(ctx context.Context, req AnalyzeRequest) (*OracleAnalysis, error)
}

// cleanJSONResponse strips markdown fences and any surrounding prose from an
// LLM reply, leaving the outermost JSON object.
func cleanJSONResponse(content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("empty response content")
	}

	cleaned := strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(content, "```json", ""), "```", ""))

	first := strings.Index(cleaned, "{")
	last := strings.LastIndex(cleaned, "}")
	if first == -1 || last == -1 || last < first {
		return "", fmt.Errorf("response does not contain a JSON object")
	}
	return cleaned[first : last+1], nil
}

// matchKeywords is the local keyword matcher used when a backend omits
// keywordsMatched: case-insensitive substring search over the answer.
func matchKeywords(answer string, expected []string) []string {
	matched := make([]string, 0, len(expected))
	lower := strings.ToLower(answer)
	for _, keyword := range expected {
		if keyword == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(keyword)) {
			matched = append(matched, keyword)
		}
	}
	return matched
}
