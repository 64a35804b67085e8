package services

import (
	"context"
	"fmt"
	"strings"
)

// StaticOracle is the deterministic rule-based scoring backend. It serves two
// purposes: production fallback when no LLM backend is configured, and the
// default test double. Given the same inputs it always produces the same
// outputs.
type StaticOracle struct{}

func NewStaticOracle() *StaticOracle {
	return &StaticOracle{}
}

var fallbackQuestionBank = map[string]map[string]string{
	"technical": {
		"easy":   "Can you walk me through how you would approach debugging a function that's not working as expected?",
		"medium": "Explain the difference between synchronous and asynchronous processing. When would you use each?",
		"hard":   "Design a scalable system for handling millions of concurrent users. What are the key considerations?",
	},
	"behavioral": {
		"easy":   "Tell me about a time when you had to learn something new for a project.",
		"medium": "Describe a situation where you had to work with a difficult team member. How did you handle it?",
		"hard":   "Tell me about a time when you had to make a decision with incomplete information. What was your process?",
	},
	"system_design": {
		"easy":   "What factors do you consider when choosing between a relational and a document database?",
		"medium": "How would you design a URL shortening service? Walk me through the main components.",
		"hard":   "Design a globally distributed message queue with at-least-once delivery. Where are the hard trade-offs?",
	},
}

// FallbackQuestion returns the templated question for an interview type and
// difficulty. The dialogue engine uses it directly when the configured Oracle
// cannot produce a question, so a slow or failing backend never blocks a
// session.
func FallbackQuestion(interviewType, difficulty, role string) *GeneratedQuestion {
	question := ""
	if byDifficulty, ok := fallbackQuestionBank[interviewType]; ok {
		question = byDifficulty[difficulty]
	}
	if question == "" {
		question = fmt.Sprintf("Tell me about your experience and what interests you about the %s role.", role)
	}
	return &GeneratedQuestion{
		Category:         interviewType,
		Question:         question,
		Difficulty:       difficulty,
		ExpectedKeywords: []string{"experience", "approach", "example"},
	}
}

func (o *StaticOracle) GenerateQuestion(ctx context.Context, req QuestionRequest) (*GeneratedQuestion, error) {
	return FallbackQuestion(req.InterviewType, req.Difficulty, req.Role), nil
}

func (o *StaticOracle) GenerateFollowUp(ctx context.Context, req FollowUpRequest) (string, error) {
	if req.AggregateScore >= 50 {
		return "That's interesting. Can you elaborate on that further?", nil
	}
	return "Let's go a bit deeper. Can you tell me more about your approach to this?", nil
}

// Analyze scores an answer with length and keyword heuristics: a base of 50
// per axis, adjusted by answer length and by the share of expected keywords
// the answer actually mentions.
func (o *StaticOracle) Analyze(ctx context.Context, req AnalyzeRequest) (*OracleAnalysis, error) {
	matched := matchKeywords(req.Answer, req.ExpectedKeywords)

	length := len(strings.Fields(req.Answer))
	lengthBonus := float64(length / 10 * 5)
	if lengthBonus > 20 {
		lengthBonus = 20
	}

	keywordBonus := 0.0
	if len(req.ExpectedKeywords) > 0 {
		keywordBonus = 25 * float64(len(matched)) / float64(len(req.ExpectedKeywords))
	}

	base := 50 + lengthBonus/2 + keywordBonus/2
	sentiment := "neutral"
	if base >= 70 {
		sentiment = "positive"
	}

	return &OracleAnalysis{
		TechnicalAccuracy: base + keywordBonus/2,
		Clarity:           base + lengthBonus/4,
		Depth:             base,
		Confidence:        base,
		Sentiment:         sentiment,
		KeywordsMatched:   matched,
	}, nil
}
