package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// GroqOracle talks to Groq's OpenAI-compatible chat completions API. The
// go-openai client is pointed at the Groq base URL through its config.
type GroqOracle struct {
	client *openai.Client
	model  string
}

func NewGroqOracle(cfg AIConfig) (*GroqOracle, error) {
	if cfg.GroqAPIKey == "" {
		return nil, fmt.Errorf("groq oracle: missing API key")
	}
	clientCfg := openai.DefaultConfig(cfg.GroqAPIKey)
	clientCfg.BaseURL = cfg.GroqBaseURL
	return &GroqOracle{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.GroqModel,
	}, nil
}

func (o *GroqOracle) complete(ctx context.Context, system, user string, temperature float32, maxTokens int) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		slog.Error("groq completion failed", "model", o.model, "error", err)
		return "", fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrOracleUnavailable)
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *GroqOracle) GenerateQuestion(ctx context.Context, req QuestionRequest) (*GeneratedQuestion, error) {
	var prior strings.Builder
	for i, answer := range req.PreviousAnswers {
		fmt.Fprintf(&prior, "Previous answer %d: %s\n", i+1, answer)
	}

	system := "You are an expert interviewer. Generate one interview question. Return JSON only, no prose."
	user := fmt.Sprintf(`Generate interview question #%d for a %s interview.
Role: %s
Company: %s
Difficulty: %s
%s
Return JSON only: {"category": "...", "question": "...", "difficulty": "%s", "expectedKeywords": ["...", "..."]}`,
		req.QuestionNumber, req.InterviewType, req.Role, req.Company, req.Difficulty, prior.String(), req.Difficulty)

	content, err := o.complete(ctx, system, user, 0.7, 500)
	if err != nil {
		return nil, err
	}
	raw, err := cleanJSONResponse(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}
	var question GeneratedQuestion
	if err := json.Unmarshal([]byte(raw), &question); err != nil {
		return nil, fmt.Errorf("%w: malformed question payload: %v", ErrOracleUnavailable, err)
	}
	if question.Question == "" {
		return nil, fmt.Errorf("%w: question payload missing question text", ErrOracleUnavailable)
	}
	if question.Category == "" {
		question.Category = req.InterviewType
	}
	if question.Difficulty == "" {
		question.Difficulty = req.Difficulty
	}
	return &question, nil
}

func (o *GroqOracle) Analyze(ctx context.Context, req AnalyzeRequest) (*OracleAnalysis, error) {
	system := "You are an expert interview assessor. Score the candidate's answer. Return JSON only, no prose."
	user := fmt.Sprintf(`Question: %s
Category: %s
Expected keywords: %s
Candidate answer: %s
Score each dimension 0-100.
Return JSON only: {"technicalAccuracy": 0, "clarityScore": 0, "depthScore": 0, "confidence": 0, "sentiment": "positive|neutral|negative", "keywordsMatched": ["..."]}`,
		req.Question, req.Category, strings.Join(req.ExpectedKeywords, ", "), req.Answer)

	content, err := o.complete(ctx, system, user, 0.3, 300)
	if err != nil {
		return nil, err
	}
	raw, err := cleanJSONResponse(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}
	var analysis OracleAnalysis
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		return nil, fmt.Errorf("%w: malformed analysis payload: %v", ErrOracleUnavailable, err)
	}
	return &analysis, nil
}

func (o *GroqOracle) GenerateFollowUp(ctx context.Context, req FollowUpRequest) (string, error) {
	system := fmt.Sprintf("You are an interviewer with a %s personality. Write one short follow-up question. Plain text only.", req.Personality)
	user := fmt.Sprintf(`The candidate gave a weak answer (score %.0f/100).
Question: %s
Answer: %s
Ask one follow-up question that probes the gap.`, req.AggregateScore, req.Question, req.Answer)

	content, err := o.complete(ctx, system, user, 0.8, 200)
	if err != nil {
		return "", err
	}
	followUp := strings.TrimSpace(strings.Trim(strings.TrimSpace(content), `"`))
	if followUp == "" {
		return "", fmt.Errorf("%w: empty follow-up", ErrOracleUnavailable)
	}
	return followUp, nil
}
