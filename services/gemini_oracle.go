package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const geminiModelName = "gemini-2.5-flash"

// GeminiOracle backs the Oracle interface with Google's Gemini models.
type GeminiOracle struct {
	client *genai.Client
}

func NewGeminiOracle(ctx context.Context, apiKey string) (*GeminiOracle, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini oracle: missing API key")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini oracle: create client: %w", err)
	}
	return &GeminiOracle{client: client}, nil
}

func (o *GeminiOracle) generate(ctx context.Context, system, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	}
	result, err := o.client.Models.GenerateContent(ctx, geminiModelName, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}
	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("%w: empty response", ErrOracleUnavailable)
	}
	return text, nil
}

func (o *GeminiOracle) GenerateQuestion(ctx context.Context, req QuestionRequest) (*GeneratedQuestion, error) {
	var prior strings.Builder
	for i, answer := range req.PreviousAnswers {
		fmt.Fprintf(&prior, "Previous answer %d: %s\n", i+1, answer)
	}
	system := "You are an expert interviewer. Generate one interview question. Return JSON only, no prose."
	prompt := fmt.Sprintf(`Generate interview question #%d for a %s interview.
Role: %s
Company: %s
Difficulty: %s
%s
Return JSON only: {"category": "...", "question": "...", "difficulty": "%s", "expectedKeywords": ["...", "..."]}`,
		req.QuestionNumber, req.InterviewType, req.Role, req.Company, req.Difficulty, prior.String(), req.Difficulty)

	content, err := o.generate(ctx, system, prompt)
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

func (o *GeminiOracle) Analyze(ctx context.Context, req AnalyzeRequest) (*OracleAnalysis, error) {
	system := "You are an expert interview assessor. Score the candidate's answer. Return JSON only, no prose."
	prompt := fmt.Sprintf(`Question: %s
Category: %s
Expected keywords: %s
Candidate answer: %s
Score each dimension 0-100.
Return JSON only: {"technicalAccuracy": 0, "clarityScore": 0, "depthScore": 0, "confidence": 0, "sentiment": "positive|neutral|negative", "keywordsMatched": ["..."]}`,
		req.Question, req.Category, strings.Join(req.ExpectedKeywords, ", "), req.Answer)

	content, err := o.generate(ctx, system, prompt)
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

func (o *GeminiOracle) GenerateFollowUp(ctx context.Context, req FollowUpRequest) (string, error) {
	system := fmt.Sprintf("You are an interviewer with a %s personality. Write one short follow-up question. Plain text only.", req.Personality)
	prompt := fmt.Sprintf(`The candidate gave a weak answer (score %.0f/100).
Question: %s
Answer: %s
Ask one follow-up question that probes the gap.`, req.AggregateScore, req.Question, req.Answer)

	content, err := o.generate(ctx, system, prompt)
	if err != nil {
		return "", err
	}
	followUp := strings.TrimSpace(strings.Trim(strings.TrimSpace(content), `"`))
	if followUp == "" {
		return "", fmt.Errorf("%w: empty follow-up", ErrOracleUnavailable)
	}
	return followUp, nil
}
