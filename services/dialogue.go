package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hirecraft/interview-engine/models"
)

// personaStyle holds the canned phrasing for one interviewer personality.
type personaStyle struct {
	greeting      string
	transition    string
	encouragement string
	closing       string
}

var personaStyles = map[string]personaStyle{
	"friendly": {
		greeting:      "Hi %s! Thanks so much for taking the time today. I'm excited to learn more about you. We'll go through a few questions about the %s role, so just relax and answer as naturally as you can. Ready when you are!",
		transition:    "Great, thanks for sharing that! Let's move on.",
		encouragement: "You're doing great!",
		closing:       "That wraps up our questions! Thank you so much for your time today, it was a pleasure talking with you. You'll receive detailed feedback shortly.",
	},
	"professional": {
		greeting:      "Good day, %s. Thank you for joining this interview for the %s position. We will proceed through a structured set of questions. Please answer each one as completely as you can. Let's begin.",
		transition:    "Understood. Let's proceed to the next question.",
		encouragement: "Noted.",
		closing:       "That concludes the interview. Thank you for your responses. A detailed assessment will be prepared and shared with you shortly.",
	},
	"challenging": {
		greeting:      "Hello %s. I'll be conducting your interview for the %s role today. I expect precise, well-reasoned answers, so take a moment to think before you respond. Let's get started.",
		transition:    "Alright. Next question.",
		encouragement: "Let's keep the momentum.",
		closing:       "We're done here. Your answers will be assessed in detail and you'll receive feedback on where you stood up and where you didn't.",
	},
}

func styleFor(personality string) personaStyle {
	if style, ok := personaStyles[personality]; ok {
		return style
	}
	return personaStyles["professional"]
}

// DialogueEngine decides what the interviewer says next: greeting, question,
// follow-up or closing. Question generation goes through the configured
// Oracle with a bounded context window of recent answers and a bounded
// timeout; when the Oracle fails or runs past the deadline the engine falls
// back to the templated question bank so the session always progresses.
type DialogueEngine struct {
	oracle  Oracle
	cfg     DialogueConfig
	timeout time.Duration
}

func NewDialogueEngine(oracle Oracle, cfg DialogueConfig, timeout time.Duration) *DialogueEngine {
	return &DialogueEngine{oracle: oracle, cfg: cfg, timeout: timeout}
}

// Greeting renders the opening interviewer turn for a session.
func (e *DialogueEngine) Greeting(session *models.InterviewSession, candidateName string) string {
	return fmt.Sprintf(styleFor(session.Personality).greeting, candidateName, session.Role)
}

// Closing renders the final interviewer turn.
func (e *DialogueEngine) Closing(session *models.InterviewSession) string {
	return styleFor(session.Personality).closing
}

// NextQuestion produces the next main question. recentAnswers should be the
// candidate's scored answers so far; only the last ContextWindow of them are
// sent to the Oracle.
func (e *DialogueEngine) NextQuestion(ctx context.Context, session *models.InterviewSession, recentAnswers []string) *GeneratedQuestion {
	if n := e.cfg.ContextWindow; len(recentAnswers) > n {
		recentAnswers = recentAnswers[len(recentAnswers)-n:]
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	question, err := e.oracle.GenerateQuestion(ctx, QuestionRequest{
		InterviewType:   session.InterviewType,
		Difficulty:      session.Difficulty,
		Role:            session.Role,
		Company:         session.Company,
		QuestionNumber:  session.QuestionsAsked + 1,
		PreviousAnswers: recentAnswers,
	})
	if err != nil {
		slog.Warn("question generation fell back to templated bank",
			"session_id", session.ID, "error", err)
		return FallbackQuestion(session.InterviewType, session.Difficulty, session.Role)
	}
	return question
}

// ShouldFollowUp applies the probe rule: follow up only on a weak answer, and
// never twice in a row for the same question.
func (e *DialogueEngine) ShouldFollowUp(aggregate float64, previous *models.InterviewMessage) bool {
	if aggregate >= e.cfg.FollowUpThreshold {
		return false
	}
	return previous == nil || previous.Type != models.MessageFollowUp
}

// FollowUp produces a probing follow-up for a weak answer.
func (e *DialogueEngine) FollowUp(ctx context.Context, session *models.InterviewSession, question, answer string, aggregate float64) string {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	followUp, err := e.oracle.GenerateFollowUp(ctx, FollowUpRequest{
		Question:       question,
		Answer:         answer,
		AggregateScore: aggregate,
		Personality:    session.Personality,
	})
	if err != nil {
		slog.Warn("follow-up generation fell back to canned prompt",
			"session_id", session.ID, "error", err)
		return "Can you expand on that? Walk me through your reasoning in more detail."
	}
	return followUp
}

// Done reports whether the planned question budget has been spent.
func (e *DialogueEngine) Done(session *models.InterviewSession) bool {
	return session.QuestionsAsked >= session.PlannedQuestions
}
