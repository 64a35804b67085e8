package services

import (
	"fmt"
	"sort"

	"github.com/hirecraft/interview-engine/models"
)

// FeedbackSynthesizer aggregates per-turn scores into the session's final
// report. It is a pure computation: same scores in, same feedback out, no
// external calls. Any turn that was scored, including degraded ones, counts.
type FeedbackSynthesizer struct{}

func NewFeedbackSynthesizer() *FeedbackSynthesizer {
	return &FeedbackSynthesizer{}
}

const (
	axisMidline  = 70.0
	maxHighlight = 3
)

type axisResult struct {
	name     string
	score    float64
	strength string
	weakness string
	nextStep string
}

// Synthesize builds the final feedback from the scored turns of a session.
// Returns nil when no turn was scored; the caller decides what a feedback-less
// completion means.
func (s *FeedbackSynthesizer) Synthesize(sessionID string, scores []models.TurnScores) *models.InterviewFeedback {
	if len(scores) == 0 {
		return nil
	}

	var tech, clarity, depth, confidence float64
	for _, turn := range scores {
		tech += turn.TechnicalAccuracy
		clarity += turn.Clarity
		depth += turn.Depth
		confidence += turn.Confidence
	}
	n := float64(len(scores))
	tech /= n
	clarity /= n
	depth /= n
	confidence /= n
	overall := (tech + clarity + depth + confidence) / 4

	axes := []axisResult{
		{
			name:     "technical accuracy",
			score:    tech,
			strength: "Strong technical accuracy: your answers were factually solid and on point",
			weakness: "Technical accuracy needs work: several answers missed key facts or concepts",
			nextStep: "Review the core concepts for your target role and practice explaining them precisely",
		},
		{
			name:     "clarity",
			score:    clarity,
			strength: "Clear communication: your answers were well structured and easy to follow",
			weakness: "Communication clarity needs work: answers were hard to follow or poorly structured",
			nextStep: "Practice the STAR structure so each answer has a clear beginning, middle and end",
		},
		{
			name:     "depth",
			score:    depth,
			strength: "Good depth: you backed up your answers with detail and concrete examples",
			weakness: "Answers lacked depth: add concrete examples and go beyond surface-level statements",
			nextStep: "Prepare two or three detailed stories from past work you can draw on for examples",
		},
		{
			name:     "confidence",
			score:    confidence,
			strength: "Confident delivery: you came across as assured in your responses",
			weakness: "Delivery lacked confidence: hedging and uncertainty weakened otherwise good answers",
			nextStep: "Do timed mock sessions to build comfort answering under pressure",
		},
	}

	feedback := &models.InterviewFeedback{
		SessionID:         sessionID,
		TechnicalAccuracy: tech,
		Clarity:           clarity,
		Depth:             depth,
		Confidence:        confidence,
		OverallScore:      overall,
		Readiness:         models.TierForScore(overall),
		Strengths:         []string{},
		Weaknesses:        []string{},
		NextSteps:         []string{},
	}

	strong := make([]axisResult, 0, len(axes))
	weak := make([]axisResult, 0, len(axes))
	for _, axis := range axes {
		if axis.score >= axisMidline {
			strong = append(strong, axis)
		} else {
			weak = append(weak, axis)
		}
	}
	sort.SliceStable(strong, func(i, j int) bool { return strong[i].score > strong[j].score })
	sort.SliceStable(weak, func(i, j int) bool { return weak[i].score < weak[j].score })

	for i, axis := range strong {
		if i == maxHighlight {
			break
		}
		feedback.Strengths = append(feedback.Strengths, axis.strength)
	}
	for i, axis := range weak {
		if i == maxHighlight {
			break
		}
		feedback.Weaknesses = append(feedback.Weaknesses, axis.weakness)
		feedback.NextSteps = append(feedback.NextSteps, axis.nextStep)
	}
	if len(feedback.NextSteps) == 0 {
		feedback.NextSteps = append(feedback.NextSteps,
			"Keep your skills sharp with regular practice sessions at harder difficulty levels")
	}

	feedback.PerformanceSummary = summarize(overall, feedback.Readiness, len(scores))
	return feedback
}

func summarize(overall float64, readiness models.ReadinessTier, turns int) string {
	switch readiness {
	case models.TierReady:
		return fmt.Sprintf(
			"Excellent performance across %d scored answers with an overall score of %.0f/100. You demonstrated interview readiness and should feel confident going into real interviews.",
			turns, overall)
	case models.TierNeedsPractice:
		return fmt.Sprintf(
			"Solid performance across %d scored answers with an overall score of %.0f/100. You have a good foundation, but targeted practice on your weaker areas will make a real difference.",
			turns, overall)
	default:
		return fmt.Sprintf(
			"Your %d scored answers produced an overall score of %.0f/100, which points to significant gaps. Focus on the next steps below before attempting real interviews.",
			turns, overall)
	}
}
