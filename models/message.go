package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageSender identifies which side of the dialogue produced a turn.
type MessageSender string

const (
	SenderInterviewer MessageSender = "interviewer"
	SenderCandidate   MessageSender = "candidate"
)

// SenderForIndex returns the sender required at a given 1-based turn index.
// Turns strictly alternate starting with the interviewer, so odd indices are
// interviewer turns and even indices are candidate turns.
func SenderForIndex(index int) MessageSender {
	if index%2 == 1 {
		return SenderInterviewer
	}
	return SenderCandidate
}

// MessageType classifies a turn within the dialogue protocol.
type MessageType string

const (
	MessageGreeting MessageType = "greeting"
	MessageQuestion MessageType = "question"
	MessageFollowUp MessageType = "follow_up"
	MessageAnswer   MessageType = "answer"
	MessageClosing  MessageType = "closing"
)

// TurnScores holds the per-turn analysis axes for a candidate answer.
// Every axis is clamped into [0,100] before it reaches storage.
type TurnScores struct {
	TechnicalAccuracy float64  `gorm:"type:decimal(5,2)" json:"technical_accuracy"`
	Clarity           float64  `gorm:"type:decimal(5,2)" json:"clarity"`
	Depth             float64  `gorm:"type:decimal(5,2)" json:"depth"`
	Confidence        float64  `gorm:"type:decimal(5,2)" json:"confidence"`
	Sentiment         string   `gorm:"size:50" json:"sentiment"`
	KeywordsMatched   []string `gorm:"serializer:json" json:"keywords_matched"`
}

// Aggregate is the mean of the four numeric axes, used by the dialogue
// engine's follow-up policy and by feedback synthesis.
func (s TurnScores) Aggregate() float64 {
	return (s.TechnicalAccuracy + s.Clarity + s.Depth + s.Confidence) / 4
}

// InterviewMessage is a single turn in a session's dialogue. Indices are
// 1-based, gapless and strictly increasing per session; the unique index on
// (session_id, turn_index) backs that invariant at the storage layer.
type InterviewMessage struct {
	ID        string        `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID string        `gorm:"type:uuid;not null;uniqueIndex:uniq_session_turn" json:"session_id"`
	TurnIndex int           `gorm:"not null;uniqueIndex:uniq_session_turn" json:"turn_index"`
	Sender    MessageSender `gorm:"size:50;not null;check:sender IN ('interviewer', 'candidate')" json:"sender"`
	Type      MessageType   `gorm:"size:50;not null;check:type IN ('greeting', 'question', 'follow_up', 'answer', 'closing')" json:"type"`
	Content   string        `gorm:"type:text;not null" json:"content"`

	// Question metadata (interviewer turns only)
	Category         string   `gorm:"size:50" json:"category,omitempty"`
	ExpectedKeywords []string `gorm:"serializer:json" json:"expected_keywords,omitempty"`

	// Analysis (candidate turns only). Scored is false for turns the
	// analyzer never saw, e.g. the reply to the greeting.
	Scored   bool       `gorm:"not null;default:false" json:"scored"`
	Scores   TurnScores `gorm:"embedded" json:"scores"`
	Degraded bool       `gorm:"not null;default:false" json:"degraded"` // analysis fell back to neutral defaults

	TimeSpentSeconds int `json:"time_spent_seconds,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Session *InterviewSession `gorm:"foreignKey:SessionID" json:"session,omitempty"`
}

func (m *InterviewMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

// TableName returns the table name for the InterviewMessage model
func (InterviewMessage) TableName() string {
	return "interview_messages"
}
