package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReadinessTier is the categorical verdict derived from the overall score.
type ReadinessTier string

const (
	TierReady           ReadinessTier = "ready"
	TierNeedsPractice   ReadinessTier = "needs_practice"
	TierSignificantGaps ReadinessTier = "significant_gaps"
)

// TierForScore maps an overall score to its readiness tier.
func TierForScore(overall float64) ReadinessTier {
	switch {
	case overall >= 80:
		return TierReady
	case overall >= 60:
		return TierNeedsPractice
	default:
		return TierSignificantGaps
	}
}

// InterviewFeedback is the write-once aggregate report for a completed
// session. Exactly one row exists per completed session; the unique index on
// session_id rejects a second completion.
type InterviewFeedback struct {
	ID        string `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID string `gorm:"type:uuid;not null;uniqueIndex" json:"session_id"`

	PerformanceSummary string `gorm:"type:text" json:"performance_summary"`

	// Per-axis means over all scored candidate turns
	TechnicalAccuracy float64 `gorm:"type:decimal(5,2);not null" json:"technical_accuracy"`
	Clarity           float64 `gorm:"type:decimal(5,2);not null" json:"clarity"`
	Depth             float64 `gorm:"type:decimal(5,2);not null" json:"depth"`
	Confidence        float64 `gorm:"type:decimal(5,2);not null" json:"confidence"`

	OverallScore float64       `gorm:"type:decimal(5,2);not null" json:"overall_score"`
	Readiness    ReadinessTier `gorm:"size:50;not null;check:readiness IN ('ready', 'needs_practice', 'significant_gaps')" json:"readiness"`

	Strengths  []string `gorm:"serializer:json" json:"strengths"`
	Weaknesses []string `gorm:"serializer:json" json:"weaknesses"`
	NextSteps  []string `gorm:"serializer:json" json:"next_steps"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Session *InterviewSession `gorm:"foreignKey:SessionID" json:"session,omitempty"`
}

func (f *InterviewFeedback) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	return nil
}

// TableName returns the table name for the InterviewFeedback model
func (InterviewFeedback) TableName() string {
	return "interview_feedbacks"
}
