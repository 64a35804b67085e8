package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	UserTypeCandidate = "candidate"
	UserTypeRecruiter = "recruiter"

	PlanFree    = "free"
	PlanPremium = "premium"
)

type User struct {
	ID                 string         `gorm:"type:uuid;primaryKey" json:"id"`
	Email              string         `gorm:"uniqueIndex;not null" json:"email"`
	Password           string         `gorm:"size:255" json:"-"` // Hashed password (excluded from JSON)
	FullName           string         `gorm:"size:255" json:"full_name,omitempty"`
	UserType           string         `gorm:"size:50;not null;default:'candidate';check:user_type IN ('candidate', 'recruiter')" json:"user_type"`
	PlanType           string         `gorm:"size:50;not null;default:'free'" json:"plan_type"`
	SubscriptionStatus string         `gorm:"size:50" json:"subscription_status,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Sessions []InterviewSession `gorm:"foreignKey:UserID" json:"sessions,omitempty"`
	Ledger   *UsageLedger       `gorm:"foreignKey:UserID" json:"ledger,omitempty"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// IsPremium reports whether the user is on an active premium plan.
func (u *User) IsPremium() bool {
	return u.PlanType == PlanPremium || u.SubscriptionStatus == "active"
}
