package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentStatus is the closed set of retake payment states.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// RetakePayment gates one retake attempt on one session. A payment may only
// reach completed through the broker's confirm path, which atomically re-arms
// the session in the same transaction; RetakeNumber is the retake count the
// session must reach when this payment completes, which is what the
// reconciliation sweep checks to detect a paid-but-not-unlocked session.
type RetakePayment struct {
	ID        string `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID string `gorm:"type:uuid;not null;index" json:"session_id"`
	UserID    string `gorm:"type:uuid;not null;index" json:"user_id"`

	AmountCents int           `gorm:"not null" json:"amount_cents"`
	Provider    string        `gorm:"size:50;not null;check:provider IN ('stripe', 'paypal', 'razorpay')" json:"provider"`
	Status      PaymentStatus `gorm:"size:50;not null;default:'pending';check:status IN ('pending', 'completed', 'failed')" json:"status"`

	RetakeNumber  int     `gorm:"not null" json:"retake_number"`
	PreviousScore float64 `gorm:"type:decimal(5,2);not null;default:0" json:"previous_score"`
	ChargeRef     string  `gorm:"size:255" json:"charge_ref,omitempty"` // provider charge handle, opaque here

	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Session *InterviewSession `gorm:"foreignKey:SessionID" json:"session,omitempty"`
	User    *User             `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (p *RetakePayment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}
