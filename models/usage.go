package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UsageLedger tracks per-user session consumption. FreeUsed never exceeds the
// configured free limit and MonthlyUsed never exceeds the monthly limit
// between resets; both are only ever incremented inside the session-creation
// transaction.
type UsageLedger struct {
	ID     string `gorm:"type:uuid;primaryKey" json:"id"`
	UserID string `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`

	FreeUsed         int       `gorm:"not null;default:0" json:"free_used"`
	MonthlyUsed      int       `gorm:"not null;default:0" json:"monthly_used"`
	LastMonthlyReset time.Time `gorm:"not null" json:"last_monthly_reset"`

	// Aggregate stats surfaced alongside history
	TotalSessions     int        `gorm:"not null;default:0" json:"total_sessions"`
	CompletedSessions int        `gorm:"not null;default:0" json:"completed_sessions"`
	BestScore         float64    `gorm:"type:decimal(5,2);not null;default:0" json:"best_score"`
	LastSessionAt     *time.Time `json:"last_session_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (l *UsageLedger) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.LastMonthlyReset.IsZero() {
		l.LastMonthlyReset = time.Now()
	}
	return nil
}

// NeedsMonthlyReset reports whether the calendar month or year has rolled
// over since the last reset.
func (l *UsageLedger) NeedsMonthlyReset(now time.Time) bool {
	return now.Month() != l.LastMonthlyReset.Month() || now.Year() != l.LastMonthlyReset.Year()
}
