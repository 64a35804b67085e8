package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionStatus is the closed set of lifecycle states for an interview session.
type SessionStatus string

const (
	SessionAssigned  SessionStatus = "assigned"
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionAbandoned SessionStatus = "abandoned"
)

// SessionEvent names a lifecycle transition trigger.
type SessionEvent string

const (
	EventStart    SessionEvent = "start"
	EventComplete SessionEvent = "complete"
	EventTimeout  SessionEvent = "timeout"
	EventRetake   SessionEvent = "retake" // only ever raised with a confirmed payment
)

// sessionTransitions is the exhaustive transition table. Any (status, event)
// pair not listed here is an invalid transition, no exceptions.
var sessionTransitions = map[SessionStatus]map[SessionEvent]SessionStatus{
	SessionAssigned: {
		EventStart: SessionActive,
	},
	SessionActive: {
		EventComplete: SessionCompleted,
		EventTimeout:  SessionAbandoned,
	},
	SessionCompleted: {
		EventRetake: SessionAssigned,
	},
	SessionAbandoned: {
		EventRetake: SessionAssigned,
	},
}

// Transition returns the status reached by applying event, and whether the
// transition is permitted at all.
func (s SessionStatus) Transition(event SessionEvent) (SessionStatus, bool) {
	next, ok := sessionTransitions[s][event]
	return next, ok
}

const (
	SessionKindConversational = "conversational"
	SessionKindStructuredMock = "structured_mock"
)

// InterviewSession records each interview attempt. The config fields (kind,
// interview type, role, company, difficulty, duration, personality, planned
// question count) are snapshotted at creation and never change afterwards.
type InterviewSession struct {
	ID         string  `gorm:"type:uuid;primaryKey" json:"id"`
	SessionKey string  `gorm:"size:64;uniqueIndex;not null" json:"session_key"` // opaque handle for external callers
	UserID     string  `gorm:"type:uuid;not null;index" json:"user_id"`
	AssignedBy *string `gorm:"type:uuid;index" json:"assigned_by,omitempty"` // recruiter id, NULL for self-service

	// Config snapshot, immutable after creation
	Kind             string `gorm:"size:50;not null;check:kind IN ('conversational', 'structured_mock')" json:"kind"`
	InterviewType    string `gorm:"size:50;not null" json:"interview_type"` // technical, behavioral, system_design
	Role             string `gorm:"size:255;not null" json:"role"`
	Company          string `gorm:"size:255" json:"company,omitempty"`
	Difficulty       string `gorm:"size:50;not null" json:"difficulty"`
	DurationMinutes  int    `gorm:"not null" json:"duration_minutes"`
	Personality      string `gorm:"size:50;not null" json:"personality"`
	PlannedQuestions int    `gorm:"not null" json:"planned_questions"`
	JobPostingID     *string `gorm:"type:uuid" json:"job_posting_id,omitempty"`

	Status SessionStatus `gorm:"size:50;not null;default:'active';check:status IN ('assigned', 'active', 'completed', 'abandoned')" json:"status"`

	// Progress counters. MessageCount doubles as the gapless turn index
	// allocator: the next message always gets MessageCount+1.
	MessageCount     int `gorm:"not null;default:0" json:"message_count"`
	QuestionsAsked   int `gorm:"not null;default:0" json:"questions_asked"`
	FollowUpsAsked   int `gorm:"not null;default:0" json:"follow_ups_asked"`
	TimeRemaining    int `gorm:"not null;default:0" json:"time_remaining"` // seconds
	TimeSpentSeconds int `gorm:"not null;default:0" json:"time_spent_seconds"`

	RetakeCount int `gorm:"not null;default:0" json:"retake_count"`
	MaxRetakes  int `gorm:"not null;default:2" json:"max_retakes"`

	ResultsShared bool `gorm:"not null;default:false" json:"results_shared"`
	EmailSent     bool `gorm:"not null;default:false" json:"email_sent"`

	DueDate        *time.Time `json:"due_date,omitempty"`
	AssignedAt     *time.Time `json:"assigned_at,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	LastActivityAt time.Time  `gorm:"not null" json:"last_activity_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	User     User               `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Messages []InterviewMessage `gorm:"foreignKey:SessionID" json:"messages,omitempty"`
	Feedback *InterviewFeedback `gorm:"foreignKey:SessionID" json:"feedback,omitempty"`
}

func (s *InterviewSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.SessionKey == "" {
		s.SessionKey = uuid.New().String()
	}
	if s.LastActivityAt.IsZero() {
		s.LastActivityAt = time.Now()
	}
	return nil
}

// Overdue reports whether an assigned session has blown past its due date
// without being completed.
func (s *InterviewSession) Overdue(now time.Time) bool {
	return s.DueDate != nil && now.After(*s.DueDate) && s.Status != SessionCompleted
}
