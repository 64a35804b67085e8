package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/hirecraft/interview-engine/models"
	"github.com/hirecraft/interview-engine/repository"
)

// Notifier tells a candidate they have been assigned an interview. Delivery
// failures never roll back the assignment; the EmailSent flag records whether
// the notification went out.
type Notifier interface {
	NotifyAssignment(ctx context.Context, candidate *models.User, assignerID, sessionID string, dueDate *time.Time, role, company string) error
}

// SlogNotifier logs the notification instead of sending it. Stands in for a
// real mail or push integration.
type SlogNotifier struct{}

func (n *SlogNotifier) NotifyAssignment(ctx context.Context, candidate *models.User, assignerID, sessionID string, dueDate *time.Time, role, company string) error {
	slog.Info("Assignment notification",
		"candidate_email", candidate.Email, "assigner_id", assignerID,
		"session_id", sessionID, "role", role, "company", company, "due_date", dueDate)
	return nil
}

// AssignRequest is a recruiter's order to put a candidate through a mock
// interview.
type AssignRequest struct {
	RecruiterID      string
	CandidateID      string
	InterviewType    string
	Role             string
	Company          string
	Difficulty       string
	DurationMinutes  int
	Personality      string
	PlannedQuestions int
	JobPostingID     *string
	DueDate          *time.Time
}

// AssignedSessionView is one row in a recruiter's assignment list.
type AssignedSessionView struct {
	Session  models.InterviewSession   `json:"session"`
	Feedback *models.InterviewFeedback `json:"feedback,omitempty"`
	Overdue  bool                      `json:"overdue"`
}

// AssignmentStats aggregates a recruiter's assignments. AverageScore only
// counts sessions that actually produced feedback.
type AssignmentStats struct {
	Total        int     `json:"total"`
	Completed    int     `json:"completed"`
	Pending      int     `json:"pending"`
	AverageScore float64 `json:"average_score"`
}

// AssignmentDirector is the recruiter-facing surface: assigning structured
// mock sessions to candidates, listing them and aggregating results.
// Assigned sessions bypass the candidate's quota; the recruiter's
// organization carries the cost.
type AssignmentDirector struct {
	repo     *repository.GORMRepository
	sessions *SessionManager
	notifier Notifier
}

func NewAssignmentDirector(repo *repository.GORMRepository, sessions *SessionManager, notifier Notifier) *AssignmentDirector {
	return &AssignmentDirector{repo: repo, sessions: sessions, notifier: notifier}
}

// Assign creates a structured mock session for the candidate in the assigned
// state and notifies them best effort.
func (d *AssignmentDirector) Assign(ctx context.Context, req AssignRequest) (*models.InterviewSession, error) {
	recruiter, err := d.repo.GetUserByID(ctx, req.RecruiterID)
	if err != nil {
		return nil, err
	}
	if recruiter == nil {
		return nil, models.ErrUserNotFound
	}
	if recruiter.UserType != models.UserTypeRecruiter {
		return nil, models.ErrAccessDenied
	}
	candidate, err := d.repo.GetUserByID(ctx, req.CandidateID)
	if err != nil {
		return nil, err
	}
	if candidate == nil {
		return nil, models.ErrUserNotFound
	}

	session, err := d.sessions.CreateSession(ctx, CreateSessionRequest{
		UserID:           req.CandidateID,
		AssignedBy:       &req.RecruiterID,
		Kind:             models.SessionKindStructuredMock,
		InterviewType:    req.InterviewType,
		Role:             req.Role,
		Company:          req.Company,
		Difficulty:       req.Difficulty,
		DurationMinutes:  req.DurationMinutes,
		Personality:      req.Personality,
		PlannedQuestions: req.PlannedQuestions,
		JobPostingID:     req.JobPostingID,
		DueDate:          req.DueDate,
	})
	if err != nil {
		return nil, err
	}

	if err := d.notifier.NotifyAssignment(ctx, candidate, req.RecruiterID, session.ID, req.DueDate, req.Role, req.Company); err != nil {
		slog.Error("Assignment notification failed", "session_id", session.ID, "error", err)
	} else {
		session.EmailSent = true
		if err := d.repo.SaveSession(ctx, session); err != nil {
			slog.Error("Failed to record notification flag", "session_id", session.ID, "error", err)
		}
	}
	return session, nil
}

// ListAssigned returns the recruiter's assignments with overdue flags.
func (d *AssignmentDirector) ListAssigned(ctx context.Context, recruiterID string) ([]AssignedSessionView, error) {
	sessions, err := d.repo.GetSessionsByAssigner(ctx, recruiterID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	views := make([]AssignedSessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, AssignedSessionView{
			Session:  s,
			Feedback: s.Feedback,
			Overdue:  s.Overdue(now),
		})
	}
	return views, nil
}

// Stats aggregates the recruiter's assignment outcomes.
func (d *AssignmentDirector) Stats(ctx context.Context, recruiterID string) (*AssignmentStats, error) {
	sessions, err := d.repo.GetSessionsByAssigner(ctx, recruiterID)
	if err != nil {
		return nil, err
	}
	stats := &AssignmentStats{Total: len(sessions)}
	scoreSum, scored := 0.0, 0
	for _, s := range sessions {
		if s.Status == models.SessionCompleted {
			stats.Completed++
		} else {
			stats.Pending++
		}
		if s.Feedback != nil {
			scoreSum += s.Feedback.OverallScore
			scored++
		}
	}
	if scored > 0 {
		stats.AverageScore = scoreSum / float64(scored)
	}
	return stats, nil
}

// Results returns an assigned session's transcript and feedback to its
// assigner (or the candidate) and marks results as shared with the recruiter.
func (d *AssignmentDirector) Results(ctx context.Context, sessionID, callerID string) (*models.InterviewSession, error) {
	session, err := d.sessions.GetSession(ctx, sessionID, callerID)
	if err != nil {
		return nil, err
	}
	if session.AssignedBy != nil && *session.AssignedBy == callerID && !session.ResultsShared {
		session.ResultsShared = true
		if err := d.repo.SaveSession(ctx, session); err != nil {
			slog.Error("Failed to record results share", "session_id", sessionID, "error", err)
		}
	}
	return session, nil
}
