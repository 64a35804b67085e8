package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hirecraft/interview-engine/models"
	"gorm.io/gorm"
)

func (r *GORMRepository) CreateInterviewSession(ctx context.Context, session *models.InterviewSession) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		slog.Error("Failed to create interview session", "error", err)
		return fmt.Errorf("failed to create interview session: %w", err)
	}
	slog.Info("Interview session created", "session_id", session.ID, "user_id", session.UserID, "status", session.Status)
	return nil
}

func (r *GORMRepository) GetInterviewSession(ctx context.Context, sessionID string) (*models.InterviewSession, error) {
	var session models.InterviewSession
	err := r.db.WithContext(ctx).Where("id = ?", sessionID).First(&session).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get interview session", "error", err, "session_id", sessionID)
		return nil, err
	}
	return &session, nil
}

// GetInterviewSessionForUpdate loads a session under a row lock. Callers must
// be inside WithTx.
func (r *GORMRepository) GetInterviewSessionForUpdate(ctx context.Context, sessionID string) (*models.InterviewSession, error) {
	var session models.InterviewSession
	err := r.forUpdate(r.db.WithContext(ctx)).Where("id = ?", sessionID).First(&session).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to lock interview session", "error", err, "session_id", sessionID)
		return nil, err
	}
	return &session, nil
}

func (r *GORMRepository) GetInterviewSessionWithDetails(ctx context.Context, sessionID string) (*models.InterviewSession, error) {
	var session models.InterviewSession
	err := r.db.WithContext(ctx).
		Where("id = ?", sessionID).
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("turn_index") }).
		Preload("Feedback").
		First(&session).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get interview session with details", "error", err, "session_id", sessionID)
		return nil, err
	}
	return &session, nil
}

func (r *GORMRepository) GetSessionsByUser(ctx context.Context, userID string) ([]models.InterviewSession, error) {
	var sessions []models.InterviewSession
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Preload("Feedback").
		Order("created_at DESC").
		Find(&sessions).Error
	if err != nil {
		slog.Error("Failed to get interview sessions", "error", err, "user_id", userID)
		return nil, err
	}
	return sessions, nil
}

func (r *GORMRepository) GetSessionsByAssigner(ctx context.Context, recruiterID string) ([]models.InterviewSession, error) {
	var sessions []models.InterviewSession
	err := r.db.WithContext(ctx).
		Where("assigned_by = ?", recruiterID).
		Preload("User").
		Preload("Feedback").
		Order("assigned_at DESC").
		Find(&sessions).Error
	if err != nil {
		slog.Error("Failed to get assigned sessions", "error", err, "recruiter_id", recruiterID)
		return nil, err
	}
	return sessions, nil
}

func (r *GORMRepository) SaveSession(ctx context.Context, session *models.InterviewSession) error {
	if err := r.db.WithContext(ctx).Save(session).Error; err != nil {
		slog.Error("Failed to save interview session", "error", err, "session_id", session.ID)
		return err
	}
	return nil
}

// ListIdleActiveSessions returns active sessions whose last activity is at or
// before the cutoff, candidates for the abandonment sweep.
func (r *GORMRepository) ListIdleActiveSessions(ctx context.Context, cutoff time.Time) ([]models.InterviewSession, error) {
	var sessions []models.InterviewSession
	err := r.db.WithContext(ctx).
		Where("status = ? AND last_activity_at <= ?", models.SessionActive, cutoff).
		Find(&sessions).Error
	if err != nil {
		slog.Error("Failed to list idle active sessions", "error", err)
		return nil, err
	}
	return sessions, nil
}

// AbandonSessionIfActive transitions a session to abandoned only if it is
// still active at the moment of the write, so a completion that slipped in
// between the sweep's read and this write wins. Returns whether the session
// was actually abandoned.
func (r *GORMRepository) AbandonSessionIfActive(ctx context.Context, sessionID string) (bool, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.InterviewSession{}).
		Where("id = ? AND status = ?", sessionID, models.SessionActive).
		Updates(map[string]interface{}{
			"status":       models.SessionAbandoned,
			"completed_at": now,
		})
	if result.Error != nil {
		slog.Error("Failed to abandon session", "error", result.Error, "session_id", sessionID)
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}
	slog.Info("Session abandoned", "session_id", sessionID)
	return true, nil
}

// Feedback operations

func (r *GORMRepository) CreateFeedback(ctx context.Context, feedback *models.InterviewFeedback) error {
	if err := r.db.WithContext(ctx).Create(feedback).Error; err != nil {
		slog.Error("Failed to create interview feedback", "error", err, "session_id", feedback.SessionID)
		return fmt.Errorf("failed to create interview feedback: %w", err)
	}
	slog.Info("Interview feedback created", "feedback_id", feedback.ID, "session_id", feedback.SessionID, "overall_score", feedback.OverallScore)
	return nil
}

func (r *GORMRepository) GetFeedbackBySession(ctx context.Context, sessionID string) (*models.InterviewFeedback, error) {
	var feedback models.InterviewFeedback
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&feedback).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get interview feedback", "error", err, "session_id", sessionID)
		return nil, err
	}
	return &feedback, nil
}

// DeleteFeedbackBySession removes a session's feedback row for a retake
// reset. Hard delete: the unique session index must be free for the next
// attempt's report.
func (r *GORMRepository) DeleteFeedbackBySession(ctx context.Context, sessionID string) error {
	if err := r.db.WithContext(ctx).Unscoped().Where("session_id = ?", sessionID).Delete(&models.InterviewFeedback{}).Error; err != nil {
		slog.Error("Failed to delete interview feedback", "error", err, "session_id", sessionID)
		return err
	}
	return nil
}
