package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hirecraft/interview-engine/models"
	"gorm.io/gorm"
)

// AppendMessage claims the next gapless turn index for a session and inserts
// the message, all under the session's row lock. This is the single write
// path for dialogue turns: two concurrent appends to the same session can
// never both claim the same index, and the sender parity check enforces the
// strict interviewer/candidate alternation. Progress counters on the session
// are folded into the same transaction.
func (r *GORMRepository) AppendMessage(ctx context.Context, sessionID string, msg *models.InterviewMessage) (*models.InterviewSession, error) {
	var session *models.InterviewSession
	err := r.WithTx(ctx, func(tx *GORMRepository) error {
		s, err := tx.GetInterviewSessionForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if s == nil {
			return models.ErrSessionNotFound
		}
		if s.Status != models.SessionActive {
			return fmt.Errorf("%w: status is %s", models.ErrSessionNotActive, s.Status)
		}

		next := s.MessageCount + 1
		if msg.Sender != models.SenderForIndex(next) {
			return fmt.Errorf("%w: turn %d expects %s, got %s",
				models.ErrOutOfTurn, next, models.SenderForIndex(next), msg.Sender)
		}

		msg.SessionID = sessionID
		msg.TurnIndex = next
		if err := tx.db.WithContext(ctx).Create(msg).Error; err != nil {
			slog.Error("Failed to append message", "error", err, "session_id", sessionID, "turn_index", next)
			return fmt.Errorf("failed to append message: %w", err)
		}

		s.MessageCount = next
		s.LastActivityAt = time.Now()
		switch msg.Type {
		case models.MessageQuestion:
			s.QuestionsAsked++
		case models.MessageFollowUp:
			s.FollowUpsAsked++
		case models.MessageAnswer:
			s.TimeSpentSeconds += msg.TimeSpentSeconds
			if s.TimeRemaining > msg.TimeSpentSeconds {
				s.TimeRemaining -= msg.TimeSpentSeconds
			} else {
				s.TimeRemaining = 0
			}
		}
		if err := tx.db.WithContext(ctx).Save(s).Error; err != nil {
			slog.Error("Failed to update session counters", "error", err, "session_id", sessionID)
			return err
		}

		session = s
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("Message appended", "session_id", sessionID, "turn_index", msg.TurnIndex, "sender", msg.Sender, "type", msg.Type)
	return session, nil
}

func (r *GORMRepository) GetSessionMessages(ctx context.Context, sessionID string) ([]models.InterviewMessage, error) {
	var messages []models.InterviewMessage
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("turn_index").
		Find(&messages).Error
	if err != nil {
		slog.Error("Failed to get session messages", "error", err, "session_id", sessionID)
		return nil, fmt.Errorf("failed to get session messages: %w", err)
	}
	return messages, nil
}

// GetScoredCandidateMessages returns the ordered candidate turns that carry
// analysis scores, the input to feedback synthesis.
func (r *GORMRepository) GetScoredCandidateMessages(ctx context.Context, sessionID string) ([]models.InterviewMessage, error) {
	var messages []models.InterviewMessage
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND sender = ? AND scored = ?", sessionID, models.SenderCandidate, true).
		Order("turn_index").
		Find(&messages).Error
	if err != nil {
		slog.Error("Failed to get scored candidate messages", "error", err, "session_id", sessionID)
		return nil, err
	}
	return messages, nil
}

// GetLastMessage returns the most recent turn, or nil for an empty dialogue.
func (r *GORMRepository) GetLastMessage(ctx context.Context, sessionID string) (*models.InterviewMessage, error) {
	var message models.InterviewMessage
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("turn_index DESC").
		First(&message).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get last message", "error", err, "session_id", sessionID)
		return nil, err
	}
	return &message, nil
}

// GetLastMessageOfSender returns the most recent turn by the given sender.
func (r *GORMRepository) GetLastMessageOfSender(ctx context.Context, sessionID string, sender models.MessageSender) (*models.InterviewMessage, error) {
	var message models.InterviewMessage
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND sender = ?", sessionID, sender).
		Order("turn_index DESC").
		First(&message).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get last sender message", "error", err, "session_id", sessionID, "sender", sender)
		return nil, err
	}
	return &message, nil
}

func (r *GORMRepository) SaveMessage(ctx context.Context, message *models.InterviewMessage) error {
	if err := r.db.WithContext(ctx).Save(message).Error; err != nil {
		slog.Error("Failed to save message", "error", err, "message_id", message.ID)
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

// DeleteSessionMessages wipes a session's dialogue for a retake reset. Hard
// delete so the (session_id, turn_index) unique index is free for the next
// attempt.
func (r *GORMRepository) DeleteSessionMessages(ctx context.Context, sessionID string) error {
	if err := r.db.WithContext(ctx).Unscoped().Where("session_id = ?", sessionID).Delete(&models.InterviewMessage{}).Error; err != nil {
		slog.Error("Failed to delete session messages", "error", err, "session_id", sessionID)
		return fmt.Errorf("failed to delete session messages: %w", err)
	}
	slog.Info("Session messages deleted", "session_id", sessionID)
	return nil
}
