package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hirecraft/interview-engine/models"
	"github.com/hirecraft/interview-engine/repository"
)

// PaymentGateway creates charges with an external payment provider. Only the
// charge handle comes back; confirmation arrives later through the provider's
// callback and lands in OnPaymentConfirmed.
type PaymentGateway interface {
	CreateCharge(ctx context.Context, amountCents int, provider, reference string) (string, error)
}

// LocalPaymentGateway issues synthetic charge handles. Used in development
// and tests where no real provider is wired.
type LocalPaymentGateway struct{}

func (g *LocalPaymentGateway) CreateCharge(ctx context.Context, amountCents int, provider, reference string) (string, error) {
	chargeRef := "local_" + uuid.New().String()
	slog.Info("Local charge created", "provider", provider, "amount_cents", amountCents, "charge_ref", chargeRef, "reference", reference)
	return chargeRef, nil
}

// RetakeBroker sells and applies retakes. The critical property is that a
// payment reaching completed and the session being re-armed happen in one
// transaction; Reconcile is the safety net that repairs any session the
// invariant check still finds paid but locked.
type RetakeBroker struct {
	repo    *repository.GORMRepository
	gateway PaymentGateway
	cfg     RetakeConfig
}

func NewRetakeBroker(repo *repository.GORMRepository, gateway PaymentGateway, cfg RetakeConfig) *RetakeBroker {
	return &RetakeBroker{repo: repo, gateway: gateway, cfg: cfg}
}

// RequestRetake creates a pending payment for one more attempt at a finished
// session. Rejected when the retake budget is spent or a pending payment for
// the session already exists.
func (b *RetakeBroker) RequestRetake(ctx context.Context, sessionID, userID, provider string) (*models.RetakePayment, error) {
	session, err := b.repo.GetInterviewSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, models.ErrSessionNotFound
	}
	if session.UserID != userID {
		return nil, models.ErrAccessDenied
	}
	if session.Status != models.SessionCompleted && session.Status != models.SessionAbandoned {
		return nil, &models.InvalidTransitionError{From: session.Status, Event: models.EventRetake}
	}
	if session.RetakeCount >= session.MaxRetakes {
		return nil, models.ErrRetakesExhausted
	}

	pending, err := b.repo.ListPendingRetakePayments(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(pending) > 0 {
		return &pending[0], nil
	}

	previousScore := 0.0
	if feedback, err := b.repo.GetFeedbackBySession(ctx, sessionID); err != nil {
		return nil, err
	} else if feedback != nil {
		previousScore = feedback.OverallScore
	}

	payment := &models.RetakePayment{
		SessionID:     sessionID,
		UserID:        userID,
		AmountCents:   b.cfg.PriceCents,
		Provider:      provider,
		Status:        models.PaymentPending,
		RetakeNumber:  session.RetakeCount + 1,
		PreviousScore: previousScore,
	}
	chargeRef, err := b.gateway.CreateCharge(ctx, payment.AmountCents, provider, sessionID)
	if err != nil {
		return nil, err
	}
	payment.ChargeRef = chargeRef

	if err := b.repo.CreateRetakePayment(ctx, payment); err != nil {
		return nil, err
	}
	slog.Info("Retake payment requested",
		"payment_id", payment.ID, "session_id", sessionID,
		"retake_number", payment.RetakeNumber, "amount_cents", payment.AmountCents)
	return payment, nil
}

// OnPaymentConfirmed marks the payment completed and re-arms the session in a
// single transaction: transcript and feedback are wiped, counters reset, the
// retake count advances and the session returns to assigned. Calling it again
// for an already completed payment is a no-op, which is what lets the
// reconciliation sweep reuse it safely.
func (b *RetakeBroker) OnPaymentConfirmed(ctx context.Context, paymentID string) (*models.InterviewSession, error) {
	var session *models.InterviewSession
	err := b.repo.WithTx(ctx, func(tx *repository.GORMRepository) error {
		payment, err := tx.GetRetakePaymentForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return models.ErrPaymentNotFound
		}
		if payment.Status == models.PaymentFailed {
			return models.ErrPaymentNotConfirmed
		}

		s, err := tx.GetInterviewSessionForUpdate(ctx, payment.SessionID)
		if err != nil {
			return err
		}
		if s == nil {
			return models.ErrSessionNotFound
		}

		if payment.Status == models.PaymentCompleted && s.RetakeCount >= payment.RetakeNumber {
			// Already applied, nothing to repair.
			session = s
			return nil
		}

		if payment.Status == models.PaymentPending {
			now := time.Now()
			payment.Status = models.PaymentCompleted
			payment.ConfirmedAt = &now
			if err := tx.SaveRetakePayment(ctx, payment); err != nil {
				return err
			}
		}

		next, ok := s.Status.Transition(models.EventRetake)
		if !ok {
			return &models.InvalidTransitionError{From: s.Status, Event: models.EventRetake}
		}

		if err := tx.DeleteSessionMessages(ctx, s.ID); err != nil {
			return err
		}
		if err := tx.DeleteFeedbackBySession(ctx, s.ID); err != nil {
			return err
		}

		now := time.Now()
		s.Status = next
		s.RetakeCount = payment.RetakeNumber
		s.MessageCount = 0
		s.QuestionsAsked = 0
		s.FollowUpsAsked = 0
		s.TimeSpentSeconds = 0
		s.TimeRemaining = s.DurationMinutes * 60
		s.StartedAt = nil
		s.CompletedAt = nil
		s.AssignedAt = &now
		s.LastActivityAt = now
		if err := tx.SaveSession(ctx, s); err != nil {
			return err
		}
		session = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("Retake payment confirmed and session re-armed",
		"payment_id", paymentID, "session_id", session.ID, "retake_count", session.RetakeCount)
	return session, nil
}

// OnPaymentFailed marks a pending payment failed. The session is untouched.
func (b *RetakeBroker) OnPaymentFailed(ctx context.Context, paymentID string) error {
	return b.repo.WithTx(ctx, func(tx *repository.GORMRepository) error {
		payment, err := tx.GetRetakePaymentForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return models.ErrPaymentNotFound
		}
		if payment.Status != models.PaymentPending {
			return nil
		}
		payment.Status = models.PaymentFailed
		return tx.SaveRetakePayment(ctx, payment)
	})
}

// Reconcile finds completed payments whose session never got its retake and
// replays the idempotent unlock for each. Returns the number repaired.
func (b *RetakeBroker) Reconcile(ctx context.Context) (int, error) {
	stuck, err := b.repo.ListStuckRetakePayments(ctx)
	if err != nil {
		return 0, err
	}
	repaired := 0
	for _, payment := range stuck {
		if _, err := b.OnPaymentConfirmed(ctx, payment.ID); err != nil {
			slog.Error("Failed to reconcile stuck retake payment",
				"payment_id", payment.ID, "session_id", payment.SessionID, "error", err)
			continue
		}
		slog.Warn("Repaired paid-but-locked session",
			"payment_id", payment.ID, "session_id", payment.SessionID)
		repaired++
	}
	return repaired, nil
}
