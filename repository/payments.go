package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hirecraft/interview-engine/models"
	"gorm.io/gorm"
)

func (r *GORMRepository) CreateRetakePayment(ctx context.Context, payment *models.RetakePayment) error {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		slog.Error("Failed to create retake payment", "error", err, "session_id", payment.SessionID)
		return fmt.Errorf("failed to create retake payment: %w", err)
	}
	slog.Info("Retake payment created", "payment_id", payment.ID, "session_id", payment.SessionID, "retake_number", payment.RetakeNumber)
	return nil
}

func (r *GORMRepository) GetRetakePayment(ctx context.Context, paymentID string) (*models.RetakePayment, error) {
	var payment models.RetakePayment
	err := r.db.WithContext(ctx).Where("id = ?", paymentID).First(&payment).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get retake payment", "error", err, "payment_id", paymentID)
		return nil, err
	}
	return &payment, nil
}

// GetRetakePaymentForUpdate loads a payment under a row lock. Callers must be
// inside WithTx.
func (r *GORMRepository) GetRetakePaymentForUpdate(ctx context.Context, paymentID string) (*models.RetakePayment, error) {
	var payment models.RetakePayment
	err := r.forUpdate(r.db.WithContext(ctx)).Where("id = ?", paymentID).First(&payment).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to lock retake payment", "error", err, "payment_id", paymentID)
		return nil, err
	}
	return &payment, nil
}

func (r *GORMRepository) SaveRetakePayment(ctx context.Context, payment *models.RetakePayment) error {
	if err := r.db.WithContext(ctx).Save(payment).Error; err != nil {
		slog.Error("Failed to save retake payment", "error", err, "payment_id", payment.ID)
		return err
	}
	return nil
}

// ListPendingRetakePayments returns the open payments for a session, used to
// reject duplicate retake requests.
func (r *GORMRepository) ListPendingRetakePayments(ctx context.Context, sessionID string) ([]models.RetakePayment, error) {
	var payments []models.RetakePayment
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND status = ?", sessionID, models.PaymentPending).
		Find(&payments).Error
	if err != nil {
		slog.Error("Failed to list pending retake payments", "error", err, "session_id", sessionID)
		return nil, err
	}
	return payments, nil
}

// ListStuckRetakePayments finds completed payments whose session never
// received the corresponding unlock (retake_count still below the payment's
// retake_number). These are the paid-but-not-unlocked incidents the
// reconciliation sweep repairs.
func (r *GORMRepository) ListStuckRetakePayments(ctx context.Context) ([]models.RetakePayment, error) {
	var payments []models.RetakePayment
	err := r.db.WithContext(ctx).
		Joins("JOIN interview_sessions ON interview_sessions.id = retake_payments.session_id").
		Where("retake_payments.status = ? AND interview_sessions.retake_count < retake_payments.retake_number", models.PaymentCompleted).
		Find(&payments).Error
	if err != nil {
		slog.Error("Failed to list stuck retake payments", "error", err)
		return nil, err
	}
	return payments, nil
}
