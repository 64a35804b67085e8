package models

import (
	"errors"
	"fmt"
)

// Domain error taxonomy. Endpoints map these onto HTTP statuses; everything
// else surfaces as an internal error.
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrSessionNotFound     = errors.New("session not found")
	ErrAccessDenied        = errors.New("access denied")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrPaymentNotConfirmed = errors.New("payment not confirmed")
	ErrRetakesExhausted    = errors.New("maximum retakes exceeded")
	ErrSessionNotActive    = errors.New("session is not active")
	ErrOutOfTurn           = errors.New("message sender out of turn")
)

// InvalidTransitionError rejects a lifecycle event not present in the
// transition table.
type InvalidTransitionError struct {
	From  SessionStatus
	Event SessionEvent
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition: %s --%s-->", e.From, e.Event)
}

// QuotaExceededError carries the actionable guidance the caller needs: what
// it would cost to continue and how much allowance is left on each tier.
type QuotaExceededError struct {
	CostCents        int
	RemainingFree    int
	RemainingMonthly int
	Message          string
}

func (e *QuotaExceededError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("quota exceeded: payment of %d cents required", e.CostCents)
}
