package services

import (
	"context"
	"fmt"
	"time"

	"github.com/hirecraft/interview-engine/models"
	"github.com/hirecraft/interview-engine/repository"
)

// QuotaVerdict is the answer to "may this user start a session right now".
type QuotaVerdict struct {
	Allowed          bool   `json:"allowed"`
	RequiresPayment  bool   `json:"requiresPayment"`
	RemainingFree    int    `json:"remainingFree"`
	RemainingMonthly int    `json:"remainingMonthly"`
	CostCents        int    `json:"costCents"`
	Message          string `json:"message"`
}

// QuotaGate answers entitlement questions against the usage ledger. Check is
// read-only and advisory; the authoritative consume happens inside the
// session-creation transaction via Consume, so a rolled-back creation never
// burns an allowance.
type QuotaGate struct {
	repo *repository.GORMRepository
	cfg  QuotaConfig
}

func NewQuotaGate(repo *repository.GORMRepository, cfg QuotaConfig) *QuotaGate {
	return &QuotaGate{repo: repo, cfg: cfg}
}

// Check reports the user's current entitlement without consuming anything.
func (g *QuotaGate) Check(ctx context.Context, userID string) (*QuotaVerdict, error) {
	user, err := g.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.ErrUserNotFound
	}
	ledger, err := g.repo.GetLedger(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ledger == nil {
		ledger = &models.UsageLedger{UserID: userID}
	}
	return g.verdict(user, ledger, time.Now()), nil
}

// Consume burns one allowance inside the caller's transaction. The ledger row
// must already be locked by the caller (GetOrCreateLedgerForUpdate). Returns
// a QuotaExceededError when nothing is left to burn.
func (g *QuotaGate) Consume(user *models.User, ledger *models.UsageLedger, now time.Time) error {
	if ledger.NeedsMonthlyReset(now) {
		ledger.MonthlyUsed = 0
		ledger.LastMonthlyReset = now
	}

	if ledger.FreeUsed < g.cfg.FreeLimit {
		ledger.FreeUsed++
		return nil
	}
	if user.IsPremium() && ledger.MonthlyUsed < g.cfg.MonthlyLimit {
		ledger.MonthlyUsed++
		return nil
	}

	verdict := g.verdict(user, ledger, now)
	return &models.QuotaExceededError{
		CostCents:        g.cfg.SessionCostCents,
		RemainingFree:    verdict.RemainingFree,
		RemainingMonthly: verdict.RemainingMonthly,
		Message:          verdict.Message,
	}
}

func (g *QuotaGate) verdict(user *models.User, ledger *models.UsageLedger, now time.Time) *QuotaVerdict {
	monthlyUsed := ledger.MonthlyUsed
	if ledger.NeedsMonthlyReset(now) {
		monthlyUsed = 0
	}

	remainingFree := g.cfg.FreeLimit - ledger.FreeUsed
	if remainingFree < 0 {
		remainingFree = 0
	}
	remainingMonthly := 0
	if user.IsPremium() {
		remainingMonthly = g.cfg.MonthlyLimit - monthlyUsed
		if remainingMonthly < 0 {
			remainingMonthly = 0
		}
	}

	v := &QuotaVerdict{
		RemainingFree:    remainingFree,
		RemainingMonthly: remainingMonthly,
		CostCents:        g.cfg.SessionCostCents,
	}
	switch {
	case remainingFree > 0:
		v.Allowed = true
		v.Message = fmt.Sprintf("%d free session(s) remaining", remainingFree)
	case remainingMonthly > 0:
		v.Allowed = true
		v.Message = fmt.Sprintf("%d premium session(s) remaining this month", remainingMonthly)
	default:
		v.RequiresPayment = true
		if user.IsPremium() {
			v.Message = "Monthly session limit reached. Additional sessions are paid."
		} else {
			v.Message = "Free session used. Upgrade to premium or pay per session."
		}
	}
	return v
}
