package services

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hirecraft/interview-engine/models"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

type errorResponse struct {
	Error            string `json:"error"`
	CostCents        int    `json:"cost_cents,omitempty"`
	RemainingFree    int    `json:"remaining_free,omitempty"`
	RemainingMonthly int    `json:"remaining_monthly,omitempty"`
}

// respondError maps the domain error taxonomy onto HTTP statuses. Anything
// unrecognized is a 500 and gets logged; domain errors are the caller's
// problem and only logged at debug.
func respondError(w http.ResponseWriter, err error) {
	var quotaErr *models.QuotaExceededError
	if errors.As(err, &quotaErr) {
		respondJSON(w, http.StatusPaymentRequired, errorResponse{
			Error:            quotaErr.Error(),
			CostCents:        quotaErr.CostCents,
			RemainingFree:    quotaErr.RemainingFree,
			RemainingMonthly: quotaErr.RemainingMonthly,
		})
		return
	}

	var transitionErr *models.InvalidTransitionError
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrSessionNotFound),
		errors.Is(err, models.ErrUserNotFound),
		errors.Is(err, models.ErrPaymentNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrAccessDenied):
		status = http.StatusForbidden
	case errors.Is(err, models.ErrPaymentNotConfirmed):
		status = http.StatusPaymentRequired
	case errors.As(err, &transitionErr),
		errors.Is(err, models.ErrSessionNotActive),
		errors.Is(err, models.ErrOutOfTurn),
		errors.Is(err, models.ErrRetakesExhausted):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "error", err)
		respondJSON(w, status, errorResponse{Error: "internal error"})
		return
	}
	respondJSON(w, status, errorResponse{Error: err.Error()})
}

// requireUser pulls the authenticated user from the request context. The auth
// middleware guarantees it; a miss means the route was wired outside it.
func requireUser(w http.ResponseWriter, r *http.Request) *models.User {
	user := UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return nil
	}
	return user
}
