package services

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// WebhookSecretHeader carries the shared secret on provider callbacks.
const WebhookSecretHeader = "X-Webhook-Secret"

// PaymentEndpoints receives provider callbacks for retake payments. When a
// webhook secret is configured the callbacks require it in the
// X-Webhook-Secret header; a real deployment would verify full provider
// signatures instead.
type PaymentEndpoints struct {
	broker        *RetakeBroker
	webhookSecret string
}

func NewPaymentEndpoints(broker *RetakeBroker, webhookSecret string) *PaymentEndpoints {
	if webhookSecret == "" {
		slog.Warn("Payment webhook secret not configured, callbacks are unauthenticated")
	}
	return &PaymentEndpoints{broker: broker, webhookSecret: webhookSecret}
}

func (e *PaymentEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/payments", func(r chi.Router) {
		r.Post("/confirm", e.ConfirmHandler)
		r.Post("/fail", e.FailHandler)
	})
}

func (e *PaymentEndpoints) authorized(r *http.Request) bool {
	if e.webhookSecret == "" {
		return true
	}
	provided := r.Header.Get(WebhookSecretHeader)
	return subtle.ConstantTimeCompare([]byte(provided), []byte(e.webhookSecret)) == 1
}

type paymentCallbackRequest struct {
	PaymentID string `json:"payment_id"`
}

func (e *PaymentEndpoints) ConfirmHandler(w http.ResponseWriter, r *http.Request) {
	if !e.authorized(r) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	var req paymentCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.PaymentID == "" {
		http.Error(w, "payment_id is required", http.StatusBadRequest)
		return
	}
	session, err := e.broker.OnPaymentConfirmed(r.Context(), req.PaymentID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"payment_id": req.PaymentID,
		"session":    session,
	})
}

func (e *PaymentEndpoints) FailHandler(w http.ResponseWriter, r *http.Request) {
	if !e.authorized(r) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	var req paymentCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.PaymentID == "" {
		http.Error(w, "payment_id is required", http.StatusBadRequest)
		return
	}
	if err := e.broker.OnPaymentFailed(r.Context(), req.PaymentID); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"payment_id": req.PaymentID, "status": "failed"})
}
