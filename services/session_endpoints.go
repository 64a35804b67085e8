package services

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// InterviewEndpoints is the candidate-facing HTTP surface for sessions.
type InterviewEndpoints struct {
	sessions *SessionManager
	broker   *RetakeBroker
}

func NewInterviewEndpoints(sessions *SessionManager, broker *RetakeBroker) *InterviewEndpoints {
	return &InterviewEndpoints{sessions: sessions, broker: broker}
}

func (e *InterviewEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/interviews", func(r chi.Router) {
		r.Get("/usage", e.UsageHandler)
		r.Post("/", e.CreateHandler)
		r.Get("/", e.HistoryHandler)
		r.Get("/{id}", e.GetHandler)
		r.Post("/{id}/start", e.StartHandler)
		r.Post("/{id}/answers", e.AnswerHandler)
		r.Post("/{id}/complete", e.CompleteHandler)
		r.Post("/{id}/retake", e.RetakeHandler)
	})
}

type createInterviewRequest struct {
	InterviewType    string `json:"interview_type"`
	Role             string `json:"role"`
	Company          string `json:"company,omitempty"`
	Difficulty       string `json:"difficulty"`
	DurationMinutes  int    `json:"duration_minutes"`
	Personality      string `json:"personality,omitempty"`
	PlannedQuestions int    `json:"planned_questions,omitempty"`
}

func (e *InterviewEndpoints) CreateHandler(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	var req createInterviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.InterviewType == "" || req.Role == "" || req.Difficulty == "" {
		http.Error(w, "interview_type, role and difficulty are required", http.StatusBadRequest)
		return
	}
	if req.DurationMinutes <= 0 {
		req.DurationMinutes = 30
	}

	session, err := e.sessions.CreateSession(r.Context(), CreateSessionRequest{
		UserID:           user.ID,
		InterviewType:    req.InterviewType,
		Role:             req.Role,
		Company:          req.Company,
		Difficulty:       req.Difficulty,
		DurationMinutes:  req.DurationMinutes,
		Personality:      req.Personality,
		PlannedQuestions: req.PlannedQuestions,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, session)
}

func (e *InterviewEndpoints) UsageHandler(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	verdict, ledger, err := e.sessions.Usage(r.Context(), user.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"quota":  verdict,
		"ledger": ledger,
	})
}

func (e *InterviewEndpoints) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	sessions, err := e.sessions.History(r.Context(), user.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

func (e *InterviewEndpoints) GetHandler(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	session, err := e.sessions.GetSession(r.Context(), chi.URLParam(r, "id"), user.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (e *InterviewEndpoints) StartHandler(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	session, err := e.sessions.StartAssigned(r.Context(), chi.URLParam(r, "id"), user.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

type postAnswerRequest struct {
	Content          string `json:"content"`
	TimeSpentSeconds int    `json:"time_spent_seconds,omitempty"`
}

func (e *InterviewEndpoints) AnswerHandler(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	var req postAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Content == "" {
		http.Error(w, "content is required", http.StatusBadRequest)
		return
	}
	result, err := e.sessions.PostAnswer(r.Context(), chi.URLParam(r, "id"), user.ID, req.Content, req.TimeSpentSeconds)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (e *InterviewEndpoints) CompleteHandler(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	sessionID := chi.URLParam(r, "id")
	feedback, err := e.sessions.Complete(r.Context(), sessionID, user.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"session_id":   sessionID,
		"completed_at": time.Now(),
		"feedback":     feedback,
	})
}

type retakeRequest struct {
	Provider string `json:"provider"`
}

func (e *InterviewEndpoints) RetakeHandler(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	var req retakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Provider == "" {
		req.Provider = "stripe"
	}
	payment, err := e.broker.RequestRetake(r.Context(), chi.URLParam(r, "id"), user.ID, req.Provider)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, payment)
}
