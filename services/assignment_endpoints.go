package services

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// AssignmentEndpoints is the recruiter-facing HTTP surface.
type AssignmentEndpoints struct {
	director *AssignmentDirector
}

func NewAssignmentEndpoints(director *AssignmentDirector) *AssignmentEndpoints {
	return &AssignmentEndpoints{director: director}
}

func (e *AssignmentEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/assignments", func(r chi.Router) {
		r.Post("/", e.AssignHandler)
		r.Get("/", e.ListHandler)
		r.Get("/stats", e.StatsHandler)
		r.Get("/{id}/results", e.ResultsHandler)
	})
}

type assignInterviewRequest struct {
	CandidateID      string     `json:"candidate_id"`
	InterviewType    string     `json:"interview_type"`
	Role             string     `json:"role"`
	Company          string     `json:"company,omitempty"`
	Difficulty       string     `json:"difficulty"`
	DurationMinutes  int        `json:"duration_minutes"`
	Personality      string     `json:"personality,omitempty"`
	PlannedQuestions int        `json:"planned_questions,omitempty"`
	JobPostingID     *string    `json:"job_posting_id,omitempty"`
	DueDate          *time.Time `json:"due_date,omitempty"`
}

func (e *AssignmentEndpoints) AssignHandler(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	var req assignInterviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.CandidateID == "" || req.InterviewType == "" || req.Role == "" || req.Difficulty == "" {
		http.Error(w, "candidate_id, interview_type, role and difficulty are required", http.StatusBadRequest)
		return
	}
	if req.DurationMinutes <= 0 {
		req.DurationMinutes = 30
	}

	session, err := e.director.Assign(r.Context(), AssignRequest{
		RecruiterID:      user.ID,
		CandidateID:      req.CandidateID,
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
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, session)
}

func (e *AssignmentEndpoints) ListHandler(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	views, err := e.director.ListAssigned(r.Context(), user.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"assignments": views,
		"count":       len(views),
	})
}

func (e *AssignmentEndpoints) StatsHandler(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	stats, err := e.director.Stats(r.Context(), user.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (e *AssignmentEndpoints) ResultsHandler(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	session, err := e.director.Results(r.Context(), chi.URLParam(r, "id"), user.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}
