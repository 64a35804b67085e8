package services

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type AuthEndpoints struct {
	auth *AuthService
}

func NewAuthEndpoints(auth *AuthService) *AuthEndpoints {
	return &AuthEndpoints{auth: auth}
}

// RegisterPublicRoutes mounts the unauthenticated auth routes.
func (e *AuthEndpoints) RegisterPublicRoutes(r chi.Router) {
	r.Post("/auth/signup", e.SignupHandler)
	r.Post("/auth/login", e.LoginHandler)
}

// RegisterProtectedRoutes mounts the routes behind the auth middleware.
func (e *AuthEndpoints) RegisterProtectedRoutes(r chi.Router) {
	r.Get("/auth/me", e.MeHandler)
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	UserType string `json:"user_type,omitempty"`
}

func (e *AuthEndpoints) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, "email and password are required", http.StatusBadRequest)
		return
	}
	resp, err := e.auth.Signup(r.Context(), req.Email, req.Password, req.FullName, req.UserType)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	respondJSON(w, http.StatusCreated, resp)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (e *AuthEndpoints) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	resp, err := e.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (e *AuthEndpoints) MeHandler(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	respondJSON(w, http.StatusOK, user)
}
