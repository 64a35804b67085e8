package services

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"

	"github.com/hirecraft/interview-engine/repository"
	ws "github.com/hirecraft/interview-engine/websocket"
)

// Server holds all server dependencies
type Server struct {
	config *Config
	repo   *repository.GORMRepository
	rawDB  *gorm.DB

	oracle   Oracle
	quota    *QuotaGate
	analyzer *ResponseAnalyzer
	dialogue *DialogueEngine
	feedback *FeedbackSynthesizer
	sessions *SessionManager
	broker   *RetakeBroker
	director *AssignmentDirector
	sweeps   *SweepService
	live     *LiveService

	authService         *AuthService
	authEndpoints       *AuthEndpoints
	interviewEndpoints  *InterviewEndpoints
	assignmentEndpoints *AssignmentEndpoints
	paymentEndpoints    *PaymentEndpoints

	wsHub    *ws.Hub
	upgrader websocket.Upgrader
}

func NewServer(config *Config) *Server {
	return &Server{
		config: config,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return CheckOrigin(r, config.WebSocket.AllowedOrigins)
			},
		},
	}
}

// SetDatabase sets the database connection
func (s *Server) SetDatabase(repo *repository.GORMRepository, rawDB *gorm.DB) {
	s.repo = repo
	s.rawDB = rawDB
}

// InitializeServices wires every service. The Oracle backend is selected by
// config; anything unconfigured falls back to the static backend so the
// server always comes up.
func (s *Server) InitializeServices() error {
	switch s.config.AI.Provider {
	case "groq":
		oracle, err := NewGroqOracle(s.config.AI)
		if err != nil {
			slog.Warn("Groq oracle unavailable, using static backend", "error", err)
			s.oracle = NewStaticOracle()
		} else {
			s.oracle = oracle
			slog.Info("Groq oracle initialized", "model", s.config.AI.GroqModel)
		}
	case "gemini":
		oracle, err := NewGeminiOracle(context.Background(), s.config.AI.GeminiAPIKey)
		if err != nil {
			slog.Warn("Gemini oracle unavailable, using static backend", "error", err)
			s.oracle = NewStaticOracle()
		} else {
			s.oracle = oracle
			slog.Info("Gemini oracle initialized")
		}
	default:
		s.oracle = NewStaticOracle()
		slog.Info("Static oracle initialized")
	}

	s.quota = NewQuotaGate(s.repo, s.config.Quota)
	s.analyzer = NewResponseAnalyzer(s.oracle, s.config.AI.OracleTimeout)
	s.dialogue = NewDialogueEngine(s.oracle, s.config.Dialogue, s.config.AI.OracleTimeout)
	s.feedback = NewFeedbackSynthesizer()
	s.sessions = NewSessionManager(s.repo, s.quota, s.dialogue, s.analyzer, s.feedback, s.config.Dialogue, s.config.Retake)
	s.broker = NewRetakeBroker(s.repo, &LocalPaymentGateway{}, s.config.Retake)
	s.director = NewAssignmentDirector(s.repo, s.sessions, &SlogNotifier{})
	s.sweeps = NewSweepService(s.repo, s.broker, s.config.Sweep)

	s.wsHub = ws.NewHub()
	go s.wsHub.Run()
	s.live = NewLiveService(s.wsHub, s.sessions)
	s.sessions.SetPublisher(s.live)

	if s.config.JWT.Secret != "" {
		s.authService = NewAuthService(s.repo, s.config.JWT.Secret)
		s.authEndpoints = NewAuthEndpoints(s.authService)
		slog.Info("Authentication service initialized")
	}
	s.interviewEndpoints = NewInterviewEndpoints(s.sessions, s.broker)
	s.assignmentEndpoints = NewAssignmentEndpoints(s.director)
	s.paymentEndpoints = NewPaymentEndpoints(s.broker, s.config.Retake.WebhookSecret)

	return s.sweeps.Start()
}

// SetupRoutes configures all HTTP routes
func (s *Server) SetupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   strings.Split(s.config.WebSocket.AllowedOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.healthHandler)

	r.Route("/api/v1", func(r chi.Router) {
		if s.authEndpoints != nil {
			s.authEndpoints.RegisterPublicRoutes(r)
		}

		// Provider payment callbacks arrive unauthenticated.
		s.paymentEndpoints.RegisterRoutes(r)

		if s.authService != nil {
			r.Group(func(r chi.Router) {
				r.Use(s.authService.Middleware)
				s.authEndpoints.RegisterProtectedRoutes(r)
				s.interviewEndpoints.RegisterRoutes(r)
				s.assignmentEndpoints.RegisterRoutes(r)
				r.Get("/ws", s.websocketHandlerFunc)
			})
		}
	})

	return r
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start() {
	port := s.config.Server.Port
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: s.SetupRoutes(),
	}

	go func() {
		slog.Info("Starting server", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server...")
	s.sweeps.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	slog.Info("Server exited")
}

// CheckOrigin validates the origin of WebSocket connections.
func CheckOrigin(r *http.Request, allowedOriginsStr string) bool {
	origin := r.Header.Get("Origin")

	if allowedOriginsStr == "" {
		slog.Warn("WebSocket connection rejected: no allowed origins configured", "origin", origin)
		return false
	}

	for _, allowed := range strings.Split(allowedOriginsStr, ",") {
		if strings.TrimSpace(allowed) == origin {
			return true
		}
	}

	slog.Warn("WebSocket connection rejected: origin not allowed", "origin", origin, "allowed_origins", allowedOriginsStr)
	return false
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	dbStatus := "not configured"

	if s.rawDB != nil {
		if sqlDB, err := s.rawDB.DB(); err == nil {
			if err := sqlDB.Ping(); err != nil {
				dbStatus = "down"
				status = "degraded"
			} else {
				dbStatus = "up"
			}
		} else {
			dbStatus = "down"
			status = "degraded"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"` + status + `","database":"` + dbStatus + `"}`))
}

func (s *Server) websocketHandlerFunc(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}
	// Ownership check before upgrading; recruiters may observe sessions they
	// assigned.
	if _, err := s.sessions.GetSession(r.Context(), sessionID, user.ID); err != nil {
		respondError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}

	client := s.wsHub.RegisterClient(conn, user.ID, sessionID)
	s.live.HandleConnection(client)

	go client.WritePump()
	client.ReadPump()
}
