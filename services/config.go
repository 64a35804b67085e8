package services

import (
	"log/slog"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	AI        AIConfig
	JWT       JWTConfig
	Quota     QuotaConfig
	Dialogue  DialogueConfig
	Retake    RetakeConfig
	Sweep     SweepConfig
	WebSocket WebSocketConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	URL          string
	Seed         bool
	LogLevel     string
	MaxIdleConns int
	MaxOpenConns int
}

type AIConfig struct {
	Provider      string // groq, gemini or static
	GroqAPIKey    string
	GroqBaseURL   string
	GroqModel     string
	GeminiAPIKey  string
	OracleTimeout time.Duration
}

type JWTConfig struct {
	Secret string
}

type QuotaConfig struct {
	FreeLimit        int
	MonthlyLimit     int
	SessionCostCents int
}

type DialogueConfig struct {
	PlannedQuestions  int
	FollowUpThreshold float64
	ContextWindow     int
}

type RetakeConfig struct {
	MaxRetakes    int
	PriceCents    int
	WebhookSecret string
}

type SweepConfig struct {
	Interval          time.Duration
	IdleTimeout       time.Duration
	ReconcileSchedule string
}

type WebSocketConfig struct {
	AllowedOrigins string
}

// LoadConfig loads configuration from environment variables and config files
func LoadConfig() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("websocket.allowed_origins", "")
	viper.SetDefault("ai.provider", "static")
	viper.SetDefault("groq.api_key", "")
	viper.SetDefault("groq.base_url", "https://api.groq.com/openai/v1")
	viper.SetDefault("groq.model", "llama-3.1-8b-instant")
	viper.SetDefault("gemini.api_key", "")
	viper.SetDefault("ai.oracle_timeout", "6s")
	viper.SetDefault("jwt.secret", "")
	viper.SetDefault("database.url", "")
	viper.SetDefault("database.seed", "true")
	viper.SetDefault("database.log_level", "silent")
	viper.SetDefault("database.max_idle_conns", "10")
	viper.SetDefault("database.max_open_conns", "100")
	viper.SetDefault("quota.free_limit", "1")
	viper.SetDefault("quota.monthly_limit", "5")
	viper.SetDefault("quota.session_cost_cents", "200")
	viper.SetDefault("dialogue.planned_questions", "5")
	viper.SetDefault("dialogue.follow_up_threshold", "60")
	viper.SetDefault("dialogue.context_window", "2")
	viper.SetDefault("retake.max_retakes", "2")
	viper.SetDefault("retake.price_cents", "500")
	viper.SetDefault("retake.webhook_secret", "")
	viper.SetDefault("sweep.interval", "30s")
	viper.SetDefault("sweep.idle_timeout", "30m")
	viper.SetDefault("sweep.reconcile_schedule", "*/5 * * * *")

	// Map environment variables to config keys
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("websocket.allowed_origins", "WEBSOCKET_ALLOWED_ORIGINS")
	viper.BindEnv("ai.provider", "AI_PROVIDER")
	viper.BindEnv("groq.api_key", "GROQ_API_KEY")
	viper.BindEnv("groq.base_url", "GROQ_BASE_URL")
	viper.BindEnv("groq.model", "GROQ_MODEL")
	viper.BindEnv("gemini.api_key", "GEMINI_API_KEY")
	viper.BindEnv("ai.oracle_timeout", "ORACLE_TIMEOUT")
	viper.BindEnv("jwt.secret", "JWT_SECRET")
	viper.BindEnv("database.url", "DATABASE_URL")
	viper.BindEnv("database.seed", "DATABASE_SEED")
	viper.BindEnv("database.log_level", "DATABASE_LOG_LEVEL")
	viper.BindEnv("database.max_idle_conns", "DATABASE_MAX_IDLE_CONNS")
	viper.BindEnv("database.max_open_conns", "DATABASE_MAX_OPEN_CONNS")
	viper.BindEnv("quota.free_limit", "QUOTA_FREE_LIMIT")
	viper.BindEnv("quota.monthly_limit", "QUOTA_MONTHLY_LIMIT")
	viper.BindEnv("quota.session_cost_cents", "QUOTA_SESSION_COST_CENTS")
	viper.BindEnv("dialogue.planned_questions", "DIALOGUE_PLANNED_QUESTIONS")
	viper.BindEnv("dialogue.follow_up_threshold", "DIALOGUE_FOLLOW_UP_THRESHOLD")
	viper.BindEnv("dialogue.context_window", "DIALOGUE_CONTEXT_WINDOW")
	viper.BindEnv("retake.max_retakes", "RETAKE_MAX_RETAKES")
	viper.BindEnv("retake.price_cents", "RETAKE_PRICE_CENTS")
	viper.BindEnv("retake.webhook_secret", "RETAKE_WEBHOOK_SECRET")
	viper.BindEnv("sweep.interval", "SWEEP_INTERVAL")
	viper.BindEnv("sweep.idle_timeout", "SWEEP_IDLE_TIMEOUT")
	viper.BindEnv("sweep.reconcile_schedule", "SWEEP_RECONCILE_SCHEDULE")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Warn("Config file not found, using defaults and environment variables")
		} else {
			slog.Error("Error reading config file", "error", err)
		}
	}

	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
		},
		Database: DatabaseConfig{
			URL:          viper.GetString("database.url"),
			Seed:         viper.GetBool("database.seed"),
			LogLevel:     viper.GetString("database.log_level"),
			MaxIdleConns: viper.GetInt("database.max_idle_conns"),
			MaxOpenConns: viper.GetInt("database.max_open_conns"),
		},
		AI: AIConfig{
			Provider:      viper.GetString("ai.provider"),
			GroqAPIKey:    viper.GetString("groq.api_key"),
			GroqBaseURL:   viper.GetString("groq.base_url"),
			GroqModel:     viper.GetString("groq.model"),
			GeminiAPIKey:  viper.GetString("gemini.api_key"),
			OracleTimeout: viper.GetDuration("ai.oracle_timeout"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("jwt.secret"),
		},
		Quota: QuotaConfig{
			FreeLimit:        viper.GetInt("quota.free_limit"),
			MonthlyLimit:     viper.GetInt("quota.monthly_limit"),
			SessionCostCents: viper.GetInt("quota.session_cost_cents"),
		},
		Dialogue: DialogueConfig{
			PlannedQuestions:  viper.GetInt("dialogue.planned_questions"),
			FollowUpThreshold: viper.GetFloat64("dialogue.follow_up_threshold"),
			ContextWindow:     viper.GetInt("dialogue.context_window"),
		},
		Retake: RetakeConfig{
			MaxRetakes:    viper.GetInt("retake.max_retakes"),
			PriceCents:    viper.GetInt("retake.price_cents"),
			WebhookSecret: viper.GetString("retake.webhook_secret"),
		},
		Sweep: SweepConfig{
			Interval:          viper.GetDuration("sweep.interval"),
			IdleTimeout:       viper.GetDuration("sweep.idle_timeout"),
			ReconcileSchedule: viper.GetString("sweep.reconcile_schedule"),
		},
		WebSocket: WebSocketConfig{
			AllowedOrigins: viper.GetString("websocket.allowed_origins"),
		},
	}
}
