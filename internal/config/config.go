// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, external service endpoints, the shared
// database path, rate limiting, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// TelegramConfig groups the Telegram bot credentials and webhook settings.
type TelegramConfig struct {
	BotToken      string // TELEGRAM_BOT_TOKEN
	WebhookSecret string // TELEGRAM_WEBHOOK_SECRET; empty disables webhook auth (dev mode)
	WebhookURL    string // TELEGRAM_WEBHOOK_URL; default URL registered by set_webhook
}

// RunnerConfig groups the cursor-runner automation service settings.
type RunnerConfig struct {
	BaseURL        string // CURSOR_RUNNER_URL
	CallbackSecret string // CURSOR_RUNNER_SECRET; authenticates completion callbacks
}

// SpeechConfig groups the speech-to-text and text-to-speech endpoints.
type SpeechConfig struct {
	TranscriptionURL string // TRANSCRIPTION_URL
	SynthesisURL     string // SYNTHESIS_URL
	APIKey           string // SPEECH_API_KEY (optional bearer token for both)
}

// DispatchConfig bounds the fire-and-forget retry policy for update handling.
type DispatchConfig struct {
	MaxAttempts    int           // DISPATCH_MAX_ATTEMPTS
	RetryDelay     time.Duration // DISPATCH_RETRY_DELAY
	AttemptTimeout time.Duration // DISPATCH_ATTEMPT_TIMEOUT
}

// SecurityConfig controls security response headers.
type SecurityConfig struct {
	EnableHSTS bool          // SECURITY_ENABLE_HSTS; only emitted on HTTPS requests
	HSTSMaxAge time.Duration // SECURITY_HSTS_MAX_AGE (e.g. "4320h" for 180 days)
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "telegram-receiver")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	// Auth
	AdminSecret string // ADMIN_SECRET; guards webhook management endpoints

	// External collaborators
	Telegram TelegramConfig
	Runner   RunnerConfig
	Speech   SpeechConfig

	// State
	RedisURL   string        // REDIS_URL
	PendingTTL time.Duration // PENDING_TTL; pending-request expiry
	DBPath     string        // SQLite path, shared across services
	TempDir    string        // TEMP_DIR; "" means the OS default

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Update handling
	Dispatch DispatchConfig

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		// Auth
		AdminSecret: getenv("ADMIN_SECRET", "changeme"),

		Telegram: TelegramConfig{
			BotToken:      getenv("TELEGRAM_BOT_TOKEN", ""),
			WebhookSecret: getenv("TELEGRAM_WEBHOOK_SECRET", ""),
			WebhookURL:    getenv("TELEGRAM_WEBHOOK_URL", ""),
		},
		Runner: RunnerConfig{
			BaseURL:        getenv("CURSOR_RUNNER_URL", "http://localhost:3000"),
			CallbackSecret: getenv("CURSOR_RUNNER_SECRET", ""),
		},
		Speech: SpeechConfig{
			TranscriptionURL: getenv("TRANSCRIPTION_URL", "http://localhost:8081"),
			SynthesisURL:     getenv("SYNTHESIS_URL", "http://localhost:8082"),
			APIKey:           getenv("SPEECH_API_KEY", ""),
		},

		// State
		RedisURL:   getenv("REDIS_URL", "redis://localhost:6379/0"),
		PendingTTL: getdur("PENDING_TTL", time.Hour),
		DBPath:     getenv("DB_PATH", "shared.sqlite3"),
		TempDir:    getenv("TEMP_DIR", ""),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		Dispatch: DispatchConfig{
			MaxAttempts:    getint("DISPATCH_MAX_ATTEMPTS", 3),
			RetryDelay:     getdur("DISPATCH_RETRY_DELAY", 2*time.Second),
			AttemptTimeout: getdur("DISPATCH_ATTEMPT_TIMEOUT", 90*time.Second),
		},

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("SECURITY_ENABLE_HSTS", false),
			HSTSMaxAge: getdur("SECURITY_HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "telegram-receiver"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	cfg.Runner.BaseURL = strings.TrimRight(cfg.Runner.BaseURL, "/")
	cfg.Speech.TranscriptionURL = strings.TrimRight(cfg.Speech.TranscriptionURL, "/")
	cfg.Speech.SynthesisURL = strings.TrimRight(cfg.Speech.SynthesisURL, "/")

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.Telegram.BotToken) == "" {
		return cfg, errors.New("TELEGRAM_BOT_TOKEN must not be empty")
	}
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return cfg, errors.New("REDIS_URL must not be empty")
	}
	if cfg.PendingTTL <= 0 {
		return cfg, errors.New("PENDING_TTL must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Dispatch.MaxAttempts < 1 {
		return cfg, errors.New("DISPATCH_MAX_ATTEMPTS must be >= 1")
	}
	if cfg.Dispatch.RetryDelay < 0 {
		return cfg, errors.New("DISPATCH_RETRY_DELAY must be >= 0")
	}
	if cfg.Dispatch.AttemptTimeout <= 0 {
		return cfg, errors.New("DISPATCH_ATTEMPT_TIMEOUT must be > 0")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("SECURITY_HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
