// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, database selection, the email transport, the delivery worker, rate
// limiting, and observability settings.
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

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// EmailConfig defines the outgoing email transport. An empty BaseURL selects
// the logging client, which records sends instead of performing them.
type EmailConfig struct {
	BaseURL   string        // EMAIL_BASE_URL (e.g. "https://api.postmarkapp.com")
	Sender    string        // EMAIL_SENDER (the From address)
	AuthToken string        // EMAIL_AUTH_TOKEN
	Timeout   time.Duration // EMAIL_TIMEOUT per-request cap
}

// WorkerConfig defines the delivery worker behavior.
type WorkerConfig struct {
	Enabled           bool          // WORKER_ENABLED
	PollInterval      time.Duration // WORKER_POLL_INTERVAL (sleep on empty queue)
	ErrorBackoff      time.Duration // WORKER_ERROR_BACKOFF (sleep after a failed cycle)
	DropOnSendFailure bool          // WORKER_DROP_ON_SEND_FAILURE
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
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
	LogLevel    string // debug|info|warn|error|fatal|panic
	LogPretty   bool   // pretty console logs in dev
	APIBasePath string // base path for the public API routes

	// Database
	DBDriver string // sqlite|postgres
	DBPath   string // SQLite path (sqlite driver)
	DBDSN    string // connection string (postgres driver)

	// App
	PublicBaseURL string // externally reachable base URL for email links

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Email and delivery
	Email  EmailConfig
	Worker WorkerConfig

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

// Load reads configuration from environment variables, applies defaults,
// normalizes values, and validates the result.
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
		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:   getbool("LOG_PRETTY", false),
		APIBasePath: normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Database
		DBDriver: strings.ToLower(getenv("DB_DRIVER", "sqlite")),
		DBPath:   getenv("DB_PATH", "app.db"),
		DBDSN:    getenv("DB_DSN", ""),

		// App
		PublicBaseURL: strings.TrimRight(getenv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Email
		Email: EmailConfig{
			BaseURL:   strings.TrimRight(getenv("EMAIL_BASE_URL", ""), "/"),
			Sender:    getenv("EMAIL_SENDER", "newsletter@example.com"),
			AuthToken: getenv("EMAIL_AUTH_TOKEN", ""),
			Timeout:   getdur("EMAIL_TIMEOUT", 10*time.Second),
		},

		// Delivery worker
		Worker: WorkerConfig{
			Enabled:           getbool("WORKER_ENABLED", true),
			PollInterval:      getdur("WORKER_POLL_INTERVAL", 10*time.Second),
			ErrorBackoff:      getdur("WORKER_ERROR_BACKOFF", time.Second),
			DropOnSendFailure: getbool("WORKER_DROP_ON_SEND_FAILURE", true),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-newsletter-backend"),
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
	switch cfg.DBDriver {
	case "sqlite":
		if strings.TrimSpace(cfg.DBPath) == "" {
			return cfg, errors.New("DB_PATH must not be empty when DB_DRIVER=sqlite")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DBDSN) == "" {
			return cfg, errors.New("DB_DSN must not be empty when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	if strings.TrimSpace(cfg.PublicBaseURL) == "" {
		return cfg, errors.New("PUBLIC_BASE_URL must not be empty")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.Email.BaseURL != "" {
		if strings.TrimSpace(cfg.Email.Sender) == "" {
			return cfg, errors.New("EMAIL_SENDER must not be empty when EMAIL_BASE_URL is set")
		}
		if cfg.Email.Timeout <= 0 {
			return cfg, errors.New("EMAIL_TIMEOUT must be > 0")
		}
	}
	if cfg.Worker.PollInterval <= 0 || cfg.Worker.ErrorBackoff <= 0 {
		return cfg, errors.New("worker intervals must be positive durations")
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

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
