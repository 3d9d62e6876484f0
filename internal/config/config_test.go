package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "8080" {
		t.Fatalf("Port default = %q", cfg.Port)
	}
	if cfg.DBDriver != "sqlite" || cfg.DBPath != "app.db" {
		t.Fatalf("db defaults = %q %q", cfg.DBDriver, cfg.DBPath)
	}
	if cfg.APIBasePath != "/api/v1" {
		t.Fatalf("APIBasePath default = %q", cfg.APIBasePath)
	}
	if !cfg.Worker.Enabled || cfg.Worker.PollInterval != 10*time.Second || cfg.Worker.ErrorBackoff != time.Second {
		t.Fatalf("worker defaults = %+v", cfg.Worker)
	}
	if !cfg.Worker.DropOnSendFailure {
		t.Fatal("worker must drop on send failure by default")
	}
	if cfg.Email.BaseURL != "" {
		t.Fatalf("email base url default = %q", cfg.Email.BaseURL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_DSN", "host=localhost user=app dbname=newsletter")
	t.Setenv("PUBLIC_BASE_URL", "https://news.example.com/")
	t.Setenv("EMAIL_BASE_URL", "https://api.postmarkapp.com/")
	t.Setenv("EMAIL_SENDER", "digest@example.com")
	t.Setenv("WORKER_POLL_INTERVAL", "2s")
	t.Setenv("LOG_LEVEL", "warning")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" || cfg.DBDriver != "postgres" {
		t.Fatalf("overrides not applied: %q %q", cfg.Port, cfg.DBDriver)
	}
	if cfg.PublicBaseURL != "https://news.example.com" {
		t.Fatalf("trailing slash not stripped: %q", cfg.PublicBaseURL)
	}
	if cfg.Email.BaseURL != "https://api.postmarkapp.com" {
		t.Fatalf("email base url = %q", cfg.Email.BaseURL)
	}
	if cfg.Worker.PollInterval != 2*time.Second {
		t.Fatalf("poll interval = %v", cfg.Worker.PollInterval)
	}
	// "warning" normalizes to "warn".
	if cfg.LogLevel != "warn" {
		t.Fatalf("log level = %q", cfg.LogLevel)
	}
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"bad log level", map[string]string{"LOG_LEVEL": "loud"}},
		{"bad driver", map[string]string{"DB_DRIVER": "oracle"}},
		{"postgres without dsn", map[string]string{"DB_DRIVER": "postgres"}},
		{"negative rps", map[string]string{"RATE_RPS": "-1"}},
		{"zero burst", map[string]string{"RATE_BURST": "0"}},
		{"bad sample ratio", map[string]string{"OTEL_TRACES_SAMPLER_ARG": "1.5"}},
		{"email without sender", map[string]string{"EMAIL_BASE_URL": "https://api.postmarkapp.com", "EMAIL_SENDER": " "}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}

func TestNormalizeBasePath(t *testing.T) {
	cases := map[string]string{
		"":        "/",
		"/":       "/",
		"api":     "/api",
		"/api/":   "/api",
		"/api/v2": "/api/v2",
	}
	for in, want := range cases {
		if got := normalizeBasePath(in); got != want {
			t.Fatalf("normalizeBasePath(%q) = %q, want %q", in, got, want)
		}
	}
}
