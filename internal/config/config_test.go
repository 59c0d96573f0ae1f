package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("GEMINI_MODEL_ID", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.GeminiModelID != "gemini-2.5-flash" {
		t.Fatalf("expected default gemini model, got %s", cfg.GeminiModelID)
	}
	if cfg.BackendTimeout != 25*time.Second {
		t.Fatalf("expected default backend timeout, got %s", cfg.BackendTimeout)
	}
	if cfg.HistoryTurns != 12 {
		t.Fatalf("expected default history turns, got %d", cfg.HistoryTurns)
	}
	if cfg.UseMemoryQueue {
		t.Fatalf("expected memory queue disabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("BACKEND_TIMEOUT", "10s")
	t.Setenv("HISTORY_TURNS", "6")
	t.Setenv("USE_MEMORY_QUEUE", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Fatalf("expected env override, got %s", cfg.Env)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.BackendTimeout != 10*time.Second {
		t.Fatalf("expected backend timeout override, got %s", cfg.BackendTimeout)
	}
	if cfg.HistoryTurns != 6 {
		t.Fatalf("expected history turns override, got %d", cfg.HistoryTurns)
	}
	if !cfg.UseMemoryQueue {
		t.Fatalf("expected memory queue override")
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("expected parsed CORS origins, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("WORKER_COUNT", "not-a-number")
	t.Setenv("BACKEND_TIMEOUT", "soon")
	t.Setenv("REDIS_TLS", "maybe")
	cfg := Load()
	if cfg.WorkerCount != 2 {
		t.Fatalf("expected default worker count, got %d", cfg.WorkerCount)
	}
	if cfg.BackendTimeout != 25*time.Second {
		t.Fatalf("expected default backend timeout, got %s", cfg.BackendTimeout)
	}
	if cfg.RedisTLS {
		t.Fatalf("expected redis TLS default false")
	}
}
