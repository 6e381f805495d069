package config

import (
	"log/slog"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("THREADLINE_STORE", "")
	t.Setenv("THREADLINE_AUTHOR", "")
	t.Setenv("S3_USE_SSL", "")

	cfg := Load()
	if cfg.Store != BackendFile {
		t.Fatalf("expected file backend, got %q", cfg.Store)
	}
	if cfg.Author != "Guest" {
		t.Fatalf("expected Guest author, got %q", cfg.Author)
	}
	if cfg.S3UseSSL {
		t.Fatal("expected ssl off by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("THREADLINE_STORE", "Redis")
	t.Setenv("THREADLINE_ADDR", ":9999")
	t.Setenv("S3_USE_SSL", "true")

	cfg := Load()
	if cfg.Store != BackendRedis {
		t.Fatalf("expected redis backend, got %q", cfg.Store)
	}
	if cfg.Addr != ":9999" {
		t.Fatalf("expected :9999, got %q", cfg.Addr)
	}
	if !cfg.S3UseSSL {
		t.Fatal("expected ssl on")
	}
}

func TestGetenvBoolFallsBackOnGarbage(t *testing.T) {
	t.Setenv("THREADLINE_TEST_BOOL", "maybe")
	if got := getenvBool("THREADLINE_TEST_BOOL", true); !got {
		t.Fatal("expected fallback true")
	}
}

func TestSlogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for input, want := range cases {
		if got := (Config{LogLevel: input}).SlogLevel(); got != want {
			t.Errorf("SlogLevel(%q) = %v, want %v", input, got, want)
		}
	}
}
