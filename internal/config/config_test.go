package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func env(values map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := values[k]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config invalid: %v", err)
	}
	if cfg.Provider != "demo" || cfg.Language != "pl" || cfg.MaxRetries != 2 || cfg.RetryBackoff != 2*time.Second {
		t.Errorf("Unexpected defaults %+v", cfg)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(env(map[string]string{
		"SKETCHSTORY_PROVIDER": "gemini",
		"GEMINI_API_KEY":       " gm-key ",
		"SKETCHSTORY_DURATION": "45",
		"SKETCHSTORY_LANGUAGE": "",
	}))
	if err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}
	if cfg.Provider != "gemini" || cfg.GeminiKey != "gm-key" || cfg.TotalDuration != 45 || cfg.Language != "pl" {
		t.Errorf("Unexpected config %+v", cfg)
	}

	if err := Default().ApplyEnv(env(map[string]string{"SKETCHSTORY_DURATION": "long"})); err == nil {
		t.Error("Expected error for non-numeric duration")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := "provider: openai\nduration: 60\nretry_backoff: 500ms\nsettings_backend: memory\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	if err := cfg.mergeFile(path); err != nil {
		t.Fatalf("mergeFile failed: %v", err)
	}
	if cfg.Provider != "openai" || cfg.TotalDuration != 60 || cfg.RetryBackoff != 500*time.Millisecond || cfg.SettingsBackend != BackendMemory {
		t.Errorf("Unexpected config %+v", cfg)
	}
	if cfg.Width != 800 {
		t.Errorf("Expected untouched default width, got %d", cfg.Width)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	os.WriteFile(path, []byte("SKETCHSTORY_TEST_DOTENV=from-file\n"), 0o600)
	t.Setenv("SKETCHSTORY_TEST_DOTENV", "")
	os.Unsetenv("SKETCHSTORY_TEST_DOTENV")

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}
	if got := os.Getenv("SKETCHSTORY_TEST_DOTENV"); got != "from-file" {
		t.Errorf("Expected value from .env, got %q", got)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.TotalDuration = 0
	cfg.SettingsBackend = "etcd"
	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation errors")
	}

	cfg = Default()
	cfg.Style = "watercolor"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "watercolor") {
		t.Errorf("Expected unknown style error, got %v", err)
	}
}
