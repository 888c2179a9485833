package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ivlev/sketchstory/internal/director"
)

// Settings store backends
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendValkey = "valkey"
)

// Config holds the full application configuration.
type Config struct {
	Provider      string  `yaml:"provider"`
	Language      string  `yaml:"language"`
	Style         string  `yaml:"style"`
	Voice         string  `yaml:"voice"`
	TotalDuration float64 `yaml:"duration"`
	Enhance       bool    `yaml:"enhance"`

	OpenAIKey string `yaml:"openai_key"`
	GeminiKey string `yaml:"gemini_key"`
	GrokKey   string `yaml:"grok_key"`

	RateLimitPerMin int           `yaml:"rate_limit_per_min"`
	MaxRetries      int           `yaml:"max_retries"`
	RetryBackoff    time.Duration `yaml:"retry_backoff"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`

	SettingsBackend string `yaml:"settings_backend"`
	SettingsPath    string `yaml:"settings_path"`
	ValkeyAddr      string `yaml:"valkey_addr"`

	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	QRStamp   string `yaml:"qr_stamp"`
	OutputDir string `yaml:"output_dir"`
	InputDir  string `yaml:"input_dir"`

	Listen     string `yaml:"listen"`
	CORSOrigin string `yaml:"cors_origin"`

	ShowStats    bool   `yaml:"-"`
	BuildVersion string `yaml:"-"`
}

// Default returns a Config with built-in defaults.
func Default() *Config {
	return &Config{
		Provider:        "demo",
		Language:        "pl",
		Style:           "minimal",
		Voice:           "friendly",
		TotalDuration:   30,
		RateLimitPerMin: 20,
		MaxRetries:      2,
		RetryBackoff:    2 * time.Second,
		RequestTimeout:  60 * time.Second,
		SettingsBackend: BackendFile,
		SettingsPath:    "sketchstory-settings.yaml",
		ValkeyAddr:      "127.0.0.1:6379",
		Width:           800,
		Height:          500,
		OutputDir:       "output",
		InputDir:        "input",
		Listen:          ":8080",
		CORSOrigin:      "http://127.0.0.1:5173",
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path, a .env file and the process environment, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// LoadDotEnv loads variables from the given .env files (default ".env")
// without overriding ones already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := []struct {
		name string
		dst  *string
	}{
		{"SKETCHSTORY_PROVIDER", &c.Provider},
		{"SKETCHSTORY_LANGUAGE", &c.Language},
		{"SKETCHSTORY_STYLE", &c.Style},
		{"SKETCHSTORY_VOICE", &c.Voice},
		{"SKETCHSTORY_SETTINGS_BACKEND", &c.SettingsBackend},
		{"SKETCHSTORY_SETTINGS_PATH", &c.SettingsPath},
		{"SKETCHSTORY_VALKEY_ADDR", &c.ValkeyAddr},
		{"SKETCHSTORY_QR_STAMP", &c.QRStamp},
		{"SKETCHSTORY_OUTPUT_DIR", &c.OutputDir},
		{"SKETCHSTORY_INPUT_DIR", &c.InputDir},
		{"SKETCHSTORY_LISTEN", &c.Listen},
		{"SKETCHSTORY_CORS_ORIGIN", &c.CORSOrigin},
		{"OPENAI_API_KEY", &c.OpenAIKey},
		{"GEMINI_API_KEY", &c.GeminiKey},
		{"XAI_API_KEY", &c.GrokKey},
		{"GROK_API_KEY", &c.GrokKey},
	}
	for _, e := range str {
		if v, ok := lookup(e.name); ok && strings.TrimSpace(v) != "" {
			*e.dst = strings.TrimSpace(v)
		}
	}

	if v, ok := lookup("SKETCHSTORY_DURATION"); ok && v != "" {
		d, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("SKETCHSTORY_DURATION: %w", err)
		}
		c.TotalDuration = d
	}
	if v, ok := lookup("SKETCHSTORY_RATE_LIMIT"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SKETCHSTORY_RATE_LIMIT: %w", err)
		}
		c.RateLimitPerMin = n
	}
	return nil
}

// Validate rejects values nothing downstream can work with.
func (c *Config) Validate() error {
	var errs []error
	if c.TotalDuration <= 0 {
		errs = append(errs, fmt.Errorf("duration must be positive, got %v", c.TotalDuration))
	}
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("invalid canvas size %dx%d", c.Width, c.Height))
	}
	if !director.Known(director.StyleID(c.Style)) {
		errs = append(errs, fmt.Errorf("unknown style %q", c.Style))
	}
	switch c.SettingsBackend {
	case BackendMemory, BackendFile, BackendValkey:
	default:
		errs = append(errs, fmt.Errorf("unknown settings backend %q", c.SettingsBackend))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max retries must not be negative"))
	}
	return errors.Join(errs...)
}
