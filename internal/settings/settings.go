// Package settings stores the user's provider choice and credentials and
// reports provider connectivity.
package settings

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/sketchstory/internal/i18n"
	"github.com/ivlev/sketchstory/internal/provider"
)

const (
	KeyProvider = "ai-provider"
	KeyOpenAI   = "openai-api-key"
	KeyGemini   = "gemini-api-key"
	KeyGrok     = "grok-api-key"
	KeyLanguage = "default-language"
	KeyQuality  = "default-quality"

	DefaultQuality = "medium"
)

// Settings is the user-editable configuration
type Settings struct {
	Provider  string `json:"provider" yaml:"provider"`
	OpenAIKey string `json:"openaiKey,omitempty" yaml:"openai_key,omitempty"`
	GeminiKey string `json:"geminiKey,omitempty" yaml:"gemini_key,omitempty"`
	GrokKey   string `json:"grokKey,omitempty" yaml:"grok_key,omitempty"`
	Language  string `json:"language" yaml:"language"`
	Quality   string `json:"quality" yaml:"quality"`
}

func Defaults() Settings {
	return Settings{
		Provider: provider.NameDemo,
		Language: i18n.DefaultLocale,
		Quality:  DefaultQuality,
	}
}

// Load reads settings from s, filling missing values with defaults.
func Load(ctx context.Context, s Store) (Settings, error) {
	v := Defaults()
	fields := []struct {
		key string
		dst *string
	}{
		{KeyProvider, &v.Provider},
		{KeyOpenAI, &v.OpenAIKey},
		{KeyGemini, &v.GeminiKey},
		{KeyGrok, &v.GrokKey},
		{KeyLanguage, &v.Language},
		{KeyQuality, &v.Quality},
	}
	for _, f := range fields {
		val, ok, err := s.Get(ctx, f.key)
		if err != nil {
			return v, fmt.Errorf("load %s: %w", f.key, err)
		}
		if ok && val != "" {
			*f.dst = val
		}
	}
	return v, nil
}

// Save writes v to s. Empty credentials are skipped so a partial update
// never erases a stored key.
func Save(ctx context.Context, s Store, v Settings) error {
	writes := [][2]string{
		{KeyProvider, v.Provider},
		{KeyLanguage, v.Language},
		{KeyQuality, v.Quality},
	}
	for _, kv := range [][2]string{{KeyOpenAI, v.OpenAIKey}, {KeyGemini, v.GeminiKey}, {KeyGrok, v.GrokKey}} {
		if strings.TrimSpace(kv[1]) != "" {
			writes = append(writes, kv)
		}
	}
	for _, kv := range writes {
		if kv[1] == "" {
			continue
		}
		if err := s.Set(ctx, kv[0], kv[1]); err != nil {
			return fmt.Errorf("save %s: %w", kv[0], err)
		}
	}
	return nil
}

// Key returns the credential stored for name.
func (v Settings) Key(name string) string {
	switch strings.ToLower(name) {
	case provider.NameOpenAI:
		return v.OpenAIKey
	case provider.NameGemini:
		return v.GeminiKey
	case provider.NameGrok:
		return v.GrokKey
	}
	return ""
}

// Merge overlays non-empty fields of o onto v.
func (v Settings) Merge(o Settings) Settings {
	pick := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	pick(&v.Provider, o.Provider)
	pick(&v.OpenAIKey, o.OpenAIKey)
	pick(&v.GeminiKey, o.GeminiKey)
	pick(&v.GrokKey, o.GrokKey)
	pick(&v.Language, o.Language)
	pick(&v.Quality, o.Quality)
	return v
}

// ProviderOptions copies the credentials and locale into base.
func (v Settings) ProviderOptions(base provider.Options) provider.Options {
	base.OpenAIKey = v.OpenAIKey
	base.GeminiKey = v.GeminiKey
	base.GrokKey = v.GrokKey
	base.Locale = i18n.Normalize(v.Language)
	return base
}

// Masked hides all but the last four characters of every credential.
func (v Settings) Masked() Settings {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		r := []rune(s)
		if len(r) <= 4 {
			return strings.Repeat("*", len(r))
		}
		return strings.Repeat("*", len(r)-4) + string(r[len(r)-4:])
	}
	v.OpenAIKey = mask(v.OpenAIKey)
	v.GeminiKey = mask(v.GeminiKey)
	v.GrokKey = mask(v.GrokKey)
	return v
}

// StatusLine describes the selected provider in the settings language.
func StatusLine(v Settings) string {
	if !provider.RequiresKey(v.Provider) {
		return i18n.T(v.Language, "STATUS_DEMO")
	}
	name := provider.DisplayName(v.Provider)
	if strings.TrimSpace(v.Key(v.Provider)) == "" {
		return i18n.T(v.Language, "STATUS_KEY_REQUIRED", name)
	}
	return i18n.T(v.Language, "STATUS_CONNECTED", name)
}

// TestConnection runs one small generation against the provider named by
// v.Provider with no retry or fallback.
func TestConnection(ctx context.Context, v Settings, base provider.Options) error {
	return testProvider(ctx, v.Provider, v, base)
}

func testProvider(ctx context.Context, name string, v Settings, base provider.Options) error {
	g, err := provider.NewRaw(name, v.ProviderOptions(base))
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 45*time.Second)
	defer cancel()
	_, err = g.Generate(ctx, provider.Request{
		Topic:           "Test",
		DurationSeconds: 30,
		VoiceStyle:      "friendly",
		Locale:          i18n.Normalize(v.Language),
	})
	return err
}

// TestResult is the outcome of one connectivity test
type TestResult struct {
	Provider string `json:"provider"`
	OK       bool   `json:"ok"`
	Message  string `json:"message"`
	Err      error  `json:"-"`
}

// TestAll tests every remote provider that has a credential, concurrently.
func TestAll(ctx context.Context, v Settings, base provider.Options) []TestResult {
	var names []string
	for _, name := range provider.Names() {
		if provider.RequiresKey(name) && v.Key(name) != "" {
			names = append(names, name)
		}
	}

	logger := base.Logger
	if logger == nil {
		logger = slog.Default()
	}
	results := make([]TestResult, len(names))
	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			err := testProvider(ctx, name, v, base)
			display := provider.DisplayName(name)
			res := TestResult{Provider: name, OK: err == nil, Err: err}
			if err == nil {
				res.Message = i18n.T(v.Language, "TEST_OK", display)
			} else {
				res.Message = i18n.T(v.Language, "TEST_FAILED", display, err.Error())
				logger.Warn("connectivity test failed", "provider", name, "err", err)
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results
}
