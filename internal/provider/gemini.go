package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const geminiEndpoint = "https://generativelanguage.googleapis.com/v1/models/gemini-1.5-flash:generateContent"

var geminiSafetyCategories = []string{
	"HARM_CATEGORY_HARASSMENT",
	"HARM_CATEGORY_HATE_SPEECH",
	"HARM_CATEGORY_SEXUALLY_EXPLICIT",
	"HARM_CATEGORY_DANGEROUS_CONTENT",
}

// Gemini calls the Google generateContent API
type Gemini struct {
	endpoint string
	apiKey   string
	http     *http.Client
	limiter  *rate.Limiter
	logger   *slog.Logger
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
}

type geminiSafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
	SafetySettings   []geminiSafetySetting  `json:"safetySettings"`
}

func NewGemini(apiKey string, opts Options) *Gemini {
	return &Gemini{
		endpoint: pick(opts.GeminiURL, geminiEndpoint),
		apiKey:   strings.TrimSpace(apiKey),
		http:     opts.httpClient(),
		limiter:  opts.limiter(),
		logger:   opts.logger().With("provider", NameGemini),
	}
}

func (g *Gemini) Name() string { return NameGemini }

func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	if g.apiKey == "" {
		return "", &Error{Kind: MissingCredential, Provider: NameGemini, Message: "API key required"}
	}

	system, user := prompts(req)
	payload := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: system + "\n\n" + user}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     temperature,
			MaxOutputTokens: maxTokens,
			TopK:            40,
			TopP:            0.95,
		},
	}
	for _, c := range geminiSafetyCategories {
		payload.SafetySettings = append(payload.SafetySettings, geminiSafetySetting{Category: c, Threshold: "BLOCK_MEDIUM_AND_ABOVE"})
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	u, err := url.Parse(g.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("key", g.apiKey)
	u.RawQuery = q.Encode()

	data, err := send(ctx, g.http, g.limiter, NameGemini, u.String(), body, nil)
	if err != nil {
		return "", err
	}

	text := gjson.GetBytes(data, "candidates.0.content.parts.0.text").String()
	if strings.TrimSpace(text) == "" {
		reason := gjson.GetBytes(data, "promptFeedback.blockReason").String()
		msg := "no candidates in response"
		if reason != "" {
			msg = "blocked: " + reason
		}
		return "", &Error{Kind: MalformedResponse, Provider: NameGemini, Message: msg}
	}
	g.logger.Debug("script generated", "chars", len(text))
	return text, nil
}
