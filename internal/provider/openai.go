package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	openAIEndpoint = "https://api.openai.com/v1/chat/completions"
	openAIModel    = "gpt-3.5-turbo"
	grokEndpoint   = "https://api.x.ai/v1/chat/completions"
	grokModel      = "grok-beta"

	maxResponseBytes = 4 << 20
)

// ChatClient talks to an OpenAI compatible chat completions API
type ChatClient struct {
	name     string
	endpoint string
	model    string
	apiKey   string
	http     *http.Client
	limiter  *rate.Limiter
	logger   *slog.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

func NewOpenAI(apiKey string, opts Options) *ChatClient {
	return newChatClient(NameOpenAI, pick(opts.OpenAIURL, openAIEndpoint), openAIModel, apiKey, opts)
}

func NewGrok(apiKey string, opts Options) *ChatClient {
	return newChatClient(NameGrok, pick(opts.GrokURL, grokEndpoint), grokModel, apiKey, opts)
}

func newChatClient(name, endpoint, model, apiKey string, opts Options) *ChatClient {
	return &ChatClient{
		name:     name,
		endpoint: endpoint,
		model:    model,
		apiKey:   strings.TrimSpace(apiKey),
		http:     opts.httpClient(),
		limiter:  opts.limiter(),
		logger:   opts.logger().With("provider", name),
	}
}

func (c *ChatClient) Name() string { return c.name }

func (c *ChatClient) Generate(ctx context.Context, req Request) (string, error) {
	if c.apiKey == "" {
		return "", &Error{Kind: MissingCredential, Provider: c.name, Message: "API key required"}
	}
	system, user := prompts(req)
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	data, err := send(ctx, c.http, c.limiter, c.name, c.endpoint, body, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+c.apiKey)
	})
	if err != nil {
		return "", err
	}

	text := gjson.GetBytes(data, "choices.0.message.content").String()
	if strings.TrimSpace(text) == "" {
		return "", &Error{Kind: MalformedResponse, Provider: c.name, Message: "no choices in response"}
	}
	c.logger.Debug("script generated", "chars", len(text))
	return text, nil
}

// send posts a JSON body and returns the response payload. Failures come back
// as *Error, except context cancellation which is returned as is.
func send(ctx context.Context, client *http.Client, limiter *rate.Limiter, name, url string, body []byte, decorate func(*http.Request)) ([]byte, error) {
	if err := limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &Error{Kind: RateLimited, Provider: name, Message: "local rate limit", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if decorate != nil {
		decorate(httpReq)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &Error{Kind: NetworkFailure, Provider: name, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &Error{Kind: NetworkFailure, Provider: name, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, classifyResponse(name, resp.StatusCode, data)
	}
	if !gjson.ValidBytes(data) {
		return nil, &Error{Kind: MalformedResponse, Provider: name, Status: resp.StatusCode, Message: "invalid JSON"}
	}
	return data, nil
}

func pick(override, def string) string {
	if override != "" {
		return override
	}
	return def
}
