package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/bilgisen/tldrit/internal/logger"
)

const (
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"

	OpenAIBaseURL     = "https://api.openai.com/v1"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

// ClientOptions tunes a ChatClient. Zero values fall back to defaults.
type ClientOptions struct {
	BaseURL        string
	Timeout        time.Duration
	MaxTokens      int
	RequestsPerMin int
}

// ChatClient talks to an OpenAI-compatible chat completions endpoint.
type ChatClient struct {
	provider  string
	client    *resty.Client
	apiKey    string
	model     string
	maxTokens int
	limiter   *rate.Limiter
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewOpenAIClient returns a client for api.openai.com.
func NewOpenAIClient(apiKey, model string, opts ClientOptions) *ChatClient {
	if opts.BaseURL == "" {
		opts.BaseURL = OpenAIBaseURL
	}
	return newChatClient(ProviderOpenAI, apiKey, model, opts)
}

// NewOpenRouterClient returns a client for openrouter.ai, used for Claude and
// other hosted models.
func NewOpenRouterClient(apiKey, model string, opts ClientOptions) *ChatClient {
	if opts.BaseURL == "" {
		opts.BaseURL = OpenRouterBaseURL
	}
	c := newChatClient(ProviderOpenRouter, apiKey, model, opts)
	c.client.SetHeader("HTTP-Referer", "https://tldrit.app").SetHeader("X-Title", "TLDRit")
	return c
}

func newChatClient(provider, apiKey, model string, opts ClientOptions) *ChatClient {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1000
	}

	return &ChatClient{
		provider: provider,
		client: resty.New().
			SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
			SetTimeout(opts.Timeout).
			SetHeader("Content-Type", "application/json"),
		apiKey:    apiKey,
		model:     model,
		maxTokens: opts.MaxTokens,
		limiter:   newLimiter(opts.RequestsPerMin),
	}
}

// newLimiter allows requestsPerMin calls per minute; zero disables limiting.
func newLimiter(requestsPerMin int) *rate.Limiter {
	if requestsPerMin <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(float64(requestsPerMin)/60), 1)
}

func (c *ChatClient) Name() string  { return c.provider }
func (c *ChatClient) Model() string { return c.model }

// Available reports whether the client has credentials.
func (c *ChatClient) Available() bool {
	return c.apiKey != ""
}

// Complete sends a system and a user message and returns the first choice.
func (c *ChatClient) Complete(ctx context.Context, system, user string) (string, error) {
	log := logger.Component("ai")

	if !c.Available() {
		return "", fmt.Errorf("%s: %w", c.provider, ErrNotConfigured)
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req := chatRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
	}
	if system != "" {
		req.Messages = append(req.Messages, chatMessage{Role: "system", Content: system})
	}
	req.Messages = append(req.Messages, chatMessage{Role: "user", Content: user})

	start := time.Now()
	var (
		result  chatResponse
		failure errorResponse
	)
	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(c.apiKey).
		SetBody(req).
		SetResult(&result).
		SetError(&failure).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("%s request failed: %w", c.provider, err)
	}
	if resp.IsError() {
		msg := failure.Error.Message
		if msg == "" {
			msg = strings.TrimSpace(resp.String())
		}
		log.Error().
			Str("provider", c.provider).
			Int("status", resp.StatusCode()).
			Str("message", msg).
			Msg("AI API error")
		return "", &APIError{Provider: c.provider, StatusCode: resp.StatusCode(), Message: msg}
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("%s: no choices in response", c.provider)
	}
	choice := result.Choices[0]
	if choice.FinishReason == "length" {
		log.Warn().
			Str("provider", c.provider).
			Str("model", result.Model).
			Int("max_tokens", c.maxTokens).
			Msg("AI response truncated due to max tokens")
	}

	log.Debug().
		Str("provider", c.provider).
		Str("model", result.Model).
		Int("content_length", len(choice.Message.Content)).
		Dur("duration", time.Since(start)).
		Msg("AI completion")
	return choice.Message.Content, nil
}
