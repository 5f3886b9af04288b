// Package ai is the client of the hosted Gemini model used by the coach for
// chat replies, resume generation and canvas suggestions.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"resume-canvas/internal/domain"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// Config configures a Client. Zero values select defaults.
type Config struct {
	BaseURL string
	APIKey  string

	ChatModel     string
	DeepModel     string
	GenerateModel string
	SuggestModel  string

	ThinkingBudget int
	Language       string

	Timeout         time.Duration
	GenerateTimeout time.Duration
	SuggestTimeout  time.Duration
	MaxRetries      int
	// RetryBackoff is the first retry delay; it doubles per attempt.
	RetryBackoff time.Duration

	BreakerMaxFailures uint32
	BreakerTimeout     time.Duration

	SuggestRate  float64
	SuggestBurst int
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.ChatModel == "" {
		c.ChatModel = "gemini-2.5-flash"
	}
	if c.DeepModel == "" {
		c.DeepModel = "gemini-2.5-pro"
	}
	if c.GenerateModel == "" {
		c.GenerateModel = "gemini-2.5-pro"
	}
	if c.SuggestModel == "" {
		c.SuggestModel = "gemini-2.5-flash"
	}
	if c.Language == "" {
		c.Language = "English"
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.GenerateTimeout <= 0 {
		c.GenerateTimeout = 5 * time.Minute
	}
	if c.SuggestTimeout <= 0 {
		c.SuggestTimeout = 15 * time.Second
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = time.Second
	}
	if c.BreakerMaxFailures == 0 {
		c.BreakerMaxFailures = 5
	}
	if c.BreakerTimeout <= 0 {
		c.BreakerTimeout = 30 * time.Second
	}
	if c.SuggestRate <= 0 {
		c.SuggestRate = 0.5
	}
	if c.SuggestBurst <= 0 {
		c.SuggestBurst = 2
	}
	return c
}

// Client talks to the Gemini generateContent endpoint. All calls share one
// circuit breaker; suggestions are additionally rate limited.
type Client struct {
	cfg        Config
	apiKey     string
	http       *http.Client
	logger     *slog.Logger
	maxRetries int
	backoff    time.Duration

	breaker *gobreaker.CircuitBreaker[[]byte]
	limiter *rate.Limiter

	mu      sync.Mutex
	session *Session
}

// NewClient builds a client. A missing API key is logged and tolerated;
// calls then fail with an auth error.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	logger = logger.With("component", "ai")
	if cfg.APIKey == "" {
		logger.Warn("API key is not set, AI features will fail until it is configured")
	}

	c := &Client{
		cfg:        cfg,
		apiKey:     cfg.APIKey,
		http:       &http.Client{Timeout: cfg.GenerateTimeout + 30*time.Second},
		logger:     logger,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.RetryBackoff,
		limiter:    rate.NewLimiter(rate.Limit(cfg.SuggestRate), cfg.SuggestBurst),
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "gemini",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerMaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: isBreakerSuccess,
	})
	return c
}

// isBreakerSuccess keeps request-specific failures from opening the circuit.
func isBreakerSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var se *statusError
	if errors.As(err, &se) {
		return !se.retryable() && se.code != http.StatusUnauthorized && se.code != http.StatusForbidden
	}
	return false
}

// ChatModel returns the model chat uses for the given mode.
func (c *Client) ChatModel(deep bool) string {
	if deep {
		return c.cfg.DeepModel
	}
	return c.cfg.ChatModel
}

func (c *Client) GenerateModel() string { return c.cfg.GenerateModel }

// BreakerState reports the circuit breaker state for health checks.
func (c *Client) BreakerState() string { return c.breaker.State().String() }

// ChatRespond sends the user's message, with an optional attachment, and
// returns the model's reply. history is the transcript before this message;
// it seeds a new session whenever the model changes.
func (c *Client) ChatRespond(ctx context.Context, history []domain.ChatMessage, text string, attachment *domain.InlineData, deep bool) (string, error) {
	var parts []geminiPart
	if text != "" {
		parts = append(parts, textPart(text))
	}
	if attachment != nil {
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{MimeType: attachment.MimeType, Data: attachment.Data}})
	}
	if len(parts) == 0 {
		return "", domain.Invalid(domain.ErrEmptyMessage)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	return c.sessionFor(c.ChatModel(deep), history).send(ctx, c, parts)
}

// sessionFor returns the current session, replacing it when the model differs.
func (c *Client) sessionFor(model string, history []domain.ChatMessage) *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil || c.session.model != model {
		c.logger.Debug("starting chat session", "model", model, "seed", len(history))
		c.session = newSession(model, chatInstruction(c.cfg.Language), history)
	}
	return c.session
}

// GenerateDocument turns the canvas items into a Markdown resume. Image items
// are attached as inline data.
func (c *Client) GenerateDocument(ctx context.Context, items []domain.CanvasItem) (string, error) {
	if len(items) == 0 {
		return "", domain.Invalid(domain.ErrEmptyCanvas)
	}

	parts := []geminiPart{textPart(generatePrompt(items, c.cfg.Language))}
	for _, it := range items {
		if it.Kind != domain.ItemImage {
			continue
		}
		mime := it.MimeType
		if mime == "" {
			mime = "image/jpeg"
		}
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{MimeType: mime, Data: it.Content}})
	}

	req := geminiRequest{
		Contents: []geminiContent{{Role: string(domain.RoleUser), Parts: parts}},
	}
	if c.cfg.ThinkingBudget > 0 {
		req.GenerationConfig = &generationConfig{ThinkingConfig: &thinkingConfig{ThinkingBudget: c.cfg.ThinkingBudget}}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.GenerateTimeout)
	defer cancel()

	text, err := c.generate(ctx, "generate", c.cfg.GenerateModel, req)
	if err != nil {
		return "", err
	}
	return stripCodeFences(text), nil
}

// Suggest returns a short hint about newItem. It never fails: any problem,
// including rate limiting, yields FallbackSuggestion.
func (c *Client) Suggest(ctx context.Context, newItem domain.CanvasItem, prior []domain.CanvasItem) string {
	if !c.limiter.Allow() {
		c.logger.Debug("suggestion rate limited", "item", newItem.ID)
		return FallbackSuggestion
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.SuggestTimeout)
	defer cancel()

	req := geminiRequest{
		Contents: []geminiContent{{
			Role:  string(domain.RoleUser),
			Parts: []geminiPart{textPart(suggestPrompt(newItem, prior, c.cfg.Language))},
		}},
	}
	text, err := c.generate(ctx, "suggest", c.cfg.SuggestModel, req)
	if err != nil {
		c.logger.Warn("suggestion failed", "item", newItem.ID, "error", err)
		return FallbackSuggestion
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return FallbackSuggestion
	}
	return text
}

// generate runs one generateContent call through the breaker and returns the
// reply text.
func (c *Client) generate(ctx context.Context, op, model string, req geminiRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	url := fmt.Sprintf("%s/models/%s:generateContent", c.cfg.BaseURL, model)

	start := time.Now()
	respBody, err := c.breaker.Execute(func() ([]byte, error) {
		return c.doPostWithRetry(ctx, url, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", &domain.ServiceError{
				Op:      op,
				Message: "the AI service is temporarily unavailable, please try again shortly",
				Err:     fmt.Errorf("%w: %w", domain.ErrCircuitOpen, err),
			}
		}
		return "", mapError(op, err)
	}

	var resp geminiResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", mapError(op, fmt.Errorf("unmarshal response: %w", err))
	}
	if reason := resp.blockReason(); reason != "" {
		return "", &domain.ServiceError{
			Op:      op,
			Message: "the AI service declined to answer this request",
			Err:     fmt.Errorf("%w: %s", domain.ErrBlocked, reason),
		}
	}

	text := resp.text()
	attrs := []any{"op", op, "model", model, "duration", time.Since(start)}
	if resp.UsageMetadata != nil {
		attrs = append(attrs, "tokens", resp.UsageMetadata.TotalTokenCount)
	}
	c.logger.Debug("gemini call completed", attrs...)

	if strings.TrimSpace(text) == "" {
		return "", &domain.ServiceError{
			Op:      op,
			Message: "the AI service returned an empty answer",
			Err:     fmt.Errorf("%w: empty response", domain.ErrUpstream),
		}
	}
	return text, nil
}
