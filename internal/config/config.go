// Package config defines the service configuration and its defaults.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"resume-canvas/internal/domain"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// APIKeyEnv is consulted when the configuration carries no API key.
const APIKeyEnv = "API_KEY"

const DefaultLanguage = "English"

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	AI       AIConfig          `yaml:"ai"`
	Coach    CoachConfig       `yaml:"coach"`
	Database DatabaseConfig    `yaml:"database"`
	Renderer RendererConfig    `yaml:"renderer"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.AI.Validate(); err != nil {
		return fmt.Errorf("ai: %w", err)
	}
	if err := c.Coach.Validate(); err != nil {
		return fmt.Errorf("coach: %w", err)
	}
	if err := c.Renderer.Validate(); err != nil {
		return fmt.Errorf("renderer: %w", err)
	}
	return nil
}

// ApplyEnv fills values that may come from the process environment instead
// of the file.
func (c *Config) ApplyEnv() {
	if c.AI.APIKey == "" {
		c.AI.APIKey = os.Getenv(APIKeyEnv)
	}
}

// ApplicationConfig holds process-level settings.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
	// LogFile enables a rotating log file in addition to stderr.
	LogFile string     `yaml:"log_file"`
	HTTP    HTTPConfig `yaml:"http"`
}

func (c *ApplicationConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.Required, validation.In(LogFormatText, LogFormatJSON)),
	); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	BodyLimit       int           `yaml:"body_limit"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.ShutdownTimeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.BodyLimit, validation.Required, validation.Min(1024)),
	)
}

// AIConfig configures the Gemini client.
type AIConfig struct {
	BaseURL string `yaml:"base_url"`
	// APIKey may be empty; requests then fail with an auth error.
	APIKey string `yaml:"api_key"`

	ChatModel     string `yaml:"chat_model"`
	DeepModel     string `yaml:"deep_model"`
	GenerateModel string `yaml:"generate_model"`
	SuggestModel  string `yaml:"suggest_model"`

	ThinkingBudget int `yaml:"thinking_budget"`

	Timeout         time.Duration `yaml:"timeout"`
	GenerateTimeout time.Duration `yaml:"generate_timeout"`
	SuggestTimeout  time.Duration `yaml:"suggest_timeout"`
	MaxRetries      int           `yaml:"max_retries"`

	Breaker BreakerConfig `yaml:"breaker"`
	// SuggestRate is the sustained number of suggestion requests per second.
	SuggestRate  float64 `yaml:"suggest_rate"`
	SuggestBurst int     `yaml:"suggest_burst"`
}

func (c *AIConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
		validation.Field(&c.ChatModel, validation.Required),
		validation.Field(&c.DeepModel, validation.Required),
		validation.Field(&c.GenerateModel, validation.Required),
		validation.Field(&c.SuggestModel, validation.Required),
		validation.Field(&c.ThinkingBudget, validation.Min(0)),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.GenerateTimeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.SuggestTimeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.MaxRetries, validation.Min(0), validation.Max(10)),
		validation.Field(&c.SuggestRate, validation.Required, validation.Min(0.0)),
		validation.Field(&c.SuggestBurst, validation.Required, validation.Min(1)),
	); err != nil {
		return err
	}
	return c.Breaker.Validate()
}

// BreakerConfig configures the circuit breaker around the Gemini API.
type BreakerConfig struct {
	// MaxFailures consecutive failures open the circuit.
	MaxFailures uint32        `yaml:"max_failures"`
	OpenTimeout time.Duration `yaml:"open_timeout"`
}

func (c *BreakerConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxFailures, validation.Required),
		validation.Field(&c.OpenTimeout, validation.Required, validation.Min(time.Millisecond)),
	)
}

// CoachConfig configures the coach timers and conversation.
type CoachConfig struct {
	Debounce      time.Duration `yaml:"debounce"`
	Dismiss       time.Duration `yaml:"dismiss"`
	BannerTimeout time.Duration `yaml:"banner_timeout"`
	Greeting      string        `yaml:"greeting"`
	// Language the assistant is instructed to answer in.
	Language string `yaml:"language"`
}

func (c *CoachConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.Dismiss, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.BannerTimeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.Greeting, validation.Required),
		validation.Field(&c.Language, validation.Required),
	)
}

// DatabaseConfig is optional. An empty DSN disables the document archive.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// Enabled reports whether a database is configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.DSN != ""
}

// RendererConfig configures headless Chrome for PDF export.
type RendererConfig struct {
	// ChromePath overrides chromedp's browser discovery when set.
	ChromePath string        `yaml:"chrome_path"`
	Timeout    time.Duration `yaml:"timeout"`
}

func (c *RendererConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Second)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatText,
			HTTP: HTTPConfig{
				Port:            3000,
				ShutdownTimeout: 10 * time.Second,
				BodyLimit:       20 << 20,
			},
		},
		AI: AIConfig{
			BaseURL:         "https://generativelanguage.googleapis.com/v1beta",
			ChatModel:       "gemini-2.5-flash",
			DeepModel:       "gemini-2.5-pro",
			GenerateModel:   "gemini-2.5-pro",
			SuggestModel:    "gemini-2.5-flash",
			ThinkingBudget:  32768,
			Timeout:         60 * time.Second,
			GenerateTimeout: 5 * time.Minute,
			SuggestTimeout:  15 * time.Second,
			MaxRetries:      2,
			Breaker: BreakerConfig{
				MaxFailures: 5,
				OpenTimeout: 30 * time.Second,
			},
			SuggestRate:  0.5,
			SuggestBurst: 2,
		},
		Coach: CoachConfig{
			Debounce:      1000 * time.Millisecond,
			Dismiss:       8000 * time.Millisecond,
			BannerTimeout: 5 * time.Second,
			Greeting:      domain.DefaultGreeting,
			Language:      DefaultLanguage,
		},
		Renderer: RendererConfig{
			Timeout: 60 * time.Second,
		},
	}
}
