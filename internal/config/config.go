// Package config provides centralized configuration for the cloudpoem server.
// Values are loaded once at startup (see Load) and passed by value into each
// component constructor.
package config

import (
	"strings"
	"time"
)

// Config holds all server configuration values.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Kling     KlingConfig     `mapstructure:"kling"`
	Ark       ArkConfig       `mapstructure:"ark"`
	Prompt    PromptConfig    `mapstructure:"prompt"`
	Store     StoreConfig     `mapstructure:"store"`
}

// ServerConfig contains HTTP server and logging settings.
type ServerConfig struct {
	// Port is the HTTP server listen port.
	Port int `mapstructure:"port" validate:"gt=0,lt=65536"`

	// Env is the deployment environment name ("development", "production").
	Env string `mapstructure:"env"`

	LogLevel  string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" validate:"oneof=json text"`

	// CORSOrigin is the allowed CORS origin. Defaults to "*".
	CORSOrigin string `mapstructure:"cors_origin"`

	// RateLimitPerMinute caps generation requests per client IP. Zero disables the limit.
	RateLimitPerMinute int `mapstructure:"rate_limit_per_minute" validate:"gte=0"`

	// TrustProxy honors X-Forwarded-For / X-Real-IP for the client address.
	// Enable only behind a reverse proxy that overwrites those headers.
	TrustProxy bool `mapstructure:"trust_proxy"`

	// HTTPTimeout is the timeout for single outgoing provider requests.
	HTTPTimeout time.Duration `mapstructure:"http_timeout" validate:"gt=0"`
}

// LLMConfig selects the backend used for poem generation and translation.
type LLMConfig struct {
	// Provider is one of "openai", "gemini", "claude", "stub".
	Provider string `mapstructure:"provider" validate:"oneof=openai gemini claude stub"`
}

// OpenAIConfig covers chat completions, image generation and transcription.
type OpenAIConfig struct {
	APIKey             string `mapstructure:"api_key"`
	BaseURL            string `mapstructure:"base_url" validate:"required,url"`
	ChatModel          string `mapstructure:"chat_model" validate:"required"`
	ImageModel         string `mapstructure:"image_model" validate:"required"`
	ImageSize          string `mapstructure:"image_size"`
	ImageQuality       string `mapstructure:"image_quality"`
	ImageStyle         string `mapstructure:"image_style"`
	TranscriptionModel string `mapstructure:"transcription_model"`
}

// Configured reports whether a usable API key is present.
func (c OpenAIConfig) Configured() bool { return !IsPlaceholder(c.APIKey) }

// GeminiConfig configures the Google Gemini LLM backend.
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// Configured reports whether a usable API key is present.
func (c GeminiConfig) Configured() bool { return !IsPlaceholder(c.APIKey) }

// AnthropicConfig configures the Anthropic Claude LLM backend.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// Configured reports whether a usable API key is present.
func (c AnthropicConfig) Configured() bool { return !IsPlaceholder(c.APIKey) }

// KlingConfig configures the asynchronous, signed image provider.
type KlingConfig struct {
	AccessKey   string `mapstructure:"access_key"`
	SecretKey   string `mapstructure:"secret_key"`
	APIURL      string `mapstructure:"api_url" validate:"required,url"`
	Model       string `mapstructure:"model" validate:"required"`
	AspectRatio string `mapstructure:"aspect_ratio" validate:"required"`

	PollInterval    time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	MaxPollAttempts int           `mapstructure:"max_poll_attempts" validate:"gt=0"`

	// AuthMode is "hmac" (X-Timestamp/X-Signature headers) or "jwt".
	AuthMode string `mapstructure:"auth_mode" validate:"oneof=hmac jwt"`

	// ResignEachRequest computes a fresh timestamp/signature for every poll
	// instead of reusing the submission pair.
	ResignEachRequest bool `mapstructure:"resign_each_request"`
}

// Configured reports whether both halves of the key pair are present.
func (c KlingConfig) Configured() bool {
	return !IsPlaceholder(c.AccessKey) && !IsPlaceholder(c.SecretKey)
}

// ArkConfig configures the volcengine Ark image backend.
type ArkConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
	Size    string `mapstructure:"size"`
}

// Configured reports whether a usable API key is present.
func (c ArkConfig) Configured() bool { return !IsPlaceholder(c.APIKey) }

// PromptConfig controls image prompt assembly.
type PromptConfig struct {
	// MaxLength is the advisory character cap for image prompts.
	MaxLength int `mapstructure:"max_length" validate:"gt=0"`

	// Styles lists style keyword groups appended to every image prompt.
	Styles []string `mapstructure:"styles"`
}

// StoreConfig configures the generation journal.
type StoreConfig struct {
	// DBPath is the SQLite file path. Empty disables the journal.
	DBPath string `mapstructure:"db_path"`
}

// LLMConfigured reports whether the selected LLM backend has credentials.
func (c Config) LLMConfigured() bool {
	switch c.LLM.Provider {
	case "stub":
		return true
	case "gemini":
		return c.Gemini.Configured()
	case "claude":
		return c.Anthropic.Configured()
	default:
		return c.OpenAI.Configured()
	}
}

// placeholderValues are literal values shipped in sample .env files.
var placeholderValues = map[string]bool{
	"changeme":    true,
	"placeholder": true,
	"xxx":         true,
	"todo":        true,
}

// IsPlaceholder reports whether v is empty or a sample value such as
// "your_openai_api_key_here".
func IsPlaceholder(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return true
	}
	if placeholderValues[v] {
		return true
	}
	return strings.HasPrefix(v, "your_") && strings.HasSuffix(v, "_here")
}
