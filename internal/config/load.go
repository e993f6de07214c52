package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// FileEnv names the environment variable holding an optional YAML config file.
const FileEnv = "CLOUDPOEM_CONFIG"

// envBindings maps config keys to the environment variables that set them.
var envBindings = map[string][]string{
	"server.port":                  {"PORT"},
	"server.env":                   {"NODE_ENV", "APP_ENV"},
	"server.log_level":             {"LOG_LEVEL"},
	"server.log_format":            {"LOG_FORMAT"},
	"server.cors_origin":           {"CORS_ORIGIN"},
	"server.rate_limit_per_minute": {"RATE_LIMIT_PER_MINUTE"},
	"server.http_timeout":          {"HTTP_TIMEOUT"},
	"server.trust_proxy":           {"TRUST_PROXY"},
	"llm.provider":                 {"LLM_PROVIDER"},
	"openai.api_key":               {"OPENAI_API_KEY"},
	"openai.base_url":              {"OPENAI_BASE_URL"},
	"openai.chat_model":            {"OPENAI_MODEL"},
	"openai.image_model":           {"OPENAI_IMAGE_MODEL"},
	"openai.image_size":            {"OPENAI_IMAGE_SIZE"},
	"openai.image_quality":         {"OPENAI_IMAGE_QUALITY"},
	"openai.image_style":           {"OPENAI_IMAGE_STYLE"},
	"openai.transcription_model":   {"OPENAI_TRANSCRIPTION_MODEL"},
	"gemini.api_key":               {"GEMINI_API_KEY"},
	"gemini.model":                 {"GEMINI_MODEL"},
	"anthropic.api_key":            {"ANTHROPIC_API_KEY"},
	"anthropic.model":              {"ANTHROPIC_MODEL"},
	"kling.access_key":             {"KLING_ACCESS_KEY"},
	"kling.secret_key":             {"KLING_SECRET_KEY"},
	"kling.api_url":                {"KLING_API_URL"},
	"kling.model":                  {"KLING_MODEL"},
	"kling.aspect_ratio":           {"KLING_ASPECT_RATIO"},
	"kling.poll_interval":          {"KLING_POLL_INTERVAL"},
	"kling.max_poll_attempts":      {"KLING_MAX_POLL_ATTEMPTS"},
	"kling.auth_mode":              {"KLING_AUTH_MODE"},
	"kling.resign_each_request":    {"KLING_RESIGN_EACH_REQUEST"},
	"ark.api_key":                  {"ARK_API_KEY"},
	"ark.base_url":                 {"ARK_BASE_URL"},
	"ark.model":                    {"ARK_MODEL"},
	"ark.size":                     {"ARK_IMAGE_SIZE"},
	"prompt.max_length":            {"PROMPT_MAX_LENGTH"},
	"prompt.styles":                {"PROMPT_STYLES"},
	"store.db_path":                {"DB_PATH"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.env", "development")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.cors_origin", "*")
	v.SetDefault("server.rate_limit_per_minute", 20)
	v.SetDefault("server.http_timeout", 60*time.Second)
	v.SetDefault("server.trust_proxy", false)

	v.SetDefault("llm.provider", "openai")

	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.chat_model", "gpt-3.5-turbo")
	v.SetDefault("openai.image_model", "dall-e-3")
	v.SetDefault("openai.image_size", "1024x1024")
	v.SetDefault("openai.image_quality", "standard")
	v.SetDefault("openai.image_style", "")
	v.SetDefault("openai.transcription_model", "whisper-1")

	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("anthropic.model", "claude-sonnet-4-20250514")

	v.SetDefault("kling.api_url", "https://api.klingai.com")
	v.SetDefault("kling.model", "kling-v1")
	v.SetDefault("kling.aspect_ratio", "1:1")
	v.SetDefault("kling.poll_interval", 5*time.Second)
	v.SetDefault("kling.max_poll_attempts", 60)
	v.SetDefault("kling.auth_mode", "hmac")
	v.SetDefault("kling.resign_each_request", false)

	v.SetDefault("ark.base_url", "https://ark.cn-beijing.volces.com/api/v3")
	v.SetDefault("ark.model", "doubao-seedream-3-0-t2i-250415")
	v.SetDefault("ark.size", "1024x1024")

	v.SetDefault("prompt.max_length", 2500)
	v.SetDefault("prompt.styles", []string{})

	v.SetDefault("store.db_path", "")
}

// Load reads configuration from defaults, an optional YAML file named by
// CLOUDPOEM_CONFIG, and environment variables, in increasing precedence.
// Missing provider credentials are not an error; they disable the provider.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path := os.Getenv(FileEnv); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", strings.Join(envs, ","), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Prompt.Styles = splitStyles(cfg.Prompt.Styles)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks structural constraints declared in the struct tags.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid config: %s failed on %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// splitStyles flattens comma separated entries coming from env or YAML.
func splitStyles(in []string) []string {
	var out []string
	for _, s := range in {
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
