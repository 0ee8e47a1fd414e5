package llm

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all LLM provider configuration.
type Config struct {
	// Provider selects which LLM provider to use.
	// Values: "anthropic", "openai", "gemini", "openrouter", "mock".
	// Empty picks the first provider with a standard API key variable set.
	Provider string `yaml:"provider"`

	Anthropic  AnthropicConfig  `yaml:"anthropic"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	OpenRouter OpenRouterConfig `yaml:"openrouter"`
	Retry      RetryConfig      `yaml:"retry"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`

	// Timeout is the maximum duration for a single LLM request
	// (including retries). Default: 30s.
	Timeout time.Duration `yaml:"timeout"`
}

// AnthropicConfig holds Anthropic-specific configuration.
type AnthropicConfig struct {
	APIKey string `yaml:"-"`
	Model  string `yaml:"model"` // Default: "claude-haiku"
}

// OpenAIConfig holds OpenAI-specific configuration.
type OpenAIConfig struct {
	APIKey  string `yaml:"-"`
	Model   string `yaml:"model"`    // Default: "gpt-mini"
	BaseURL string `yaml:"base_url"` // Optional. Override for compatible APIs.
}

// GeminiConfig holds Gemini-specific configuration.
type GeminiConfig struct {
	APIKey  string `yaml:"-"`
	Model   string `yaml:"model"`    // Default: "gemini-flash"
	BaseURL string `yaml:"base_url"` // Optional. Override for proxies.
}

// OpenRouterConfig holds OpenRouter-specific configuration.
type OpenRouterConfig struct {
	APIKey  string `yaml:"-"`
	Model   string `yaml:"model"`    // Default: "google/gemini-2.0-flash-exp"
	BaseURL string `yaml:"base_url"` // Default: "https://openrouter.ai/api/v1"
}

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	InitialWait time.Duration `yaml:"initial_wait"`
	MaxWait     time.Duration `yaml:"max_wait"`
	Multiplier  float64       `yaml:"multiplier"`
}

// RateLimitConfig paces outgoing requests. RequestsPerSecond <= 0
// disables pacing.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Anthropic: AnthropicConfig{
			Model: "claude-haiku",
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-mini",
		},
		Gemini: GeminiConfig{
			Model: "gemini-flash",
		},
		OpenRouter: OpenRouterConfig{
			Model: "google/gemini-2.0-flash-exp",
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: 1 * time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 2,
			Burst:             1,
		},
		Timeout: 30 * time.Second,
	}
}

// ConfigFromEnv builds a Config from environment variables, falling back
// to defaults for unset values.
func ConfigFromEnv() Config {
	return ApplyEnv(DefaultConfig())
}

// envVars maps DEEPREADING_* variables onto Config fields. Empty values
// are ignored.
var envVars = []struct {
	name string
	set  func(*Config, string)
}{
	{"LLM_PROVIDER", func(c *Config, v string) { c.Provider = v }},
	{"ANTHROPIC_API_KEY", func(c *Config, v string) { c.Anthropic.APIKey = v }},
	{"ANTHROPIC_MODEL", func(c *Config, v string) { c.Anthropic.Model = v }},
	{"OPENAI_API_KEY", func(c *Config, v string) { c.OpenAI.APIKey = v }},
	{"OPENAI_MODEL", func(c *Config, v string) { c.OpenAI.Model = v }},
	{"OPENAI_BASE_URL", func(c *Config, v string) { c.OpenAI.BaseURL = v }},
	{"GEMINI_API_KEY", func(c *Config, v string) { c.Gemini.APIKey = v }},
	{"GEMINI_MODEL", func(c *Config, v string) { c.Gemini.Model = v }},
	{"GEMINI_BASE_URL", func(c *Config, v string) { c.Gemini.BaseURL = v }},
	{"OPENROUTER_API_KEY", func(c *Config, v string) { c.OpenRouter.APIKey = v }},
	{"OPENROUTER_MODEL", func(c *Config, v string) { c.OpenRouter.Model = v }},
	{"OPENROUTER_BASE_URL", func(c *Config, v string) { c.OpenRouter.BaseURL = v }},
	{"LLM_RPS", func(c *Config, v string) {
		if rps, err := strconv.ParseFloat(v, 64); err == nil {
			c.RateLimit.RequestsPerSecond = rps
		}
	}},
}

// ApplyEnv overlays DEEPREADING_* environment variables on cfg.
func ApplyEnv(cfg Config) Config {
	for _, e := range envVars {
		if v := os.Getenv("DEEPREADING_" + e.name); v != "" {
			e.set(&cfg, v)
		}
	}
	return cfg
}

// standardKeys are the vendor key variables checked when no provider is set,
// in priority order.
var standardKeys = []struct {
	provider string
	env      string
	set      func(*Config, string)
}{
	{"gemini", "GEMINI_API_KEY", func(c *Config, k string) { c.Gemini.APIKey = k }},
	{"openai", "OPENAI_API_KEY", func(c *Config, k string) { c.OpenAI.APIKey = k }},
	{"anthropic", "ANTHROPIC_API_KEY", func(c *Config, k string) { c.Anthropic.APIKey = k }},
	{"openrouter", "OPENROUTER_API_KEY", func(c *Config, k string) { c.OpenRouter.APIKey = k }},
}

// Resolve fills in the provider from standard API key variables when none
// is configured, then validates the result.
func (c Config) Resolve() (Config, error) {
	if c.Provider == "" {
		for _, k := range standardKeys {
			if v := os.Getenv(k.env); v != "" {
				c.Provider = k.provider
				k.set(&c, v)
				break
			}
		}
	}
	return c, c.Validate()
}

// apiKey returns the key configured for provider and whether the provider
// is known.
func (c Config) apiKey(provider string) (string, bool) {
	switch provider {
	case "anthropic":
		return c.Anthropic.APIKey, true
	case "openai":
		return c.OpenAI.APIKey, true
	case "gemini":
		return c.Gemini.APIKey, true
	case "openrouter":
		return c.OpenRouter.APIKey, true
	}
	return "", false
}

// Validate checks that the selected provider has its required API key set.
func (c Config) Validate() error {
	switch c.Provider {
	case "":
		return errors.New("no LLM provider configured: set DEEPREADING_LLM_PROVIDER and an API key")
	case "mock":
		return nil
	}
	key, known := c.apiKey(c.Provider)
	if !known {
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	if key == "" {
		return fmt.Errorf("DEEPREADING_%s_API_KEY is required for the %s provider", strings.ToUpper(c.Provider), c.Provider)
	}
	return nil
}
