package llm

import (
	"context"
	"strings"
	"testing"
)

func TestApplyEnv(t *testing.T) {
	t.Setenv("DEEPREADING_LLM_PROVIDER", "openrouter")
	t.Setenv("DEEPREADING_OPENROUTER_API_KEY", "sk-or")
	t.Setenv("DEEPREADING_OPENROUTER_MODEL", "meta-llama/llama-3-8b")
	t.Setenv("DEEPREADING_LLM_RPS", "0.5")

	cfg := ConfigFromEnv()
	if cfg.Provider != "openrouter" {
		t.Errorf("Provider = %q", cfg.Provider)
	}
	if cfg.OpenRouter.APIKey != "sk-or" || cfg.OpenRouter.Model != "meta-llama/llama-3-8b" {
		t.Errorf("OpenRouter = %+v", cfg.OpenRouter)
	}
	if cfg.RateLimit.RequestsPerSecond != 0.5 {
		t.Errorf("RequestsPerSecond = %v, want 0.5", cfg.RateLimit.RequestsPerSecond)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestApplyEnv_EveryVariable(t *testing.T) {
	for _, e := range envVars {
		t.Setenv("DEEPREADING_"+e.name, "")
	}
	base := ApplyEnv(DefaultConfig())
	for _, e := range envVars {
		t.Run(e.name, func(t *testing.T) {
			t.Setenv("DEEPREADING_"+e.name, "7")
			if got := ApplyEnv(DefaultConfig()); got == base {
				t.Errorf("DEEPREADING_%s had no effect", e.name)
			}
		})
	}
}

func TestApplyEnv_BadRPSIgnored(t *testing.T) {
	t.Setenv("DEEPREADING_LLM_RPS", "fast")
	cfg := ConfigFromEnv()
	if cfg.RateLimit.RequestsPerSecond != DefaultConfig().RateLimit.RequestsPerSecond {
		t.Errorf("RequestsPerSecond = %v", cfg.RateLimit.RequestsPerSecond)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"mock needs no key", Config{Provider: "mock"}, ""},
		{"no provider", Config{}, "no LLM provider"},
		{"anthropic without key", Config{Provider: "anthropic"}, "DEEPREADING_ANTHROPIC_API_KEY"},
		{"openai without key", Config{Provider: "openai"}, "DEEPREADING_OPENAI_API_KEY"},
		{"gemini without key", Config{Provider: "gemini"}, "DEEPREADING_GEMINI_API_KEY"},
		{"openrouter without key", Config{Provider: "openrouter"}, "DEEPREADING_OPENROUTER_API_KEY"},
		{"unknown", Config{Provider: "llama"}, "unknown LLM provider"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	for _, k := range standardKeys {
		t.Setenv(k.env, "")
	}
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")

	cfg, err := DefaultConfig().Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.Provider != "openai" || cfg.OpenAI.APIKey != "sk-openai" {
		t.Errorf("resolved %q with key %q, want openai first", cfg.Provider, cfg.OpenAI.APIKey)
	}
	if cfg.RateLimit != DefaultConfig().RateLimit {
		t.Error("Resolve should keep the other settings")
	}

	explicit := DefaultConfig()
	explicit.Provider = "anthropic"
	explicit.Anthropic.APIKey = "sk-explicit"
	cfg, err = explicit.Resolve()
	if err != nil || cfg.Anthropic.APIKey != "sk-explicit" {
		t.Errorf("explicit provider changed: %+v, %v", cfg.Anthropic, err)
	}

	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	if _, err := DefaultConfig().Resolve(); err == nil {
		t.Error("expected error with no keys")
	}
}

func TestNewProvider(t *testing.T) {
	ctx := context.Background()

	p, err := NewProvider(ctx, Config{Provider: "mock"}, nil, nil)
	if err != nil {
		t.Fatalf("mock: %v", err)
	}
	if p.ModelID() != "mock" {
		t.Errorf("ModelID = %q", p.ModelID())
	}

	cfg := DefaultConfig()
	cfg.Provider = "openrouter"
	cfg.OpenRouter.APIKey = "sk-or-test"
	p, err = NewProvider(ctx, cfg, nil, nil)
	if err != nil {
		t.Fatalf("openrouter: %v", err)
	}
	if _, ok := p.(*retrying); !ok {
		t.Errorf("expected retry wrapper outermost, got %T", p)
	}
	if p.ModelID() != cfg.OpenRouter.Model {
		t.Errorf("ModelID = %q, want %q", p.ModelID(), cfg.OpenRouter.Model)
	}

	if _, err := NewProvider(ctx, Config{Provider: "nope"}, nil, nil); err == nil {
		t.Error("expected error for unknown provider")
	}

	cfg.OpenRouter.APIKey = ""
	if _, err := NewProvider(ctx, cfg, nil, nil); err == nil {
		t.Error("expected error for missing key")
	}
}
