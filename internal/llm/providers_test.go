package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"google.golang.org/genai"
)

func serve(t *testing.T, status int, header map[string]string, body any, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, seen)
		}
		for k, v := range header {
			w.Header().Set(k, v)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestAnthropic(t *testing.T, srv *httptest.Server) Provider {
	t.Helper()
	p, err := NewAnthropicProvider(AnthropicConfig{APIKey: "k", Model: "claude-haiku"},
		option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestAnthropic_Generate(t *testing.T) {
	var seen map[string]any
	srv := serve(t, 200, nil, map[string]any{
		"id": "msg_1", "type": "message", "role": "assistant",
		"content":     []map[string]any{{"type": "text", "text": `{"grade":"A"}`}},
		"model":       "claude-haiku-4-5-20251001",
		"stop_reason": "end_turn",
		"usage":       map[string]any{"input_tokens": 50, "output_tokens": 30},
	}, &seen)

	p := newTestAnthropic(t, srv)
	if p.ModelID() != "claude-haiku-4-5-20251001" {
		t.Errorf("ModelID = %q", p.ModelID())
	}
	resp, err := p.Generate(context.Background(), Request{System: "sys", Prompt: "grade it", Schema: testSchema, MaxTokens: 256})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Content) != `{"grade":"A"}` || resp.Usage.InputTokens != 50 || resp.Usage.OutputTokens != 30 {
		t.Errorf("resp = %+v", resp)
	}
	if seen["max_tokens"] != float64(256) {
		t.Errorf("max_tokens sent = %v", seen["max_tokens"])
	}
	msgs, _ := seen["messages"].([]any)
	if len(msgs) != 1 {
		t.Errorf("expected one message, got %v", seen["messages"])
	}
}

func TestAnthropic_Truncated(t *testing.T) {
	srv := serve(t, 200, nil, map[string]any{
		"id": "msg_2", "type": "message", "role": "assistant",
		"content":     []map[string]any{{"type": "text", "text": `{"grade":`}},
		"model":       "claude-haiku-4-5-20251001",
		"stop_reason": "max_tokens",
		"usage":       map[string]any{"input_tokens": 5, "output_tokens": 10},
	}, nil)

	_, err := newTestAnthropic(t, srv).Generate(context.Background(), Request{Prompt: "p", Schema: testSchema, MaxTokens: 10})
	if kind, _ := KindOf(err); kind != KindTruncated {
		t.Fatalf("err = %v, want truncated", err)
	}
}

func TestAnthropic_Errors(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorKind
	}{
		{429, KindRateLimited},
		{500, KindUnavailable},
		{401, KindRejected},
	}
	for _, tt := range tests {
		srv := serve(t, tt.status, map[string]string{"Retry-After": "3"}, map[string]any{
			"type": "error", "error": map[string]any{"type": "api_error", "message": "nope"},
		}, nil)
		_, err := newTestAnthropic(t, srv).Generate(context.Background(), Request{Prompt: "p", MaxTokens: 10})
		if kind, ok := KindOf(err); !ok || kind != tt.want {
			t.Errorf("status %d: err = %v, want %s", tt.status, err, tt.want)
		}
	}
}

func openaiBody(content, finish string) map[string]any {
	return map[string]any{
		"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": finish,
		}},
		"usage": map[string]any{"prompt_tokens": 20, "completion_tokens": 8, "total_tokens": 28},
	}
}

func TestOpenAI_Generate(t *testing.T) {
	var seen map[string]any
	srv := serve(t, 200, nil, openaiBody(`{"grade":"C"}`, "stop"), &seen)

	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "k", Model: "gpt-mini", BaseURL: srv.URL + "/v1"})
	if err != nil {
		t.Fatal(err)
	}
	resp, err := p.Generate(context.Background(), Request{System: "sys", Prompt: "grade", Schema: testSchema, MaxTokens: 64})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Content) != `{"grade":"C"}` || resp.Usage.Total() != 28 || resp.Model != "gpt-4o-mini" {
		t.Errorf("resp = %+v", resp)
	}
	if seen["model"] != "gpt-4o-mini" {
		t.Errorf("model sent = %v", seen["model"])
	}
	msgs, _ := seen["messages"].([]any)
	if len(msgs) != 2 {
		t.Errorf("expected system and user messages, got %d", len(msgs))
	}
	rf, _ := seen["response_format"].(map[string]any)
	if rf["type"] != "json_schema" {
		t.Errorf("response_format = %v", seen["response_format"])
	}
}

func TestOpenAI_Errors(t *testing.T) {
	for status, want := range map[int]ErrorKind{429: KindRateLimited, 502: KindUnavailable, 400: KindRejected} {
		srv := serve(t, status, nil, map[string]any{"error": map[string]any{"message": "no", "type": "x"}}, nil)
		p, _ := NewOpenAIProvider(OpenAIConfig{APIKey: "k", Model: "gpt-4o", BaseURL: srv.URL + "/v1"})
		_, err := p.Generate(context.Background(), Request{Prompt: "p"})
		if kind, ok := KindOf(err); !ok || kind != want {
			t.Errorf("status %d: err = %v, want %s", status, err, want)
		}
	}
}

func TestOpenAI_NoChoices(t *testing.T) {
	body := openaiBody("", "stop")
	body["choices"] = []any{}
	srv := serve(t, 200, nil, body, nil)
	p, _ := NewOpenAIProvider(OpenAIConfig{APIKey: "k", Model: "gpt-4o", BaseURL: srv.URL + "/v1"})
	if _, err := p.Generate(context.Background(), Request{Prompt: "p"}); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestOpenRouter_PassesModelThrough(t *testing.T) {
	var seen map[string]any
	srv := serve(t, 200, nil, openaiBody("hello", "stop"), &seen)

	p, err := NewOpenRouterProvider(OpenRouterConfig{APIKey: "k", Model: "google/gemini-2.0-flash-exp", BaseURL: srv.URL + "/v1"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Generate(context.Background(), Request{Prompt: "p"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen["model"] != "google/gemini-2.0-flash-exp" {
		t.Errorf("model sent = %v", seen["model"])
	}

	if _, err := NewOpenRouterProvider(OpenRouterConfig{Model: "x"}); err == nil {
		t.Error("expected error without key")
	}
}

func TestGeminiSchema(t *testing.T) {
	s := geminiSchema(testSchema.Definition)
	if s.Type != genai.TypeObject {
		t.Fatalf("Type = %v", s.Type)
	}
	grade := s.Properties["grade"]
	if grade == nil || grade.Type != genai.TypeString || len(grade.Enum) != 3 {
		t.Errorf("grade = %+v", grade)
	}
	notes := s.Properties["notes"]
	if notes == nil || notes.Type != genai.TypeArray || notes.Items == nil || notes.Items.Type != genai.TypeString {
		t.Errorf("notes = %+v", notes)
	}
	if len(s.Required) != 1 || s.Required[0] != "grade" {
		t.Errorf("Required = %v", s.Required)
	}
	if got := geminiSchema(map[string]any{"type": "mystery"}); got.Type != genai.TypeString {
		t.Errorf("unknown type should default to string, got %v", got.Type)
	}
}

func TestProvidersRequireKeys(t *testing.T) {
	if _, err := NewAnthropicProvider(AnthropicConfig{}); err == nil {
		t.Error("anthropic: expected error")
	}
	if _, err := NewOpenAIProvider(OpenAIConfig{}); err == nil {
		t.Error("openai: expected error")
	}
	if _, err := NewGeminiProvider(context.Background(), GeminiConfig{}); err == nil {
		t.Error("gemini: expected error")
	}
}
