package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

type openaiBackend struct {
	name   string
	client *openai.Client
}

// NewOpenAIProvider returns a Provider for the OpenAI chat completions API.
// BaseURL points it at any compatible endpoint.
func NewOpenAIProvider(cfg OpenAIConfig) (Provider, error) {
	return newOpenAICompatible("openai", cfg.APIKey, cfg.BaseURL, resolveModel(cfg.Model))
}

// NewOpenRouterProvider returns a Provider for OpenRouter. Model names are
// vendor-prefixed (e.g. "google/gemini-2.0-flash-exp") and passed through.
func NewOpenRouterProvider(cfg OpenRouterConfig) (Provider, error) {
	base := cfg.BaseURL
	if base == "" {
		base = defaultOpenRouterBaseURL
	}
	return newOpenAICompatible("openrouter", cfg.APIKey, base, cfg.Model)
}

func newOpenAICompatible(name, key, baseURL, model string) (Provider, error) {
	if key == "" {
		return nil, fmt.Errorf("%s API key is required", name)
	}
	conf := openai.DefaultConfig(key)
	if baseURL != "" {
		conf.BaseURL = baseURL
	}
	return &client{
		name:  name,
		model: model,
		b:     &openaiBackend{name: name, client: openai.NewClientWithConfig(conf)},
	}, nil
}

func (b *openaiBackend) complete(ctx context.Context, model string, req Request) (completion, error) {
	chat := openai.ChatCompletionRequest{
		Model:               model,
		MaxCompletionTokens: req.MaxTokens,
		Temperature:         float32(req.Temperature),
	}
	if req.System != "" {
		chat.Messages = append(chat.Messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	chat.Messages = append(chat.Messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	if req.Schema != nil {
		def, err := json.Marshal(req.Schema.Definition)
		if err != nil {
			return completion{}, fmt.Errorf("encode schema %q: %w", req.Schema.Name, err)
		}
		chat.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   req.Schema.Name,
				Schema: json.RawMessage(def),
				Strict: true,
			},
		}
	}

	resp, err := b.client.CreateChatCompletion(ctx, chat)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return completion{}, statusError(b.name, apiErr.HTTPStatusCode, nil, err)
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) {
			return completion{}, statusError(b.name, reqErr.HTTPStatusCode, nil, err)
		}
		return completion{}, &Error{Kind: KindUnavailable, Provider: b.name, Err: err}
	}
	if len(resp.Choices) == 0 {
		return completion{}, &Error{Kind: KindInvalidResponse, Provider: b.name, Err: fmt.Errorf("no choices in completion %s", resp.ID)}
	}

	choice := resp.Choices[0]
	out := completion{
		text:  choice.Message.Content,
		model: resp.Model,
		usage: Usage{InputTokens: resp.Usage.PromptTokens, OutputTokens: resp.Usage.CompletionTokens},
		stop:  StopEnd,
	}
	if choice.FinishReason == openai.FinishReasonLength {
		out.stop = StopMaxTokens
	}
	return out, nil
}
