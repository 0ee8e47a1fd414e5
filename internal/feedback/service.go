// Package feedback writes an optional narrative for a finalized test result.
package feedback

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/deepteaching86-gif/deepreading/internal/llm"
)

// Purpose tags feedback requests in the LLM event log.
const Purpose = "result-feedback"

// Service generates result feedback through an LLM provider.
type Service struct {
	provider llm.Provider
	cfg      Config
}

// NewService creates a feedback service.
func NewService(provider llm.Provider, cfg Config) *Service {
	return &Service{provider: provider, cfg: cfg}
}

// Generate asks the provider for feedback on in.
func (s *Service) Generate(ctx context.Context, in Input) (*Feedback, error) {
	ctx = llm.WithPurpose(ctx, Purpose)

	req := llm.Request{
		System:      systemPrompt,
		Prompt:      buildUserMessage(in),
		Schema:      FeedbackSchema,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	}

	resp, err := s.provider.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("feedback generation: %w", err)
	}

	var out Feedback
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return nil, fmt.Errorf("parse feedback response: %w", err)
	}
	return &out, nil
}
