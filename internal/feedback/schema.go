package feedback

import "github.com/deepteaching86-gif/deepreading/internal/llm"

// FeedbackSchema defines the JSON schema for result feedback.
var FeedbackSchema = &llm.Schema{
	Name:        "result-feedback",
	Description: "Encouraging feedback on an English proficiency test result",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"summary": map[string]any{
				"type":        "string",
				"description": "2-4 sentence overview of the learner's English level",
			},
			"strengths": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "1-3 specific strengths (5-12 words each)",
			},
			"next_steps": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "2-4 concrete study suggestions (5-15 words each)",
			},
		},
		"required":             []any{"summary", "strengths", "next_steps"},
		"additionalProperties": false,
	},
}
