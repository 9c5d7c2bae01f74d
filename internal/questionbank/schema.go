package questionbank

import "github.com/abhisek/viva/internal/llm"

// BatchSchema is the structured output for a question batch.
var BatchSchema = &llm.Schema{
	Name:        "question-batch",
	Description: "A batch of candidate interview questions",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"question": map[string]any{
							"type":        "string",
							"description": "The question to ask, one or two sentences",
						},
						"category": map[string]any{
							"type":        "string",
							"description": "preparation, execution, troubleshooting, edge-cases or follow-up",
						},
						"keywords": map[string]any{
							"type":  "array",
							"items": map[string]any{"type": "string"},
						},
						"related_topics": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "string"},
							"description": "Topic ids this question probes",
						},
					},
					"required":             []any{"question", "category", "keywords", "related_topics"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"questions"},
		"additionalProperties": false,
	},
}

type batchOutput struct {
	Questions []struct {
		Question      string   `json:"question"`
		Category      string   `json:"category"`
		Keywords      []string `json:"keywords"`
		RelatedTopics []string `json:"related_topics"`
	} `json:"questions"`
}
