package coverage

import (
	"context"
	"fmt"
	"strings"

	"github.com/abhisek/viva/internal/llm"
)

var refineSchema = &llm.Schema{
	Name:        "coverage-refine",
	Description: "Per-topic coverage scores for one interview answer",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"topics": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":        map[string]any{"type": "string"},
						"score":     map[string]any{"type": "number", "minimum": 0, "maximum": 100},
						"reasoning": map[string]any{"type": "string"},
					},
					"required":             []any{"id", "score", "reasoning"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"topics"},
		"additionalProperties": false,
	},
}

const refineSystemPrompt = `You grade how thoroughly an interview answer covers specific topics.
Return a coverage score from 0 to 100 for each listed topic, where 60 or more means the topic was explained with concrete, correct detail and 20-59 means it was only mentioned. Judge only the answer given. Respond with JSON.`

// LLMRefiner asks a generation backend to re-score topics.
type LLMRefiner struct {
	provider llm.Provider
}

func NewLLMRefiner(p llm.Provider) *LLMRefiner {
	return &LLMRefiner{provider: p}
}

func (r *LLMRefiner) Refine(ctx context.Context, response string, topics []Topic) (map[string]float64, error) {
	var b strings.Builder
	b.WriteString("Topics:\n")
	for _, t := range topics {
		fmt.Fprintf(&b, "- id=%s name=%q keywords=%s current=%.0f\n",
			t.ID, t.Name, strings.Join(t.Keywords, ", "), t.CoverageScore)
	}
	b.WriteString("\nAnswer:\n")
	b.WriteString(response)

	resp, err := r.provider.Generate(llm.WithPurpose(ctx, llm.PurposeCoverageRefine), llm.Request{
		System:    refineSystemPrompt,
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: b.String()}},
		Schema:    refineSchema,
		MaxTokens: 512,
	})
	if err != nil {
		return nil, fmt.Errorf("refine coverage: %w", err)
	}

	var out struct {
		Topics []struct {
			ID    string  `json:"id"`
			Score float64 `json:"score"`
		} `json:"topics"`
	}
	if err := llm.Decode(resp, &out); err != nil {
		return nil, fmt.Errorf("decode coverage refinement: %w", err)
	}

	scores := make(map[string]float64, len(out.Topics))
	for _, t := range out.Topics {
		scores[t.ID] = t.Score
	}
	return scores, nil
}
