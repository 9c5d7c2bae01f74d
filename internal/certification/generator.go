package certification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/abhisek/viva/internal/llm"
	"github.com/abhisek/viva/internal/logger"
)

var scenarioSchema = &llm.Schema{
	Name:        "scenario-gen",
	Description: "Clinical scenarios for a certification interview",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"scenarios": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"title":            map[string]any{"type": "string"},
						"description":      map[string]any{"type": "string"},
						"opening_question": map[string]any{"type": "string"},
					},
					"required":             []any{"title", "description", "opening_question"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"scenarios"},
		"additionalProperties": false,
	},
}

const scenarioSystemPrompt = `You write realistic clinical scenarios for an oral certification exam.

Rules:
- Each scenario describes a concrete patient situation in two or three sentences.
- The opening question asks the candidate what they would do, in their own words.
- Match the requested difficulty: beginner scenarios are routine, advanced ones involve complications or unusual anatomy.
- Spread the scenarios across the listed topics.`

// GenerateInput describes the module a certification covers.
type GenerateInput struct {
	Title      string
	Context    string
	TopicNames []string
	Difficulty Difficulty
	Count      int
}

// Generator produces scenarios through a generation backend.
type Generator struct {
	provider llm.Provider
	log      *logger.Logger
}

// NewGenerator creates a Generator. A nil provider always uses templates.
func NewGenerator(p llm.Provider, log *logger.Logger) *Generator {
	return &Generator{provider: p, log: logger.OrNop(log)}
}

// Scenarios returns in.Count scenarios. Backend failures fall back to
// templated scenarios built from the topic names.
func (g *Generator) Scenarios(ctx context.Context, in GenerateInput) []Scenario {
	if in.Count <= 0 {
		return nil
	}
	out, err := g.generate(ctx, in)
	if err != nil {
		g.log.Warn("scenario generation failed, using templates",
			"difficulty", in.Difficulty,
			"error", err,
		)
		return TemplateScenarios(in)
	}
	return out
}

func (g *Generator) generate(ctx context.Context, in GenerateInput) ([]Scenario, error) {
	if g.provider == nil {
		return nil, &llm.ErrProviderUnavailable{}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Module: %s\n%s\n\n", in.Title, in.Context)
	fmt.Fprintf(&b, "Difficulty: %s\n", in.Difficulty)
	fmt.Fprintf(&b, "Topics: %s\n", strings.Join(in.TopicNames, "; "))
	fmt.Fprintf(&b, "Write %d scenarios.", in.Count)

	resp, err := g.provider.Generate(llm.WithPurpose(ctx, llm.PurposeScenarioGen), llm.Request{
		System:      scenarioSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: b.String()}},
		Schema:      scenarioSchema,
		MaxTokens:   2048,
		Temperature: 0.8,
	})
	if err != nil {
		return nil, fmt.Errorf("generate scenarios: %w", err)
	}

	var raw struct {
		Scenarios []struct {
			Title           string `json:"title"`
			Description     string `json:"description"`
			OpeningQuestion string `json:"opening_question"`
		} `json:"scenarios"`
	}
	if err := llm.Decode(resp, &raw); err != nil {
		return nil, fmt.Errorf("decode scenarios: %w", err)
	}

	var out []Scenario
	for _, r := range raw.Scenarios {
		if strings.TrimSpace(r.Title) == "" || strings.TrimSpace(r.OpeningQuestion) == "" {
			continue
		}
		out = append(out, Scenario{
			ID:              uuid.NewString(),
			Title:           strings.TrimSpace(r.Title),
			Description:     strings.TrimSpace(r.Description),
			OpeningQuestion: strings.TrimSpace(r.OpeningQuestion),
			Status:          ScenarioPending,
		})
		if len(out) == in.Count {
			break
		}
	}
	if len(out) == 0 {
		return nil, &llm.ErrInvalidResponse{Content: resp.Content, Err: errors.New("no usable scenarios")}
	}
	return out, nil
}

// TemplateScenarios builds in.Count generic scenarios, cycling through the
// topic names.
func TemplateScenarios(in GenerateInput) []Scenario {
	subject := in.Title
	if subject == "" {
		subject = "the procedure"
	}
	out := make([]Scenario, 0, in.Count)
	for i := 0; i < in.Count; i++ {
		focus := "the overall approach"
		if len(in.TopicNames) > 0 {
			focus = in.TopicNames[i%len(in.TopicNames)]
		}
		out = append(out, Scenario{
			ID:          uuid.NewString(),
			Title:       fmt.Sprintf("Scenario %d: %s", i+1, focus),
			Description: fmt.Sprintf("A %s case of %s focusing on %s.", in.Difficulty, subject, strings.ToLower(focus)),
			OpeningQuestion: fmt.Sprintf("You are about to perform %s. Walk me through how you would handle %s.",
				subject, strings.ToLower(focus)),
			Status: ScenarioPending,
		})
	}
	return out
}
