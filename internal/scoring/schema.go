package scoring

import "github.com/abhisek/viva/internal/llm"

// Competency names in the rubric.
const (
	Accuracy             = "accuracy"
	PracticalApplication = "practical_application"
	Communication        = "communication"
	ProblemSolving       = "problem_solving"
	Completeness         = "completeness"
)

// Competencies lists the rubric dimensions in display order.
var Competencies = []string{Accuracy, PracticalApplication, Communication, ProblemSolving, Completeness}

// ScoreSchema carries no numeric ranges; out-of-range values are clamped
// after decoding.
var ScoreSchema = &llm.Schema{
	Name:        "response-score",
	Description: "Rubric score for one oral answer",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"score": map[string]any{
				"type":        "number",
				"description": "Overall score from 1 to 10",
			},
			"competencies": map[string]any{
				"type": "object",
				"properties": map[string]any{
					Accuracy:             map[string]any{"type": "number"},
					PracticalApplication: map[string]any{"type": "number"},
					Communication:        map[string]any{"type": "number"},
					ProblemSolving:       map[string]any{"type": "number"},
					Completeness:         map[string]any{"type": "number"},
				},
				"required":             []any{Accuracy, PracticalApplication, Communication, ProblemSolving, Completeness},
				"additionalProperties": false,
			},
			"feedback": map[string]any{
				"type":        "string",
				"description": "Two or three sentences of feedback addressed to the candidate",
			},
		},
		"required":             []any{"score", "competencies", "feedback"},
		"additionalProperties": false,
	},
}

// AssessSchema is the structured output for the interview end check.
var AssessSchema = &llm.Schema{
	Name:        "interview-assess",
	Description: "Whether an interview has gathered enough evidence to end",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"complete": map[string]any{"type": "boolean"},
			"reason":   map[string]any{"type": "string"},
		},
		"required":             []any{"complete", "reason"},
		"additionalProperties": false,
	},
}

type scoreOutput struct {
	Score        float64            `json:"score"`
	Competencies map[string]float64 `json:"competencies"`
	Feedback     string             `json:"feedback"`
}

type assessOutput struct {
	Complete bool   `json:"complete"`
	Reason   string `json:"reason"`
}
