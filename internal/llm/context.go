package llm

import "context"

type contextKey string

const purposeKey contextKey = "llm_purpose"

// Purpose labels attached to every backend call. They select the timeout
// budget and group usage in the event log.
const (
	PurposeQuestionBatch  = "question-batch"
	PurposeResponseScore  = "response-score"
	PurposeCoverageRefine = "coverage-refine"
	PurposeScenarioGen    = "scenario-gen"
	PurposeAssessment     = "interview-assess"
)

// WithPurpose attaches a purpose label to the context.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey, purpose)
}

// PurposeFrom returns the purpose label, or "unknown".
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey).(string); ok && v != "" {
		return v
	}
	return "unknown"
}
