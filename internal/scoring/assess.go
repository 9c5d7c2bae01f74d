package scoring

import (
	"context"
	"fmt"
	"strings"

	"github.com/abhisek/viva/internal/coverage"
	"github.com/abhisek/viva/internal/llm"
)

// AssessInput is the state of an interview for the end check.
type AssessInput struct {
	Context        string
	Topics         []coverage.Topic
	Transcript     []string
	QuestionsAsked int
}

// Assessment is the end-check verdict.
type Assessment struct {
	Complete bool   `json:"complete"`
	Reason   string `json:"reason"`
}

// AssessInterview asks the backend whether an interview has gathered enough
// evidence to end. Below the configured minimum question count it does not
// call the backend; any failure means continue.
func (s *Scorer) AssessInterview(ctx context.Context, in AssessInput) Assessment {
	if in.QuestionsAsked < s.cfg.MinQuestionsBeforeAssessment || s.provider == nil {
		return Assessment{Reason: "continue"}
	}

	a, err := s.assess(ctx, in)
	if err != nil {
		s.log.Warn("interview assessment failed, continuing",
			"questions_asked", in.QuestionsAsked,
			"error", err,
		)
		return Assessment{Reason: "continue"}
	}
	return a
}

func (s *Scorer) assess(ctx context.Context, in AssessInput) (Assessment, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Subject matter:\n%s\n\n", in.Context)
	st := coverage.Summary(in.Topics)
	fmt.Fprintf(&b, "Questions asked: %d\nRequired topics remaining: %d of %d\n\nTopics:\n",
		in.QuestionsAsked, st.RequiredRemaining, st.Required)
	for _, t := range in.Topics {
		fmt.Fprintf(&b, "- %s: %s (%.0f)\n", t.Name, t.Status, t.CoverageScore)
	}
	b.WriteString("\nTranscript:\n")
	b.WriteString(strings.Join(in.Transcript, "\n"))

	resp, err := s.provider.Generate(llm.WithPurpose(ctx, llm.PurposeAssessment), llm.Request{
		System:    assessSystemPrompt,
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: b.String()}},
		Schema:    AssessSchema,
		MaxTokens: 256,
	})
	if err != nil {
		return Assessment{}, fmt.Errorf("assess interview: %w", err)
	}

	var out assessOutput
	if err := llm.Decode(resp, &out); err != nil {
		return Assessment{}, fmt.Errorf("decode assessment: %w", err)
	}
	return Assessment{Complete: out.Complete, Reason: strings.TrimSpace(out.Reason)}, nil
}

const assessSystemPrompt = `You supervise an oral examination. Decide whether the interviewer has heard enough to judge the candidate.
Set complete to true only when the required topics have been discussed with concrete detail, or further questions would add nothing. Keep the reason to one sentence.`
