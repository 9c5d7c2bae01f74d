package questionbank

import (
	"fmt"
	"strings"

	"github.com/abhisek/viva/internal/coverage"
)

const initialSystemPrompt = `You are an experienced clinical educator preparing an oral (viva voce) examination.

Rules:
- Write open questions that make the candidate explain what they would do and why.
- Cover breadth: preparation, execution, troubleshooting and edge cases.
- Each question must stand on its own and be answerable aloud in under two minutes.
- Tag each question with a category, a few lowercase keywords an answer would contain, and the ids of the topics it probes.
- Only use topic ids from the provided list.
- Do not repeat any question from the "already asked" list.`

const followUpSystemPrompt = `You are an experienced clinical educator continuing an oral (viva voce) examination.

Rules:
- Write follow-up questions that build on what the candidate has said so far.
- Prioritize the uncovered topics listed; probe gaps and vague statements.
- Each question must stand on its own and be answerable aloud in under two minutes.
- Tag each question with a category, a few lowercase keywords an answer would contain, and the ids of the topics it probes.
- Only use topic ids from the provided list.
- Do not repeat any question from the "already asked" list.`

// BatchInput is the context for one batch request.
type BatchInput struct {
	// Context is the free-text description of the subject matter.
	Context string

	Topics []coverage.Topic

	// Pool is the current question pool, used for dedup and numbering.
	Pool []Question

	// Recent holds formatted conversation lines, oldest first, e.g.
	// "Interviewer: ...". Only follow-up batches use it.
	Recent []string
}

func buildUserMessage(in BatchInput, count int, followUp bool, cfg Config) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Subject matter:\n%s\n\n", strings.TrimSpace(in.Context))
	fmt.Fprintf(&b, "Write %d questions.\n\n", count)

	b.WriteString("Topics:\n")
	for _, t := range in.Topics {
		req := ""
		if t.IsRequired {
			req = " (required)"
		}
		fmt.Fprintf(&b, "- %s: %s%s [%s]\n", t.ID, t.Name, req, strings.Join(t.Keywords, ", "))
	}

	if followUp {
		b.WriteString("\nUncovered topics:\n")
		uncovered := coverage.Uncovered(in.Topics)
		if len(uncovered) == 0 {
			b.WriteString("None\n")
		}
		for _, t := range uncovered {
			fmt.Fprintf(&b, "- %s (coverage %.0f)\n", t.ID, t.CoverageScore)
		}

		b.WriteString("\nRecent conversation:\n")
		b.WriteString(numbered(in.Recent, cfg.MaxRecentTurns))
		b.WriteString("\n")
	}

	b.WriteString("\nAlready asked or planned:\n")
	b.WriteString(numbered(Texts(in.Pool), 0))
	return b.String()
}

// numbered formats the last max lines as a numbered list, or "None".
func numbered(lines []string, max int) string {
	if len(lines) == 0 {
		return "None"
	}
	if max > 0 && len(lines) > max {
		lines = lines[len(lines)-max:]
	}
	var b strings.Builder
	for i, l := range lines {
		fmt.Fprintf(&b, "%d. %s\n", i+1, l)
	}
	return strings.TrimRight(b.String(), "\n")
}
