package questionbank

import (
	"fmt"
	"strings"
)

var fallbackTemplates = []struct {
	text     string
	category string
}{
	{"Walk me through how you prepare before starting.", "preparation"},
	{"Describe the key steps you follow, in order.", "execution"},
	{"What is the most common problem you run into, and how do you handle it?", "troubleshooting"},
	{"How would you change your approach for an unusual or difficult case?", "edge-cases"},
	{"How do you confirm that the outcome was successful?", "execution"},
	{"What would make you stop and ask for help?", "troubleshooting"},
	{"What do you tell the team or patient afterwards?", "follow-up"},
}

// FallbackQuestions returns n generic placeholder questions. They are not
// tied to any topic, so selection falls back to priority order.
func FallbackQuestions(n int) []Question {
	if n > len(fallbackTemplates) {
		n = len(fallbackTemplates)
	}
	out := make([]Question, 0, n)
	for _, t := range fallbackTemplates[:max(n, 0)] {
		out = append(out, Question{
			Text:     t.text,
			Category: t.category,
			Source:   SourceFallback,
		})
	}
	return out
}

// Opening returns the fixed first question of an interview.
func Opening(title, context string) Question {
	subject := strings.TrimSpace(title)
	if subject == "" {
		subject = firstSentence(context)
	}
	if subject == "" {
		subject = "this procedure"
	}
	return Question{
		ID:       "opening",
		Text:     fmt.Sprintf("Tell me about %s. Start wherever feels natural and walk me through it.", subject),
		Category: "opening",
		Priority: -1,
		Used:     true,
		Source:   SourceOpening,
	}
}

func firstSentence(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, ".:\n"); i > 0 {
		s = s[:i]
	}
	return s
}
