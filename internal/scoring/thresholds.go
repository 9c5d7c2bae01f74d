// Package scoring grades free-text answers against a rubric and decides
// when a scenario has seen enough.
package scoring

// Thresholds is the progressive completion rule. Required[i] is the score
// an answer to question i+1 needs to end the scenario; indexes past the end
// reuse the last entry.
type Thresholds struct {
	Required                []float64 `koanf:"required"`
	MaxQuestionsPerScenario int       `koanf:"max_questions_per_scenario"`
}

// DefaultThresholds returns 9.5, 8.5, 7.0, 6.0 then 5.0 with a cap of six
// questions.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Required:                []float64{9.5, 8.5, 7.0, 6.0, 5.0},
		MaxQuestionsPerScenario: 6,
	}
}

// RequiredScore returns the score needed at the 1-based questionIndex.
func (t Thresholds) RequiredScore(questionIndex int) float64 {
	if len(t.Required) == 0 {
		return 0
	}
	i := questionIndex - 1
	if i < 0 {
		i = 0
	}
	if i >= len(t.Required) {
		i = len(t.Required) - 1
	}
	return t.Required[i]
}

// ShouldComplete reports whether an answer scoring score at the 1-based
// questionIndex ends the scenario. Reaching MaxQuestionsPerScenario always
// does.
func (t Thresholds) ShouldComplete(questionIndex int, score float64) bool {
	if t.MaxQuestionsPerScenario > 0 && questionIndex >= t.MaxQuestionsPerScenario {
		return true
	}
	return score >= t.RequiredScore(questionIndex)
}
