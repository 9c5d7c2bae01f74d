package session

import (
	"github.com/abhisek/viva/internal/coverage"
	"github.com/abhisek/viva/internal/questionbank"
)

// Progress is the caller-facing summary of a session.
type Progress struct {
	SessionID        string         `json:"session_id"`
	Status           Status         `json:"status"`
	Completed        bool           `json:"completed"`
	CompletionReason string         `json:"completion_reason,omitempty"`
	QuestionsAsked   int            `json:"questions_asked"`
	UnusedQuestions  int            `json:"unused_questions"`
	Topics           coverage.Stats `json:"topics"`

	// Certification fields are set only for certification sessions.
	Scenario      int     `json:"scenario,omitempty"`
	ScenarioCount int     `json:"scenario_count,omitempty"`
	OverallScore  float64 `json:"overall_score,omitempty"`
	Certification string  `json:"certification_status,omitempty"`
}

// BuildProgress summarizes s.
func BuildProgress(s *Session) Progress {
	p := Progress{
		SessionID:        s.ID,
		Status:           s.Status,
		Completed:        s.InterviewCompleted,
		CompletionReason: s.CompletionReason,
		QuestionsAsked:   s.QuestionsAsked,
		UnusedQuestions:  questionbank.Unused(s.QuestionPool),
		Topics:           coverage.Summary(s.Topics),
	}
	if a := s.Certification; a != nil {
		p.ScenarioCount = len(a.Scenarios)
		p.Scenario = min(a.CurrentScenario+1, len(a.Scenarios))
		p.OverallScore = a.OverallScore
		p.Certification = string(a.Status)
	}
	return p
}
