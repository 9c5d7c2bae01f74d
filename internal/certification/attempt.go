// Package certification models a scored, multi-scenario certification
// attempt.
package certification

import (
	"errors"
	"time"
)

// ErrNoActiveScenario is returned when an attempt has no scenario in
// progress.
var ErrNoActiveScenario = errors.New("certification: no active scenario")

// Status is the overall state of an attempt.
type Status string

const (
	StatusInProgress Status = "VOICE_INTERVIEW_IN_PROGRESS"
	StatusPassed     Status = "PASSED"
	StatusFailed     Status = "FAILED"
)

// ScenarioStatus is the state of one scenario.
type ScenarioStatus string

const (
	ScenarioPending    ScenarioStatus = "PENDING"
	ScenarioInProgress ScenarioStatus = "IN_PROGRESS"
	ScenarioScored     ScenarioStatus = "SCORED"
)

// Speaker roles within a scenario conversation.
const (
	Interviewer = "interviewer"
	Respondent  = "respondent"
)

// DefaultPassingScore is the overall score needed to pass.
const DefaultPassingScore = 70.0

// Exchange is one line of a scenario conversation.
type Exchange struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// ResponseRecord is one scored answer. Records are appended, never edited.
type ResponseRecord struct {
	Question     string             `json:"question"`
	Response     string             `json:"response"`
	Score        float64            `json:"score"`
	Competencies map[string]float64 `json:"competencies"`
	Feedback     string             `json:"feedback"`
	Fallback     bool               `json:"fallback,omitempty"`
	Timestamp    time.Time          `json:"timestamp"`
}

// Scenario is one situational assessment unit.
type Scenario struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	OpeningQuestion string           `json:"opening_question"`
	Status          ScenarioStatus   `json:"status"`
	Conversation    []Exchange       `json:"conversation"`
	RunningScore    float64          `json:"running_score"`
	QuestionCount   int              `json:"question_count"`
	Responses       []ResponseRecord `json:"responses"`
}

// Say appends a line to the scenario conversation.
func (s *Scenario) Say(role, text string, at time.Time) {
	s.Conversation = append(s.Conversation, Exchange{Role: role, Text: text, Timestamp: at})
}

// Attempt groups the scenarios of one certification.
type Attempt struct {
	Scenarios       []Scenario `json:"scenarios"`
	CurrentScenario int        `json:"current_scenario"`
	Difficulty      Difficulty `json:"difficulty"`
	OverallScore    float64    `json:"overall_score"`
	Status          Status     `json:"status"`
	PassingScore    float64    `json:"passing_score"`
}

// NewAttempt starts an attempt with the first scenario in progress. A
// non-positive passingScore uses DefaultPassingScore.
func NewAttempt(scenarios []Scenario, difficulty Difficulty, passingScore float64) *Attempt {
	if passingScore <= 0 {
		passingScore = DefaultPassingScore
	}
	a := &Attempt{
		Scenarios:    scenarios,
		Difficulty:   difficulty,
		Status:       StatusInProgress,
		PassingScore: passingScore,
	}
	for i := range a.Scenarios {
		a.Scenarios[i].Status = ScenarioPending
	}
	if len(a.Scenarios) > 0 {
		a.Scenarios[0].Status = ScenarioInProgress
	}
	return a
}

// Current returns the scenario in progress, or nil.
func (a *Attempt) Current() *Scenario {
	if a.CurrentScenario < 0 || a.CurrentScenario >= len(a.Scenarios) {
		return nil
	}
	s := &a.Scenarios[a.CurrentScenario]
	if s.Status != ScenarioInProgress {
		return nil
	}
	return s
}

// RecordResponse appends rec to the current scenario and updates its
// running score, the mean of all its response scores.
func (a *Attempt) RecordResponse(rec ResponseRecord) error {
	s := a.Current()
	if s == nil {
		return ErrNoActiveScenario
	}
	s.Responses = append(s.Responses, rec)
	s.QuestionCount = len(s.Responses)

	var sum float64
	for _, r := range s.Responses {
		sum += r.Score
	}
	s.RunningScore = sum / float64(len(s.Responses))
	return nil
}

// ScoreScenario closes the current scenario.
func (a *Attempt) ScoreScenario() error {
	s := a.Current()
	if s == nil {
		return ErrNoActiveScenario
	}
	s.Status = ScenarioScored
	return nil
}

// Advance starts the next pending scenario. It reports false when none is
// left.
func (a *Attempt) Advance() bool {
	for i := a.CurrentScenario + 1; i < len(a.Scenarios); i++ {
		if a.Scenarios[i].Status == ScenarioPending {
			a.CurrentScenario = i
			a.Scenarios[i].Status = ScenarioInProgress
			return true
		}
	}
	a.CurrentScenario = len(a.Scenarios)
	return false
}

// Finalize sets the overall score to the mean scenario running score on a
// 0-100 scale and decides pass or fail. Scenarios never answered count as
// zero. Calling it again recomputes the same result.
func (a *Attempt) Finalize() {
	if len(a.Scenarios) == 0 {
		a.OverallScore = 0
		a.Status = StatusFailed
		return
	}
	var sum float64
	for i := range a.Scenarios {
		s := &a.Scenarios[i]
		if s.Status == ScenarioInProgress {
			s.Status = ScenarioScored
		}
		sum += s.RunningScore
	}
	a.OverallScore = sum / float64(len(a.Scenarios)) * 10
	if a.OverallScore >= a.PassingScore {
		a.Status = StatusPassed
	} else {
		a.Status = StatusFailed
	}
}

// Done reports whether the attempt has a final status.
func (a *Attempt) Done() bool {
	return a.Status == StatusPassed || a.Status == StatusFailed
}
