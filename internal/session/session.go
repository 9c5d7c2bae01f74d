// Package session holds the interview session model and its typed store.
package session

import (
	"fmt"
	"time"

	"github.com/abhisek/viva/internal/certification"
	"github.com/abhisek/viva/internal/coverage"
	"github.com/abhisek/viva/internal/questionbank"
)

// Kind distinguishes plain interviews from certification attempts.
type Kind string

const (
	KindInterview     Kind = "interview"
	KindCertification Kind = "certification"
)

// Status is the session lifecycle state. COMPLETED is terminal.
type Status string

const (
	StatusNotStarted Status = "NOT_STARTED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

// Role tags a conversation turn.
type Role string

const (
	RoleInterviewer Role = certification.Interviewer
	RoleRespondent  Role = certification.Respondent
)

// Completion reasons.
const (
	ReasonNoQuestions  = "no-question-available"
	ReasonAssessment   = "assessment-complete"
	ReasonMaxQuestions = "max-questions"
	ReasonForced       = "forced"
	ReasonScenarios    = "scenarios-complete"
	ReasonSuperseded   = "superseded"
)

// Turn is one line of the conversation. History is append-only.
type Turn struct {
	Role       Role      `json:"role"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
	QuestionID string    `json:"question_id,omitempty"`
}

// Session is one interview or certification attempt.
type Session struct {
	ID             string `json:"id"`
	SubjectID      string `json:"subject_id"`
	ModuleID       string `json:"module_id"`
	Kind           Kind   `json:"kind"`
	Title          string `json:"title,omitempty"`
	InitialContext string `json:"initial_context"`

	History      []Turn                  `json:"history"`
	Topics       []coverage.Topic        `json:"topics"`
	QuestionPool []questionbank.Question `json:"question_pool"`

	// CurrentQuestion is the question awaiting an answer.
	CurrentQuestion *questionbank.Question `json:"current_question,omitempty"`

	QuestionsAsked     int    `json:"questions_asked"`
	InterviewCompleted bool   `json:"interview_completed"`
	Status             Status `json:"status"`
	CompletionReason   string `json:"completion_reason,omitempty"`

	// SupersedesID links a repeat attempt to the session it replaces.
	SupersedesID string `json:"supersedes_id,omitempty"`

	Certification *certification.Attempt `json:"certification,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Version is managed by the store.
	Version int64 `json:"-"`
}

// Ask records an interviewer turn and makes q the current question.
func (s *Session) Ask(q questionbank.Question, at time.Time) {
	s.History = append(s.History, Turn{Role: RoleInterviewer, Text: q.Text, Timestamp: at, QuestionID: q.ID})
	s.CurrentQuestion = &q
}

// Answer records a respondent turn and clears the current question.
func (s *Session) Answer(text string, at time.Time) {
	qid := ""
	if s.CurrentQuestion != nil {
		qid = s.CurrentQuestion.ID
	}
	s.History = append(s.History, Turn{Role: RoleRespondent, Text: text, Timestamp: at, QuestionID: qid})
	s.CurrentQuestion = nil
}

// Complete marks the session finished. It is a no-op on a completed
// session.
func (s *Session) Complete(reason string, at time.Time) {
	if s.InterviewCompleted {
		return
	}
	s.InterviewCompleted = true
	s.Status = StatusCompleted
	s.CompletionReason = reason
	s.CurrentQuestion = nil
	s.CompletedAt = &at
	if s.Certification != nil {
		s.Certification.Finalize()
	}
}

// Transcript formats the last n turns as "Interviewer: ..." lines. n <= 0
// returns all turns.
func (s *Session) Transcript(n int) []string {
	turns := s.History
	if n > 0 && len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	out := make([]string, len(turns))
	for i, t := range turns {
		speaker := "Interviewer"
		if t.Role == RoleRespondent {
			speaker = "Respondent"
		}
		out[i] = fmt.Sprintf("%s: %s", speaker, t.Text)
	}
	return out
}
