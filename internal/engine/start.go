package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/viva/internal/certification"
	"github.com/abhisek/viva/internal/coverage"
	"github.com/abhisek/viva/internal/events"
	"github.com/abhisek/viva/internal/questionbank"
	"github.com/abhisek/viva/internal/session"
	"github.com/abhisek/viva/internal/store"
	"github.com/abhisek/viva/internal/taxonomy"
)

// StartRequest starts or resumes a session. With SessionID set, that
// session is resumed or created under that id. Without it, the latest
// in-progress session of the same kind for the subject and module is
// resumed. Otherwise a new one supersedes the latest session, which is
// completed if it was still open.
type StartRequest struct {
	SessionID  string       `json:"session_id,omitempty"`
	SubjectID  string       `json:"subject_id"`
	ModuleID   string       `json:"module_id"`
	Kind       session.Kind `json:"kind,omitempty"`
	Context    string       `json:"context,omitempty"`
	QuizScores []float64    `json:"quiz_scores,omitempty"`
}

// StartResult is the question to ask and the session state.
type StartResult struct {
	SessionID string                 `json:"session_id"`
	Created   bool                   `json:"created"`
	Question  *questionbank.Question `json:"question,omitempty"`
	Progress  session.Progress       `json:"progress"`
}

// Start creates or resumes a session. Resuming a completed session returns
// session.ErrAlreadyCompleted.
func (e *Engine) Start(ctx context.Context, req StartRequest) (*StartResult, error) {
	if req.Kind == "" {
		req.Kind = session.KindInterview
	}
	if req.Kind != session.KindInterview && req.Kind != session.KindCertification {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidInput, req.Kind)
	}

	if req.SessionID != "" {
		unlock := e.locks.Lock(req.SessionID)
		defer unlock()

		s, err := e.sessions.Get(ctx, req.SessionID)
		switch {
		case err == nil:
			return resume(s)
		case !errors.Is(err, session.ErrNotFound):
			return nil, err
		}
		if err := validateNew(req); err != nil {
			return nil, err
		}
		return e.create(ctx, req, "")
	}

	if err := validateNew(req); err != nil {
		return nil, err
	}
	unlock := e.locks.Lock("start:" + req.SubjectID + "/" + req.ModuleID)
	defer unlock()

	open, err := e.sessions.List(ctx, store.ListFilter{
		SubjectID: req.SubjectID,
		ModuleID:  req.ModuleID,
		Status:    string(session.StatusInProgress),
	})
	if err != nil {
		return nil, err
	}
	for _, s := range open {
		if s.Kind == req.Kind && !s.InterviewCompleted {
			return resume(s)
		}
	}

	latest, err := e.sessions.List(ctx, store.ListFilter{SubjectID: req.SubjectID, ModuleID: req.ModuleID, Limit: 1})
	if err != nil {
		return nil, err
	}
	supersedes := ""
	if len(latest) > 0 {
		supersedes = latest[0].ID
	}
	req.SessionID = uuid.NewString()
	res, err := e.create(ctx, req, supersedes)
	if err != nil {
		return nil, err
	}
	for _, s := range open {
		e.retire(ctx, s.ID, res.SessionID)
	}
	return res, nil
}

// retire completes an open session of another kind once its replacement
// exists, so a subject has one open session per module.
// Failure leaves the old session open and is only logged.
func (e *Engine) retire(ctx context.Context, id, by string) {
	s, err := e.sessions.Update(ctx, id, func(cur *session.Session) error {
		cur.Complete(session.ReasonSuperseded, e.now())
		return nil
	})
	switch {
	case errors.Is(err, session.ErrAlreadyCompleted):
		return
	case err != nil:
		e.log.Warn("could not retire superseded session", "session_id", id, "superseded_by", by, "error", err)
		return
	}
	e.log.Info("session superseded", "session_id", id, "superseded_by", by)
	e.publish(ctx, events.SessionCompleted, s, s.CompletionReason, overallScore(s))
}

func validateNew(req StartRequest) error {
	if strings.TrimSpace(req.SubjectID) == "" {
		return fmt.Errorf("%w: subject_id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(req.ModuleID) == "" {
		return fmt.Errorf("%w: module_id is required", ErrInvalidInput)
	}
	return nil
}

func resume(s *session.Session) (*StartResult, error) {
	if s.InterviewCompleted {
		return nil, fmt.Errorf("%w: %s", session.ErrAlreadyCompleted, s.ID)
	}
	return &StartResult{
		SessionID: s.ID,
		Question:  s.CurrentQuestion,
		Progress:  session.BuildProgress(s),
	}, nil
}

func (e *Engine) create(ctx context.Context, req StartRequest, supersedes string) (*StartResult, error) {
	mod, err := e.taxonomy.Get(req.ModuleID)
	if err != nil {
		return nil, err
	}
	topics, err := e.taxonomy.Instantiate(req.ModuleID)
	if err != nil {
		return nil, err
	}

	brief := mod.Context
	if strings.TrimSpace(req.Context) != "" {
		brief = req.Context
	}

	now := e.now()
	s := &session.Session{
		ID:             req.SessionID,
		SubjectID:      req.SubjectID,
		ModuleID:       req.ModuleID,
		Kind:           req.Kind,
		Title:          mod.Title,
		InitialContext: brief,
		Topics:         topics,
		Status:         session.StatusInProgress,
		SupersedesID:   supersedes,
		CreatedAt:      now,
	}

	batch := questionbank.BatchInput{Context: brief, Topics: topics}
	switch req.Kind {
	case session.KindCertification:
		if err := e.setupCertification(ctx, s, mod, batch, req.QuizScores); err != nil {
			return nil, err
		}
	default:
		s.QuestionPool = e.bank.InitialBatch(ctx, batch)
		s.Ask(questionbank.Opening(mod.Title, brief), now)
	}

	if err := e.sessions.Create(ctx, s); err != nil {
		if errors.Is(err, session.ErrExists) {
			existing, gerr := e.sessions.Get(ctx, s.ID)
			if gerr != nil {
				return nil, gerr
			}
			return resume(existing)
		}
		return nil, err
	}

	e.log.Info("session started",
		"session_id", s.ID,
		"subject_id", s.SubjectID,
		"module_id", s.ModuleID,
		"kind", s.Kind,
		"pool", len(s.QuestionPool),
		"supersedes", supersedes,
	)
	e.publish(ctx, events.SessionCreated, s, "", nil)

	return &StartResult{
		SessionID: s.ID,
		Created:   true,
		Question:  s.CurrentQuestion,
		Progress:  session.BuildProgress(s),
	}, nil
}

// setupCertification generates scenarios and the follow-up pool in
// parallel and asks the first scenario's opening question.
func (e *Engine) setupCertification(ctx context.Context, s *session.Session, mod taxonomy.Module, batch questionbank.BatchInput, quizScores []float64) error {
	difficulty := certification.DifficultyFromQuizScores(quizScores)

	var (
		scenarios []certification.Scenario
		pool      []questionbank.Question
	)
	g, gctx := errgroup.WithContext(ctx)
	// Both generators fall back instead of failing, so the only error is a
	// cancelled caller, which stops the sibling early.
	g.Go(func() error {
		scenarios = e.scenarios.Scenarios(gctx, certification.GenerateInput{
			Title:      mod.Title,
			Context:    batch.Context,
			TopicNames: topicNames(batch.Topics),
			Difficulty: difficulty,
			Count:      e.cfg.ScenarioCount,
		})
		return ctx.Err()
	})
	g.Go(func() error {
		pool = e.bank.InitialBatch(gctx, batch)
		return ctx.Err()
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("certification setup: %w", err)
	}
	if len(scenarios) == 0 {
		scenarios = certification.TemplateScenarios(certification.GenerateInput{
			Title:      mod.Title,
			TopicNames: topicNames(batch.Topics),
			Difficulty: difficulty,
			Count:      max(e.cfg.ScenarioCount, 1),
		})
	}

	s.QuestionPool = pool
	s.Certification = certification.NewAttempt(scenarios, difficulty, e.cfg.PassingScore)
	e.askScenarioOpening(s, e.now())
	return nil
}

// askScenarioOpening asks the current scenario's framing question.
func (e *Engine) askScenarioOpening(s *session.Session, at time.Time) {
	sc := s.Certification.Current()
	q := questionbank.Question{
		ID:       "scenario-" + sc.ID,
		Text:     strings.TrimSpace(sc.Description + "\n\n" + sc.OpeningQuestion),
		Category: "scenario",
		Priority: -1,
		Used:     true,
		Source:   questionbank.SourceOpening,
	}
	s.Ask(q, at)
	sc.Say(certification.Interviewer, q.Text, at)
}

func topicNames(topics []coverage.Topic) []string {
	out := make([]string, len(topics))
	for i, t := range topics {
		out[i] = t.Name
	}
	return out
}
