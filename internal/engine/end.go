package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/abhisek/viva/internal/certification"
	"github.com/abhisek/viva/internal/events"
	"github.com/abhisek/viva/internal/session"
	"github.com/abhisek/viva/internal/speech"
)

// EndResult is the final state of a session.
type EndResult struct {
	SessionID     string                 `json:"session_id"`
	History       []session.Turn         `json:"history"`
	Progress      session.Progress       `json:"progress"`
	Certification *certification.Attempt `json:"certification,omitempty"`

	// AlreadyCompleted is set when the session had ended before the call.
	AlreadyCompleted bool `json:"already_completed"`
}

// ForceEnd completes a session immediately. It does not wait for an
// in-flight turn; that turn is discarded when it tries to commit. Ending a
// completed session returns its final state again.
func (e *Engine) ForceEnd(ctx context.Context, id string) (*EndResult, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: session_id is required", ErrInvalidInput)
	}

	s, err := e.sessions.Update(ctx, id, func(cur *session.Session) error {
		cur.Complete(session.ReasonForced, e.now())
		return nil
	})
	already := errors.Is(err, session.ErrAlreadyCompleted)
	if err != nil && !already {
		return nil, err
	}

	if !already {
		e.log.Info("session force-ended", "session_id", s.ID, "questions_asked", s.QuestionsAsked)
		e.publish(ctx, events.SessionCompleted, s, s.CompletionReason, overallScore(s))
	}
	return &EndResult{
		SessionID:        s.ID,
		History:          s.History,
		Progress:         session.BuildProgress(s),
		Certification:    s.Certification,
		AlreadyCompleted: already,
	}, nil
}

// Progress summarizes a session.
func (e *Engine) Progress(ctx context.Context, id string) (session.Progress, error) {
	s, err := e.Session(ctx, id)
	if err != nil {
		return session.Progress{}, err
	}
	return session.BuildProgress(s), nil
}

// Session returns the stored session.
func (e *Engine) Session(ctx context.Context, id string) (*session.Session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: session_id is required", ErrInvalidInput)
	}
	return e.sessions.Get(ctx, id)
}

// Speak synthesizes text.
func (e *Engine) Speak(ctx context.Context, text string) (*speech.Audio, error) {
	if e.synthesizer == nil {
		return nil, ErrSpeechUnavailable
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is empty", ErrInvalidInput)
	}
	if e.cfg.SynthesizeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.SynthesizeTimeout)
		defer cancel()
	}
	return e.synthesizer.Synthesize(ctx, text)
}

// SpeakQuestion synthesizes the question a session is waiting on.
func (e *Engine) SpeakQuestion(ctx context.Context, id string) (*speech.Audio, error) {
	s, err := e.Session(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.InterviewCompleted {
		return nil, fmt.Errorf("%w: %s", session.ErrAlreadyCompleted, id)
	}
	if s.CurrentQuestion == nil {
		return nil, fmt.Errorf("%w: no question pending", ErrStaleTurn)
	}
	return e.Speak(ctx, s.CurrentQuestion.Text)
}
