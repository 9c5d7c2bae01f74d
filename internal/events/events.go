// Package events publishes session lifecycle events.
package events

import (
	"context"
	"errors"
	"time"
)

// Event types, also used as AMQP routing keys.
const (
	SessionCreated   = "session.created"
	SessionTurn      = "session.turn"
	SessionCompleted = "session.completed"
)

// Event is one session lifecycle notification.
type Event struct {
	Type           string    `json:"type"`
	SessionID      string    `json:"session_id"`
	SubjectID      string    `json:"subject_id,omitempty"`
	ModuleID       string    `json:"module_id,omitempty"`
	Kind           string    `json:"kind,omitempty"`
	QuestionsAsked int       `json:"questions_asked"`
	Reason         string    `json:"reason,omitempty"`
	Score          *float64  `json:"score,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Publisher delivers events. Implementations must be safe for concurrent
// use.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Multi fans an event out to several publishers and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
