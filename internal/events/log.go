package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/abhisek/viva/internal/logger"
	"github.com/abhisek/viva/internal/store"
)

// LogPublisher writes events to the structured log.
type LogPublisher struct {
	log *logger.Logger
}

func NewLogPublisher(log *logger.Logger) *LogPublisher {
	return &LogPublisher{log: logger.OrNop(log)}
}

func (p *LogPublisher) Publish(_ context.Context, ev Event) error {
	p.log.Info("session event",
		"type", ev.Type,
		"session_id", ev.SessionID,
		"subject_id", ev.SubjectID,
		"module_id", ev.ModuleID,
		"questions_asked", ev.QuestionsAsked,
		"reason", ev.Reason,
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// EventLogPublisher appends events to the store's session event table.
type EventLogPublisher struct {
	repo store.EventRepo
}

func NewEventLogPublisher(repo store.EventRepo) *EventLogPublisher {
	return &EventLogPublisher{repo: repo}
}

func (p *EventLogPublisher) Publish(ctx context.Context, ev Event) error {
	detail := ev.Reason
	if ev.Score != nil {
		detail = strings.TrimSpace(fmt.Sprintf("%s score=%.2f", detail, *ev.Score))
	}
	err := p.repo.AppendSessionEvent(context.WithoutCancel(ctx), store.SessionEventData{
		SessionID:      ev.SessionID,
		Action:         actionFor(ev.Type),
		QuestionsAsked: ev.QuestionsAsked,
		Detail:         detail,
	})
	if err != nil {
		return fmt.Errorf("record session event: %w", err)
	}
	return nil
}

func (p *EventLogPublisher) Close() error { return nil }

func actionFor(eventType string) string {
	switch eventType {
	case SessionCreated:
		return "created"
	case SessionTurn:
		return "turn"
	case SessionCompleted:
		return "completed"
	default:
		return eventType
	}
}
