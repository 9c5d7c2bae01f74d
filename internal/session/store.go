package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/viva/internal/store"
)

var (
	// ErrNotFound is returned for an unknown session id.
	ErrNotFound = errors.New("session not found")

	// ErrExists is returned by Create when the id is taken.
	ErrExists = errors.New("session already exists")

	// ErrAlreadyCompleted is returned when mutating a completed session.
	ErrAlreadyCompleted = errors.New("session already completed")

	// ErrHistoryRewrite is returned when a mutator drops or edits earlier
	// turns.
	ErrHistoryRewrite = errors.New("session history is append-only")
)

// DefaultMaxRetries bounds the compare-and-swap loop in Update.
const DefaultMaxRetries = 8

// Store is a typed session store over a raw store.SessionRepo.
type Store struct {
	repo       store.SessionRepo
	maxRetries int
	now        func() time.Time
}

// NewStore wraps repo.
func NewStore(repo store.SessionRepo) *Store {
	return &Store{repo: repo, maxRetries: DefaultMaxRetries, now: func() time.Time { return time.Now().UTC() }}
}

// Create persists a new session. It stamps CreatedAt and UpdatedAt when
// unset.
func (st *Store) Create(ctx context.Context, s *Session) error {
	now := st.now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	if s.Status == "" {
		s.Status = StatusNotStarted
	}

	rec, err := toRecord(s)
	if err != nil {
		return err
	}
	if err := st.repo.Insert(ctx, rec); err != nil {
		if errors.Is(err, store.ErrExists) {
			return fmt.Errorf("%w: %s", ErrExists, s.ID)
		}
		return fmt.Errorf("create session: %w", err)
	}
	s.Version = rec.Version
	return nil
}

// Get returns the session or ErrNotFound.
func (st *Store) Get(ctx context.Context, id string) (*Session, error) {
	rec, err := st.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return fromRecord(rec)
}

// Update applies fn to a freshly loaded copy of the session and writes it
// back with compare-and-swap. On a version conflict the session is
// reloaded and fn runs again, so fn must be safe to repeat. A completed
// session is never passed to fn; Update returns it with ErrAlreadyCompleted.
// An error from fn aborts the update and is returned unchanged.
func (st *Store) Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	var lastErr error
	for attempt := 0; attempt < st.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		s, err := st.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if s.InterviewCompleted {
			return s, ErrAlreadyCompleted
		}

		before := append([]Turn(nil), s.History...)
		asked := s.QuestionsAsked
		if err := fn(s); err != nil {
			return nil, err
		}
		if !historyExtends(before, s.History) || s.QuestionsAsked < asked {
			return nil, ErrHistoryRewrite
		}
		if s.InterviewCompleted {
			s.Status = StatusCompleted
		}
		s.UpdatedAt = st.now()

		rec, err := toRecord(s)
		if err != nil {
			return nil, err
		}
		rec.Version = s.Version
		err = st.repo.CompareAndSwap(ctx, rec)
		switch {
		case err == nil:
			s.Version = rec.Version
			return s, nil
		case errors.Is(err, store.ErrConflict):
			lastErr = err
			continue
		case errors.Is(err, store.ErrNotFound):
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		default:
			return nil, fmt.Errorf("update session: %w", err)
		}
	}
	return nil, fmt.Errorf("update session %s after %d attempts: %w", id, st.maxRetries, lastErr)
}

// List returns sessions matching filter, most recently updated first.
func (st *Store) List(ctx context.Context, filter store.ListFilter) ([]*Session, error) {
	recs, err := st.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	out := make([]*Session, 0, len(recs))
	for i := range recs {
		s, err := fromRecord(&recs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func historyExtends(before, after []Turn) bool {
	if len(after) < len(before) {
		return false
	}
	for i := range before {
		b, a := before[i], after[i]
		if b.Role != a.Role || b.Text != a.Text || !b.Timestamp.Equal(a.Timestamp) || b.QuestionID != a.QuestionID {
			return false
		}
	}
	return true
}

func toRecord(s *Session) (*store.SessionRecord, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode session %s: %w", s.ID, err)
	}
	return &store.SessionRecord{
		ID:        s.ID,
		SubjectID: s.SubjectID,
		ModuleID:  s.ModuleID,
		Status:    string(s.Status),
		Data:      data,
		Version:   s.Version,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}, nil
}

func fromRecord(rec *store.SessionRecord) (*Session, error) {
	var s Session
	if err := json.Unmarshal(rec.Data, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", rec.ID, err)
	}
	s.Version = rec.Version
	return &s, nil
}
