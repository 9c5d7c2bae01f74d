package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/abhisek/viva/internal/coverage"
	"github.com/abhisek/viva/internal/questionbank"
	"github.com/abhisek/viva/internal/store"
)

func newTestSession(id string) *Session {
	return &Session{
		ID:             id,
		SubjectID:      "subject-1",
		ModuleID:       "lap-appendectomy",
		Kind:           KindInterview,
		InitialContext: "Laparoscopic appendectomy",
		Status:         StatusInProgress,
		Topics: []coverage.Topic{
			{ID: "t1", Name: "Prep", Keywords: []string{"consent"}, IsRequired: true, Status: coverage.NotDiscussed},
		},
		QuestionPool: []questionbank.Question{
			{ID: "q1", Text: "First?", Priority: 0},
			{ID: "q2", Text: "Second?", Priority: 1},
		},
	}
}

func TestCreateGet(t *testing.T) {
	st := NewStore(store.NewMemorySessionRepo())
	ctx := context.Background()

	s := newTestSession("s1")
	s.Ask(s.QuestionPool[0], time.Now().UTC())
	if err := st.Create(ctx, s); err != nil {
		t.Fatal(err)
	}
	if s.Version != 1 || s.CreatedAt.IsZero() {
		t.Errorf("create did not stamp version/time: %+v", s)
	}

	got, err := st.Get(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if got.ModuleID != "lap-appendectomy" || len(got.History) != 1 || got.CurrentQuestion == nil || got.CurrentQuestion.ID != "q1" {
		t.Errorf("round trip lost data: %+v", got)
	}

	if err := st.Create(ctx, newTestSession("s1")); !errors.Is(err, ErrExists) {
		t.Errorf("duplicate create err = %v", err)
	}
	if _, err := st.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("get missing err = %v", err)
	}
	if _, err := st.Update(ctx, "missing", func(*Session) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Errorf("update missing err = %v", err)
	}
}

func TestUpdate(t *testing.T) {
	st := NewStore(store.NewMemorySessionRepo())
	ctx := context.Background()
	if err := st.Create(ctx, newTestSession("s1")); err != nil {
		t.Fatal(err)
	}

	got, err := st.Update(ctx, "s1", func(s *Session) error {
		s.Answer("I take consent", time.Now().UTC())
		s.QuestionsAsked++
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.Version != 2 || got.QuestionsAsked != 1 {
		t.Errorf("after update: version=%d asked=%d", got.Version, got.QuestionsAsked)
	}

	boom := errors.New("boom")
	if _, err := st.Update(ctx, "s1", func(s *Session) error {
		s.QuestionsAsked = 99
		return boom
	}); !errors.Is(err, boom) {
		t.Errorf("mutator error not returned: %v", err)
	}
	reread, _ := st.Get(ctx, "s1")
	if reread.QuestionsAsked != 1 {
		t.Error("failed mutator was persisted")
	}
}

func TestUpdateRejectsHistoryRewrite(t *testing.T) {
	st := NewStore(store.NewMemorySessionRepo())
	ctx := context.Background()
	s := newTestSession("s1")
	s.Ask(s.QuestionPool[0], time.Now().UTC())
	if err := st.Create(ctx, s); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		fn   func(*Session) error
	}{
		{"truncate", func(s *Session) error { s.History = nil; return nil }},
		{"edit", func(s *Session) error { s.History[0].Text = "changed"; return nil }},
		{"counter decrease", func(s *Session) error { s.QuestionsAsked = -1; return nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := st.Update(ctx, "s1", tt.fn); !errors.Is(err, ErrHistoryRewrite) {
				t.Errorf("err = %v, want ErrHistoryRewrite", err)
			}
		})
	}
}

func TestUpdateCompletedSession(t *testing.T) {
	st := NewStore(store.NewMemorySessionRepo())
	ctx := context.Background()
	if err := st.Create(ctx, newTestSession("s1")); err != nil {
		t.Fatal(err)
	}

	done, err := st.Update(ctx, "s1", func(s *Session) error {
		s.Complete(ReasonForced, time.Now().UTC())
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if done.Status != StatusCompleted || !done.InterviewCompleted || done.CompletedAt == nil {
		t.Fatalf("completed session = %+v", done)
	}

	called := false
	s, err := st.Update(ctx, "s1", func(s *Session) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("err = %v, want ErrAlreadyCompleted", err)
	}
	if called {
		t.Error("mutator ran on a completed session")
	}
	if s == nil || s.CompletionReason != ReasonForced {
		t.Errorf("stored session not returned with ErrAlreadyCompleted: %+v", s)
	}
}

// Concurrent updates to disjoint fields must all land.
func TestUpdateConcurrentMerge(t *testing.T) {
	st := NewStore(store.NewMemorySessionRepo())
	ctx := context.Background()
	if err := st.Create(ctx, newTestSession("s1")); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	run := func(fn func(*Session) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := st.Update(ctx, "s1", fn); err != nil {
				errs <- err
			}
		}()
	}

	for i := 0; i < 3; i++ {
		text := fmt.Sprintf("answer %d", i)
		run(func(s *Session) error {
			s.History = append(s.History, Turn{Role: RoleRespondent, Text: text})
			return nil
		})
	}
	run(func(s *Session) error {
		questionbank.MarkUsed(s.QuestionPool, "q2")
		return nil
	})
	run(func(s *Session) error {
		s.Topics[0].CoverageScore = 40
		return nil
	})
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent update failed: %v", err)
	}

	got, err := st.Get(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.History) != 3 {
		t.Errorf("history has %d turns, want 3", len(got.History))
	}
	if !got.QuestionPool[1].Used || got.QuestionPool[0].Used {
		t.Error("mark-used lost")
	}
	if got.Topics[0].CoverageScore != 40 {
		t.Error("topic update lost")
	}
	if got.Version != 6 {
		t.Errorf("version = %d, want 6", got.Version)
	}
}

type conflictRepo struct {
	store.SessionRepo
	attempts int
}

func (c *conflictRepo) CompareAndSwap(context.Context, *store.SessionRecord) error {
	c.attempts++
	return store.ErrConflict
}

func TestUpdateGivesUpAfterRetries(t *testing.T) {
	repo := &conflictRepo{SessionRepo: store.NewMemorySessionRepo()}
	st := NewStore(repo)
	ctx := context.Background()
	if err := st.Create(ctx, newTestSession("s1")); err != nil {
		t.Fatal(err)
	}

	_, err := st.Update(ctx, "s1", func(*Session) error { return nil })
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	if repo.attempts != DefaultMaxRetries {
		t.Errorf("attempts = %d, want %d", repo.attempts, DefaultMaxRetries)
	}
}

func TestList(t *testing.T) {
	st := NewStore(store.NewMemorySessionRepo())
	ctx := context.Background()
	for _, id := range []string{"a", "b"} {
		if err := st.Create(ctx, newTestSession(id)); err != nil {
			t.Fatal(err)
		}
	}
	other := newTestSession("c")
	other.ModuleID = "central-line"
	if err := st.Create(ctx, other); err != nil {
		t.Fatal(err)
	}

	got, err := st.List(ctx, store.ListFilter{ModuleID: "lap-appendectomy"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("listed %d sessions, want 2", len(got))
	}
}

func TestTranscriptAndProgress(t *testing.T) {
	s := newTestSession("s1")
	now := time.Now().UTC()
	s.Ask(s.QuestionPool[0], now)
	s.Answer("yes", now)
	s.Ask(s.QuestionPool[1], now)

	lines := s.Transcript(2)
	if len(lines) != 2 || lines[0] != "Respondent: yes" || lines[1] != "Interviewer: Second?" {
		t.Errorf("transcript = %q", lines)
	}
	if s.History[1].QuestionID != "q1" {
		t.Errorf("answer not linked to question: %+v", s.History[1])
	}

	p := BuildProgress(s)
	if p.UnusedQuestions != 2 || p.Topics.Total != 1 || p.Completed {
		t.Errorf("progress = %+v", p)
	}
}
