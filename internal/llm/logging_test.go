package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/abhisek/viva/internal/store"
)

type recordingEventRepo struct {
	store.NopEventRepo
	mu     sync.Mutex
	events []store.LLMRequestEventData
	err    error
}

func (r *recordingEventRepo) AppendLLMRequest(_ context.Context, data store.LLMRequestEventData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, data)
	return r.err
}

func TestLogging_RecordsSuccess(t *testing.T) {
	repo := &recordingEventRepo{}
	mock := NewMockProvider(MockResponse{
		Content: json.RawMessage(`{"score":6,"feedback":"ok"}`),
		Usage:   Usage{InputTokens: 12, OutputTokens: 4},
	})
	p := WithLogging(mock, "mock", repo, nil)

	ctx := WithPurpose(context.Background(), PurposeResponseScore)
	_, err := p.Generate(ctx, Request{
		System:   "examiner",
		Messages: []Message{{Role: RoleUser, Content: "answer"}},
		Schema:   testScoreSchema(),
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(repo.events) != 1 {
		t.Fatalf("events = %d, want 1", len(repo.events))
	}
	e := repo.events[0]
	if e.Purpose != PurposeResponseScore || !e.Success || e.InputTokens != 12 || e.Provider != "mock" {
		t.Errorf("event = %+v", e)
	}
	for _, want := range []string{"[system]", "examiner", "[user]", "[schema: test-score]"} {
		if !strings.Contains(e.RequestBody, want) {
			t.Errorf("request body missing %q:\n%s", want, e.RequestBody)
		}
	}
}

func TestLogging_RecordsFailureAndIgnoresRepoError(t *testing.T) {
	repo := &recordingEventRepo{err: errors.New("disk full")}
	mock := NewMockProvider(MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}})
	p := WithLogging(mock, "mock", repo, nil)

	_, err := p.Generate(context.Background(), Request{})
	var unavail *ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("provider error not passed through: %v", err)
	}
	if len(repo.events) != 1 || repo.events[0].Success || repo.events[0].ErrorMessage == "" {
		t.Fatalf("events = %+v", repo.events)
	}
}

func TestWrap_LogsEachAttempt(t *testing.T) {
	repo := &recordingEventRepo{}
	mock := NewMockProvider(
		MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}},
		MockResponse{Content: json.RawMessage(`{}`)},
	)
	cfg := DefaultConfig()
	cfg.Provider = "mock"
	cfg.Retry = retryConfig()

	p := Wrap(mock, cfg, repo, nil)
	if _, err := p.Generate(WithPurpose(context.Background(), PurposeQuestionBatch), Request{}); err != nil {
		t.Fatal(err)
	}
	if len(repo.events) != 2 {
		t.Fatalf("events = %d, want one per attempt", len(repo.events))
	}
}
