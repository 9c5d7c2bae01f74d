package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenClose(t *testing.T) {
	s := openTestStore(t)
	if s.Driver() == nil {
		t.Fatal("expected non-nil ent driver")
	}
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// journal_mode reports "memory" for in-memory databases.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func sessionRepos(t *testing.T) map[string]SessionRepo {
	return map[string]SessionRepo{
		"sqlite": openTestStore(t).SessionRepo(),
		"memory": NewMemorySessionRepo(),
		"redis":  newTestRedisRepo(t),
	}
}

func TestSessionRepoInsertGet(t *testing.T) {
	for name, repo := range sessionRepos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			rec := &SessionRecord{
				ID:        "s1",
				SubjectID: "u1",
				ModuleID:  "appendectomy",
				Status:    "IN_PROGRESS",
				Data:      []byte(`{"id":"s1"}`),
			}
			require.NoError(t, repo.Insert(ctx, rec))
			require.Equal(t, int64(1), rec.Version)

			got, err := repo.Get(ctx, "s1")
			require.NoError(t, err)
			require.Equal(t, "u1", got.SubjectID)
			require.Equal(t, "appendectomy", got.ModuleID)
			require.Equal(t, `{"id":"s1"}`, string(got.Data))
			require.Equal(t, int64(1), got.Version)

			err = repo.Insert(ctx, &SessionRecord{ID: "s1", Data: []byte(`{}`)})
			require.ErrorIs(t, err, ErrExists)

			_, err = repo.Get(ctx, "missing")
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestSessionRepoCompareAndSwap(t *testing.T) {
	for name, repo := range sessionRepos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repo.Insert(ctx, &SessionRecord{ID: "s1", Status: "IN_PROGRESS", Data: []byte(`{"n":0}`)}))

			a, err := repo.Get(ctx, "s1")
			require.NoError(t, err)
			b, err := repo.Get(ctx, "s1")
			require.NoError(t, err)

			a.Data = []byte(`{"n":1}`)
			require.NoError(t, repo.CompareAndSwap(ctx, a))
			require.Equal(t, int64(2), a.Version)

			b.Data = []byte(`{"n":2}`)
			err = repo.CompareAndSwap(ctx, b)
			if !errors.Is(err, ErrConflict) {
				t.Fatalf("stale write: got %v, want ErrConflict", err)
			}

			got, err := repo.Get(ctx, "s1")
			require.NoError(t, err)
			require.Equal(t, `{"n":1}`, string(got.Data))
			require.Equal(t, int64(2), got.Version)

			err = repo.CompareAndSwap(ctx, &SessionRecord{ID: "missing", Version: 1})
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestSessionRepoList(t *testing.T) {
	for name, repo := range sessionRepos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i, subj := range []string{"u1", "u2", "u1"} {
				require.NoError(t, repo.Insert(ctx, &SessionRecord{
					ID:        fmt.Sprintf("s%d", i),
					SubjectID: subj,
					ModuleID:  "m",
					Status:    "IN_PROGRESS",
					Data:      []byte(`{}`),
				}))
			}

			all, err := repo.List(ctx, ListFilter{})
			require.NoError(t, err)
			require.Len(t, all, 3)

			mine, err := repo.List(ctx, ListFilter{SubjectID: "u1"})
			require.NoError(t, err)
			require.Len(t, mine, 2)

			limited, err := repo.List(ctx, ListFilter{Limit: 1})
			require.NoError(t, err)
			require.Len(t, limited, 1)

			none, err := repo.List(ctx, ListFilter{Status: "COMPLETED"})
			require.NoError(t, err)
			require.Empty(t, none)
		})
	}
}

func TestLLMEvents(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	events := []LLMRequestEventData{
		{Provider: "mock", Model: "m1", Purpose: "question-batch", InputTokens: 100, OutputTokens: 50, LatencyMs: 200, Success: true, RequestBody: "req", ResponseBody: "resp"},
		{Provider: "mock", Model: "m1", Purpose: "response-score", InputTokens: 40, OutputTokens: 10, LatencyMs: 100, Success: true},
		{Provider: "mock", Model: "m2", Purpose: "response-score", InputTokens: 60, OutputTokens: 30, LatencyMs: 300, Success: false, ErrorMessage: "timeout"},
	}
	for _, e := range events {
		require.NoError(t, repo.AppendLLMRequest(ctx, e))
	}

	got, err := repo.QueryLLMEvents(ctx, QueryOpts{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	// Newest first.
	require.Equal(t, "timeout", got[0].ErrorMessage)
	require.False(t, got[0].Success)
	require.Greater(t, got[0].Sequence, got[1].Sequence)

	limited, err := repo.QueryLLMEvents(ctx, QueryOpts{Limit: 2})
	require.NoError(t, err)
	require.Len(t, limited, 2)

	first, err := repo.GetLLMEvent(ctx, got[2].ID)
	require.NoError(t, err)
	require.NotNil(t, first)
	require.Equal(t, "req", first.RequestBody)
	require.Equal(t, "resp", first.ResponseBody)

	missing, err := repo.GetLLMEvent(ctx, 9999)
	require.NoError(t, err)
	require.Nil(t, missing)

	byPurpose, err := repo.LLMUsageByPurpose(ctx)
	require.NoError(t, err)
	require.Len(t, byPurpose, 2)
	require.Equal(t, "response-score", byPurpose[1].Purpose)
	require.Equal(t, 2, byPurpose[1].Calls)
	require.Equal(t, 100, byPurpose[1].InputTokens)
	require.Equal(t, int64(200), byPurpose[1].AvgLatencyMs)

	byModel, err := repo.LLMUsageByModel(ctx)
	require.NoError(t, err)
	require.Len(t, byModel, 2)
	require.Equal(t, "m1", byModel[0].Model)
	require.Equal(t, 140, byModel[0].InputTokens)
}

func TestSessionEvents(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	for i, action := range []string{"created", "turn", "completed"} {
		require.NoError(t, repo.AppendSessionEvent(ctx, SessionEventData{
			SessionID:      "s1",
			Action:         action,
			QuestionsAsked: i,
		}))
	}
	require.NoError(t, repo.AppendSessionEvent(ctx, SessionEventData{SessionID: "s2", Action: "created"}))

	got, err := repo.QuerySessionEvents(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "created", got[0].Action)
	require.Equal(t, "completed", got[2].Action)
	require.Equal(t, 2, got[2].QuestionsAsked)
}

func TestSequenceSharedAcrossTables(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	require.NoError(t, repo.AppendSessionEvent(ctx, SessionEventData{SessionID: "s1", Action: "created"}))
	require.NoError(t, repo.AppendLLMRequest(ctx, LLMRequestEventData{Purpose: "question-batch", Success: true}))
	require.NoError(t, repo.AppendSessionEvent(ctx, SessionEventData{SessionID: "s1", Action: "turn"}))

	sess, err := repo.QuerySessionEvents(ctx, "s1")
	require.NoError(t, err)
	llmEvents, err := repo.QueryLLMEvents(ctx, QueryOpts{})
	require.NoError(t, err)

	require.Equal(t, sess[0].Sequence+1, llmEvents[0].Sequence)
	require.Equal(t, llmEvents[0].Sequence+1, sess[1].Sequence)
}

func TestNopEventRepo(t *testing.T) {
	var repo EventRepo = NopEventRepo{}
	ctx := context.Background()
	if err := repo.AppendLLMRequest(ctx, LLMRequestEventData{}); err != nil {
		t.Fatal(err)
	}
	events, err := repo.QueryLLMEvents(ctx, QueryOpts{})
	if err != nil || events != nil {
		t.Fatalf("got %v, %v", events, err)
	}
}
