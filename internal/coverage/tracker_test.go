package coverage

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/abhisek/viva/internal/llm"
)

func incisionTopic() Topic {
	return Topic{ID: "t1", Name: "Skin opening", Keywords: []string{"incision", "cut"}, IsRequired: true}
}

func TestUpdate_IncisionScenario(t *testing.T) {
	tr := NewTracker()
	res, err := tr.Update(context.Background(), "First I make the incision carefully", []Topic{incisionTopic()})
	if err != nil {
		t.Fatal(err)
	}

	got := res.Topics[0]
	if got.CoverageScore < 15 {
		t.Errorf("score = %.1f, want at least 15", got.CoverageScore)
	}
	if got.Status != BrieflyDiscussed {
		t.Errorf("status = %q, want %q", got.Status, BrieflyDiscussed)
	}
	if !reflect.DeepEqual(got.MentionedKeywords, []string{"incision"}) {
		t.Errorf("mentioned = %v", got.MentionedKeywords)
	}
	if res.Deltas["t1"] != got.CoverageScore {
		t.Errorf("delta = %.1f, score = %.1f", res.Deltas["t1"], got.CoverageScore)
	}
	// direct 15 + semantic 10 + density min(2*10,25)=20 + short bonus 5
	if got.CoverageScore != 50 {
		t.Errorf("score = %.1f, want 50", got.CoverageScore)
	}
	if !strings.Contains(res.Reasoning["t1"], "direct=1 semantic=1") {
		t.Errorf("reasoning = %q", res.Reasoning["t1"])
	}
}

func TestUpdate_Weights(t *testing.T) {
	tests := []struct {
		name     string
		topic    Topic
		response string
		want     float64
	}{
		{
			// direct 15 + semantic 10 + density min(2*10,25)=20 + short bonus 5
			name:     "verbatim hit counts direct and semantic",
			topic:    Topic{ID: "a", Name: "zz", Keywords: []string{"suture"}},
			response: "I suture it",
			want:     50,
		},
		{
			// semantic 10 + density 10 + 5
			name:     "variant only",
			topic:    Topic{ID: "a", Name: "zz", Keywords: []string{"clamp"}},
			response: "keep clamping",
			want:     25,
		},
		{
			// name 8 + density 10 + 5
			name:     "name token only",
			topic:    Topic{ID: "a", Name: "Anesthesia", Keywords: []string{"propofol"}},
			response: "anesthesia first",
			want:     23,
		},
		{
			// direct 2*15 + semantic 2*10 + density min(4*10, 25)=25 + 5
			name:     "density capped at 25",
			topic:    Topic{ID: "a", Name: "zz", Keywords: []string{"scalpel", "retractor"}},
			response: "scalpel and retractor",
			want:     80,
		},
		{
			name:     "no hits no change",
			topic:    Topic{ID: "a", Name: "zz", Keywords: []string{"suture"}, CoverageScore: 12},
			response: "nothing relevant here",
			want:     12,
		},
		{
			name:     "clamped at 100",
			topic:    Topic{ID: "a", Name: "zz", Keywords: []string{"suture"}, CoverageScore: 95},
			response: "suture",
			want:     100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewTracker().Update(context.Background(), tt.response, []Topic{tt.topic})
			if err != nil {
				t.Fatal(err)
			}
			if got := res.Topics[0].CoverageScore; got != tt.want {
				t.Errorf("score = %.2f, want %.2f", got, tt.want)
			}
		})
	}
}

func TestUpdate_LongAnswerBonus(t *testing.T) {
	words := strings.Repeat("word ", 60)
	res, _ := NewTracker().Update(context.Background(), "suture "+words, []Topic{{ID: "a", Name: "zz", Keywords: []string{"suture"}}})
	// direct 15 + semantic 10 + density 2/6.1*10 + long bonus 15
	got := res.Topics[0].CoverageScore
	if got < 43 || got > 44 {
		t.Errorf("score = %.2f, want about 43.3", got)
	}
}

func TestUpdate_EmptyInputs(t *testing.T) {
	topics := []Topic{incisionTopic()}

	res, err := NewTracker().Update(context.Background(), "   ", topics)
	if err != nil {
		t.Fatal(err)
	}
	if res.Topics[0].CoverageScore != 0 || len(res.Deltas) != 0 {
		t.Errorf("empty response changed coverage: %+v", res)
	}

	res, err = NewTracker().Update(context.Background(), "incision", nil)
	if err != nil || len(res.Topics) != 0 {
		t.Errorf("empty topics: %+v, %v", res, err)
	}
}

func TestUpdate_DoesNotMutateInput(t *testing.T) {
	topics := []Topic{incisionTopic()}
	NewTracker().Update(context.Background(), "incision", topics)
	if topics[0].CoverageScore != 0 || topics[0].MentionedKeywords != nil {
		t.Fatalf("input mutated: %+v", topics[0])
	}
}

func TestUpdate_DuplicateKeywordAcrossTopics(t *testing.T) {
	topics := []Topic{
		{ID: "a", Name: "zz", Keywords: []string{"sterile"}},
		{ID: "b", Name: "yy", Keywords: []string{"sterile"}},
	}
	res, _ := NewTracker().Update(context.Background(), "keep it sterile", topics)
	if res.Topics[0].CoverageScore == 0 || res.Topics[0].CoverageScore != res.Topics[1].CoverageScore {
		t.Fatalf("scores = %.1f, %.1f", res.Topics[0].CoverageScore, res.Topics[1].CoverageScore)
	}
}

func TestUpdate_MonotonicAndStatusConsistent(t *testing.T) {
	tr := NewTracker()
	topics := []Topic{
		incisionTopic(),
		{ID: "t2", Name: "Closure", Keywords: []string{"suture", "stitch"}, IsRequired: true},
		{ID: "t3", Name: "Positioning", Keywords: []string{"supine"}},
	}
	responses := []string{
		"I start with the incision",
		"then nothing much",
		"suturing and stitches to close, then more incisions",
		"",
		"Patient supine, incision, cut, suture, stitch.",
	}

	th := tr.Thresholds()
	for i, r := range responses {
		res, err := tr.Update(context.Background(), r, topics)
		if err != nil {
			t.Fatal(err)
		}
		for j, topic := range res.Topics {
			if topic.CoverageScore < topics[j].CoverageScore {
				t.Fatalf("turn %d: topic %s decreased %.1f -> %.1f", i, topic.ID, topics[j].CoverageScore, topic.CoverageScore)
			}
			if topic.Status != "" && topic.Status != th.StatusFor(topic.CoverageScore) {
				t.Fatalf("turn %d: topic %s status %q inconsistent with score %.1f", i, topic.ID, topic.Status, topic.CoverageScore)
			}
		}
		topics = res.Topics
	}
}

type stubRefiner struct {
	scores map[string]float64
	err    error
	calls  int
	got    []Topic
}

func (s *stubRefiner) Refine(_ context.Context, _ string, topics []Topic) (map[string]float64, error) {
	s.calls++
	s.got = topics
	return s.scores, s.err
}

func TestUpdate_Refinement(t *testing.T) {
	base := []Topic{
		incisionTopic(),
		{ID: "t2", Name: "Closure", Keywords: []string{"suture"}, IsRequired: true},
		{ID: "t3", Name: "Optional", Keywords: []string{"incision"}},
	}

	t.Run("adopts higher score only", func(t *testing.T) {
		ref := &stubRefiner{scores: map[string]float64{"t1": 75, "t2": 1}}
		tr := NewTracker(WithRefiner(ref))
		res, _ := tr.Update(context.Background(), "incision and suture", base)

		if ref.calls != 1 || len(ref.got) != 2 {
			t.Fatalf("refiner calls = %d, topics = %d", ref.calls, len(ref.got))
		}
		if res.Topics[0].CoverageScore != 75 || res.Topics[0].Status != ThoroughlyCovered {
			t.Errorf("t1 = %+v", res.Topics[0])
		}
		if res.Topics[1].CoverageScore <= 1 {
			t.Errorf("t2 lowered by refinement: %.1f", res.Topics[1].CoverageScore)
		}
		if !reflect.DeepEqual(res.Refined, []string{"t1"}) {
			t.Errorf("refined = %v", res.Refined)
		}
	})

	t.Run("failure keeps keyword scores", func(t *testing.T) {
		ref := &stubRefiner{err: errors.New("timeout")}
		withRef, _ := NewTracker(WithRefiner(ref)).Update(context.Background(), "incision", base)
		without, _ := NewTracker().Update(context.Background(), "incision", base)
		if withRef.Topics[0].CoverageScore != without.Topics[0].CoverageScore {
			t.Errorf("scores differ: %.1f vs %.1f", withRef.Topics[0].CoverageScore, without.Topics[0].CoverageScore)
		}
	})

	t.Run("skipped when nothing crosses the floor", func(t *testing.T) {
		ref := &stubRefiner{}
		NewTracker(WithRefiner(ref)).Update(context.Background(), "unrelated words", base)
		if ref.calls != 0 {
			t.Errorf("refiner called %d times", ref.calls)
		}
	})

	t.Run("skipped for more than three candidates", func(t *testing.T) {
		many := []Topic{
			{ID: "a", Name: "aa", Keywords: []string{"alpha"}, IsRequired: true},
			{ID: "b", Name: "bb", Keywords: []string{"beta"}, IsRequired: true},
			{ID: "c", Name: "cc", Keywords: []string{"gamma"}, IsRequired: true},
			{ID: "d", Name: "dd", Keywords: []string{"delta"}, IsRequired: true},
		}
		ref := &stubRefiner{}
		NewTracker(WithRefiner(ref)).Update(context.Background(), "alpha beta gamma delta", many)
		if ref.calls != 0 {
			t.Errorf("refiner called %d times", ref.calls)
		}
	})
}

func TestLLMRefiner(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: json.RawMessage(`{"topics":[{"id":"t1","score":82,"reasoning":"detailed"}]}`),
	})
	r := NewLLMRefiner(mock)

	scores, err := r.Refine(context.Background(), "incision detail", []Topic{incisionTopic()})
	if err != nil {
		t.Fatal(err)
	}
	if scores["t1"] != 82 {
		t.Fatalf("scores = %v", scores)
	}
	if len(mock.CallsFor("coverage-refine")) != 1 {
		t.Fatal("expected one coverage-refine call")
	}

	if _, err := NewLLMRefiner(llm.NewMockProvider()).Refine(context.Background(), "x", nil); err == nil {
		t.Fatal("expected error from unavailable backend")
	}
}
