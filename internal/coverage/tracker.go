package coverage

import (
	"context"
	"fmt"
	"math"

	"github.com/abhisek/viva/internal/logger"
)

// Scoring weights for a keyword pass.
const (
	directWeight    = 15.0
	semanticWeight  = 10.0
	nameWeight      = 8.0
	densityCap      = 25.0
	longAnswerBonus = 15.0
	shortAnsBonus   = 5.0
	longAnswerWords = 50

	// Escalation only runs when the number of required topics above
	// refineFloor is between 1 and maxRefine.
	refineFloor = 20.0
	maxRefine   = 3
)

// Refiner re-scores a handful of topics against a response. Returned
// scores are keyed by topic id and may be partial.
type Refiner interface {
	Refine(ctx context.Context, response string, topics []Topic) (map[string]float64, error)
}

// Result is the outcome of one Tracker.Update.
type Result struct {
	Topics    []Topic            `json:"topics"`
	Reasoning map[string]string  `json:"reasoning"`
	Deltas    map[string]float64 `json:"deltas"`
	Refined   []string           `json:"refined,omitempty"`
}

// Tracker updates topic coverage from respondent turns.
type Tracker struct {
	matcher    Matcher
	refiner    Refiner
	thresholds Thresholds
	log        *logger.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithMatcher replaces the default SuffixMatcher.
func WithMatcher(m Matcher) Option { return func(t *Tracker) { t.matcher = m } }

// WithRefiner enables backend refinement.
func WithRefiner(r Refiner) Option { return func(t *Tracker) { t.refiner = r } }

// WithThresholds overrides the status breakpoints.
func WithThresholds(th Thresholds) Option { return func(t *Tracker) { t.thresholds = th } }

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option { return func(t *Tracker) { t.log = logger.OrNop(l) } }

func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		matcher:    DefaultMatcher(),
		thresholds: DefaultThresholds(),
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Thresholds returns the tracker's status breakpoints.
func (t *Tracker) Thresholds() Thresholds { return t.thresholds }

// Update scores response against every topic and returns updated copies;
// the input slice is not modified. Scores never decrease. Refinement
// failures are logged and the keyword scores stand. The only error is a
// context that was already done on entry.
func (t *Tracker) Update(ctx context.Context, response string, topics []Topic) (Result, error) {
	res := Result{
		Topics:    Clone(topics),
		Reasoning: make(map[string]string, len(topics)),
		Deltas:    make(map[string]float64, len(topics)),
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}
	ts := newTokenSet(response)
	if ts.count == 0 || len(topics) == 0 {
		return res, nil
	}

	for i := range res.Topics {
		topic := &res.Topics[i]
		before := topic.CoverageScore
		res.Reasoning[topic.ID] = t.applyKeywords(topic, ts)
		res.Deltas[topic.ID] = topic.CoverageScore - before
	}

	t.refine(ctx, response, &res)
	return res, nil
}

func (t *Tracker) applyKeywords(topic *Topic, ts tokenSet) string {
	var direct, semantic, name int

	for _, kw := range topic.Keywords {
		if ts.has(kw) {
			direct++
			topic.MentionedKeywords = appendUnique(topic.MentionedKeywords, kw)
		}
		// The semantic pass covers the keyword and its variants, so a
		// verbatim mention counts in both passes.
		for _, v := range append([]string{kw}, t.matcher.Variants(kw)...) {
			if ts.has(v) {
				semantic++
				topic.MentionedKeywords = appendUnique(topic.MentionedKeywords, kw)
				break
			}
		}
	}
	for _, tok := range nameTokens(topic.Name) {
		if ts.words[tok] {
			name++
		}
	}

	hits := direct + semantic + name
	if hits == 0 {
		topic.Status = t.thresholds.StatusFor(topic.CoverageScore)
		return fmt.Sprintf("no mentions; score %.0f", topic.CoverageScore)
	}

	density := float64(hits) / math.Max(float64(ts.count)/10, 1)
	lengthBonus := shortAnsBonus
	if ts.count > longAnswerWords {
		lengthBonus = longAnswerBonus
	}
	delta := float64(direct)*directWeight +
		float64(semantic)*semanticWeight +
		float64(name)*nameWeight +
		math.Min(density*10, densityCap) +
		lengthBonus

	topic.CoverageScore = clampScore(topic.CoverageScore+delta, topic.CoverageScore)
	topic.Status = t.thresholds.StatusFor(topic.CoverageScore)

	return fmt.Sprintf("direct=%d semantic=%d name=%d density=%.2f delta=%.1f score=%.0f",
		direct, semantic, name, density, delta, topic.CoverageScore)
}

func (t *Tracker) refine(ctx context.Context, response string, res *Result) {
	if t.refiner == nil {
		return
	}

	var candidates []Topic
	for _, topic := range res.Topics {
		if topic.IsRequired && topic.CoverageScore > refineFloor {
			candidates = append(candidates, topic)
		}
	}
	if len(candidates) == 0 || len(candidates) > maxRefine {
		return
	}

	scores, err := t.refiner.Refine(ctx, response, candidates)
	if err != nil {
		t.log.Warn("coverage refinement failed, keeping keyword scores", "topics", len(candidates), "error", err)
		return
	}

	for i := range res.Topics {
		topic := &res.Topics[i]
		refined, ok := scores[topic.ID]
		if !ok || !isCandidate(candidates, topic.ID) {
			continue
		}
		refined = math.Min(math.Max(refined, 0), 100)
		if refined <= topic.CoverageScore {
			continue
		}
		res.Deltas[topic.ID] += refined - topic.CoverageScore
		topic.CoverageScore = refined
		topic.Status = t.thresholds.StatusFor(refined)
		res.Refined = append(res.Refined, topic.ID)
		res.Reasoning[topic.ID] += fmt.Sprintf("; refined to %.0f", refined)
	}
}

func isCandidate(candidates []Topic, id string) bool {
	for _, c := range candidates {
		if c.ID == id {
			return true
		}
	}
	return false
}

// clampScore bounds score to [floor, 100].
func clampScore(score, floor float64) float64 {
	return math.Min(math.Max(score, floor), 100)
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
