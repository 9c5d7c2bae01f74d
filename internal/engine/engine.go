// Package engine runs interview and certification sessions: it starts
// them, processes each answer and decides when they end.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/abhisek/viva/internal/certification"
	"github.com/abhisek/viva/internal/coverage"
	"github.com/abhisek/viva/internal/events"
	"github.com/abhisek/viva/internal/logger"
	"github.com/abhisek/viva/internal/questionbank"
	"github.com/abhisek/viva/internal/scoring"
	"github.com/abhisek/viva/internal/session"
	"github.com/abhisek/viva/internal/speech"
	"github.com/abhisek/viva/internal/taxonomy"
)

var (
	// ErrInvalidInput is wrapped with the offending field.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStaleTurn is returned when an answer targets a question that is no
	// longer current.
	ErrStaleTurn = errors.New("answer does not match the current question")

	// ErrSpeechUnavailable is returned when no synthesizer is configured.
	ErrSpeechUnavailable = errors.New("text-to-speech is not configured")
)

// unintelligible stands in for an answer whose audio could not be
// transcribed.
const unintelligible = "[unintelligible response]"

// Config holds orchestration limits.
type Config struct {
	// MaxQuestions is the hard cap on answers in an interview.
	MaxQuestions int `koanf:"max_questions"`

	// AssessEvery runs the interview end check every n answers once the
	// scorer's minimum has been reached.
	AssessEvery int `koanf:"assess_every"`

	ScenarioCount int     `koanf:"scenario_count"`
	PassingScore  float64 `koanf:"passing_score"`

	// RecentTurns caps the transcript excerpt sent to backends.
	RecentTurns int `koanf:"recent_turns"`

	MaxResponseChars int `koanf:"max_response_chars"`

	TranscribeTimeout time.Duration `koanf:"transcribe_timeout"`
	SynthesizeTimeout time.Duration `koanf:"synthesize_timeout"`
}

// DefaultConfig returns the standard limits.
func DefaultConfig() Config {
	return Config{
		MaxQuestions:      15,
		AssessEvery:       2,
		ScenarioCount:     3,
		PassingScore:      certification.DefaultPassingScore,
		RecentTurns:       6,
		MaxResponseChars:  8000,
		TranscribeTimeout: 3 * time.Minute,
		SynthesizeTimeout: 30 * time.Second,
	}
}

// Deps are the engine's collaborators. Sessions and Taxonomy are required;
// the rest default to backend-free fallbacks when nil.
type Deps struct {
	Sessions    *session.Store
	Taxonomy    *taxonomy.Registry
	Tracker     *coverage.Tracker
	Bank        *questionbank.Manager
	Scorer      *scoring.Scorer
	Scenarios   *certification.Generator
	Transcriber speech.Transcriber
	Synthesizer speech.Synthesizer
	Events      events.Publisher
	Log         *logger.Logger
}

// Engine is the session orchestrator. Turns for one session run one at a
// time; different sessions proceed in parallel.
type Engine struct {
	sessions    *session.Store
	taxonomy    *taxonomy.Registry
	tracker     *coverage.Tracker
	bank        *questionbank.Manager
	scorer      *scoring.Scorer
	scenarios   *certification.Generator
	transcriber speech.Transcriber
	synthesizer speech.Synthesizer
	events      events.Publisher
	log         *logger.Logger
	cfg         Config
	locks       *keyedMutex
	now         func() time.Time
}

// New creates an Engine.
func New(d Deps, cfg Config) *Engine {
	log := logger.OrNop(d.Log)
	e := &Engine{
		sessions:    d.Sessions,
		taxonomy:    d.Taxonomy,
		tracker:     d.Tracker,
		bank:        d.Bank,
		scorer:      d.Scorer,
		scenarios:   d.Scenarios,
		transcriber: d.Transcriber,
		synthesizer: d.Synthesizer,
		events:      d.Events,
		log:         log,
		cfg:         cfg,
		locks:       newKeyedMutex(),
		now:         func() time.Time { return time.Now().UTC() },
	}
	if e.tracker == nil {
		e.tracker = coverage.NewTracker(coverage.WithLogger(log))
	}
	if e.bank == nil {
		e.bank = questionbank.NewManager(nil, questionbank.DefaultConfig(), log)
	}
	if e.scorer == nil {
		e.scorer = scoring.NewScorer(nil, scoring.DefaultConfig(), log)
	}
	if e.scenarios == nil {
		e.scenarios = certification.NewGenerator(nil, log)
	}
	if e.events == nil {
		e.events = events.Nop{}
	}
	return e
}

func (e *Engine) publish(ctx context.Context, typ string, s *session.Session, reason string, score *float64) {
	err := e.events.Publish(ctx, events.Event{
		Type:           typ,
		SessionID:      s.ID,
		SubjectID:      s.SubjectID,
		ModuleID:       s.ModuleID,
		Kind:           string(s.Kind),
		QuestionsAsked: s.QuestionsAsked,
		Reason:         reason,
		Score:          score,
		Timestamp:      e.now(),
	})
	if err != nil {
		e.log.Warn("publish session event failed", "type", typ, "session_id", s.ID, "error", err)
	}
}
