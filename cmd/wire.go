package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/abhisek/viva/internal/certification"
	"github.com/abhisek/viva/internal/config"
	"github.com/abhisek/viva/internal/coverage"
	"github.com/abhisek/viva/internal/engine"
	"github.com/abhisek/viva/internal/events"
	"github.com/abhisek/viva/internal/llm"
	"github.com/abhisek/viva/internal/logger"
	"github.com/abhisek/viva/internal/questionbank"
	"github.com/abhisek/viva/internal/scoring"
	"github.com/abhisek/viva/internal/session"
	"github.com/abhisek/viva/internal/speech"
	"github.com/abhisek/viva/internal/store"
	"github.com/abhisek/viva/internal/taxonomy"
)

// runtime holds the wired engine and everything that needs closing.
type runtime struct {
	engine    *engine.Engine
	sessions  *session.Store
	taxonomy  *taxonomy.Registry
	backend   *store.Backend
	publisher events.Publisher
	log       *logger.Logger
}

func (r *runtime) Close() error {
	return errors.Join(r.publisher.Close(), r.backend.Close())
}

// loadTaxonomy reads the configured taxonomy file, or the built-in seed.
func loadTaxonomy(cfg *config.Config) (*taxonomy.Registry, error) {
	reg := taxonomy.Seed()
	if cfg.Taxonomy.File != "" {
		var err error
		reg, err = taxonomy.LoadFile(cfg.Taxonomy.File)
		if err != nil {
			return nil, err
		}
	}
	if err := reg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid taxonomy: %w", err)
	}
	return reg, nil
}

// buildRuntime opens the store and wires the engine. A missing or invalid
// LLM configuration is not fatal: every component falls back to its
// deterministic behavior.
func buildRuntime(ctx context.Context, cfg *config.Config, log *logger.Logger) (*runtime, error) {
	reg, err := loadTaxonomy(cfg)
	if err != nil {
		return nil, err
	}

	backend, err := store.OpenBackend(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	var provider llm.Provider
	if err := cfg.LLM.Validate(); err != nil {
		log.Warn("LLM backend not configured, using fallbacks", "error", err)
	} else if provider, err = llm.NewProvider(ctx, cfg.LLM, backend.Events, log); err != nil {
		log.Warn("LLM backend unavailable, using fallbacks", "provider", cfg.LLM.Provider, "error", err)
	}

	transcriber, err := speech.NewTranscriber(ctx, cfg.Speech, log)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("speech-to-text: %w", err)
	}
	synthesizer, err := speech.NewSynthesizer(cfg.Speech)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("text-to-speech: %w", err)
	}

	publishers := events.Multi{events.NewLogPublisher(log), events.NewEventLogPublisher(backend.Events)}
	if cfg.Events.AMQPURL != "" {
		amqpPub, err := events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			log.Warn("AMQP publisher unavailable, events stay local", "error", err)
		} else {
			publishers = append(publishers, amqpPub)
		}
	}

	trackerOpts := []coverage.Option{coverage.WithThresholds(cfg.Coverage), coverage.WithLogger(log)}
	if provider != nil {
		trackerOpts = append(trackerOpts, coverage.WithRefiner(coverage.NewLLMRefiner(provider)))
	}

	engCfg := cfg.Engine
	engCfg.TranscribeTimeout = cfg.Speech.TranscribeTimeout
	engCfg.SynthesizeTimeout = cfg.Speech.SynthesizeTimeout

	sessions := session.NewStore(backend.Sessions)
	deps := engine.Deps{
		Sessions:    sessions,
		Taxonomy:    reg,
		Tracker:     coverage.NewTracker(trackerOpts...),
		Bank:        questionbank.NewManager(provider, cfg.QuestionBank, log),
		Scorer:      scoring.NewScorer(provider, cfg.Scoring, log),
		Scenarios:   certification.NewGenerator(provider, log),
		Transcriber: transcriber,
		Synthesizer: synthesizer,
		Events:      publishers,
		Log:         log,
	}

	return &runtime{
		engine:    engine.New(deps, engCfg),
		sessions:  sessions,
		taxonomy:  reg,
		backend:   backend,
		publisher: publishers,
		log:       log,
	}, nil
}
