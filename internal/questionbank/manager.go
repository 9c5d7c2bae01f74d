package questionbank

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/abhisek/viva/internal/coverage"
	"github.com/abhisek/viva/internal/llm"
	"github.com/abhisek/viva/internal/logger"
)

var (
	errNoProvider = errors.New("no generation backend configured")
	errEmptyBatch = errors.New("empty question batch")
)

// Manager generates question batches. A failed batch degrades to fallback
// placeholders, so the batch methods never return an error.
type Manager struct {
	provider llm.Provider
	cfg      Config
	log      *logger.Logger
}

// NewManager creates a Manager. A nil provider makes every batch a
// fallback batch.
func NewManager(p llm.Provider, cfg Config, log *logger.Logger) *Manager {
	return &Manager{provider: p, cfg: cfg, log: logger.OrNop(log)}
}

// Config returns the manager's settings.
func (m *Manager) Config() Config { return m.cfg }

// InitialBatch returns the opening pool for a session.
func (m *Manager) InitialBatch(ctx context.Context, in BatchInput) []Question {
	return m.batch(ctx, in, m.cfg.InitialBatchSize, false)
}

// Replenish returns follow-up questions to append to in.Pool. The result
// excludes anything already in the pool and may be empty.
func (m *Manager) Replenish(ctx context.Context, in BatchInput) []Question {
	return m.batch(ctx, in, m.cfg.ReplenishBatchSize, true)
}

func (m *Manager) batch(ctx context.Context, in BatchInput, count int, followUp bool) []Question {
	batchNo := nextBatch(in.Pool)

	raw, err := m.generate(ctx, in, count, followUp)
	if err != nil {
		m.log.Warn("question batch failed, using fallback",
			"batch", batchNo,
			"follow_up", followUp,
			"error", err,
		)
		return m.finish(in, FallbackQuestions(m.cfg.FallbackCount), batchNo)
	}

	qs := m.finish(in, raw, batchNo)
	if len(qs) == 0 && len(in.Pool) == 0 {
		// Nothing usable and nothing to fall back on in the pool.
		m.log.Warn("question batch empty after filtering, using fallback", "batch", batchNo)
		return m.finish(in, FallbackQuestions(m.cfg.FallbackCount), batchNo)
	}
	m.log.Debug("question batch generated",
		"batch", batchNo,
		"requested", count,
		"kept", len(qs),
	)
	return qs
}

func (m *Manager) generate(ctx context.Context, in BatchInput, count int, followUp bool) ([]Question, error) {
	if m.provider == nil {
		return nil, &llm.ErrProviderUnavailable{Err: errNoProvider}
	}

	system := initialSystemPrompt
	if followUp {
		system = followUpSystemPrompt
	}

	resp, err := m.provider.Generate(llm.WithPurpose(ctx, llm.PurposeQuestionBatch), llm.Request{
		System: system,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildUserMessage(in, count, followUp, m.cfg)},
		},
		Schema:      BatchSchema,
		MaxTokens:   m.cfg.MaxTokens,
		Temperature: m.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("generate question batch: %w", err)
	}

	var out batchOutput
	if err := llm.Decode(resp, &out); err != nil {
		return nil, fmt.Errorf("decode question batch: %w", err)
	}
	if len(out.Questions) == 0 {
		return nil, &llm.ErrInvalidResponse{Content: resp.Content, Err: errEmptyBatch}
	}

	qs := make([]Question, 0, len(out.Questions))
	for _, o := range out.Questions {
		qs = append(qs, Question{
			Text:          o.Question,
			Category:      strings.ToLower(strings.TrimSpace(o.Category)),
			Keywords:      lowerAll(o.Keywords),
			RelatedTopics: o.RelatedTopics,
			Source:        SourceGenerated,
		})
	}
	return qs, nil
}

// finish filters, dedups and numbers raw questions.
func (m *Manager) finish(in BatchInput, raw []Question, batchNo int) []Question {
	seen := make(map[string]bool, len(in.Pool)+len(raw))
	for _, q := range in.Pool {
		seen[normalize(q.Text)] = true
	}

	prio := nextPriority(in.Pool)
	out := make([]Question, 0, len(raw))
	for _, q := range raw {
		q.Text = strings.TrimSpace(q.Text)
		if q.Text == "" || (m.cfg.MaxQuestionChars > 0 && len(q.Text) > m.cfg.MaxQuestionChars) {
			continue
		}
		key := normalize(q.Text)
		if seen[key] {
			continue
		}
		seen[key] = true

		q.ID = uuid.NewString()
		q.Batch = batchNo
		q.Priority = prio
		q.Used = false
		q.RelatedTopics = relatedTopics(q, in.Topics)
		prio++
		out = append(out, q)
	}
	return out
}

// relatedTopics keeps declared ids that exist and adds topics whose
// keywords appear in the question's keywords or text.
func relatedTopics(q Question, topics []coverage.Topic) []string {
	declared := make(map[string]bool, len(q.RelatedTopics))
	for _, id := range q.RelatedTopics {
		declared[id] = true
	}

	words := make(map[string]bool)
	for _, w := range strings.Fields(normalize(q.Text)) {
		words[w] = true
	}
	for _, k := range q.Keywords {
		words[strings.ToLower(k)] = true
	}

	var out []string
	for _, t := range topics {
		if declared[t.ID] {
			out = append(out, t.ID)
			continue
		}
		for _, k := range t.Keywords {
			if words[strings.ToLower(k)] {
				out = append(out, t.ID)
				break
			}
		}
	}
	return out
}

func nextBatch(pool []Question) int {
	n := 0
	for _, q := range pool {
		if q.Batch > n {
			n = q.Batch
		}
	}
	return n + 1
}

func nextPriority(pool []Question) int {
	p := 0
	for _, q := range pool {
		if q.Priority >= p {
			p = q.Priority + 1
		}
	}
	return p
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
