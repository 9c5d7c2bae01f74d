package scoring

import (
	"context"
	"fmt"
	"strings"

	"github.com/abhisek/viva/internal/llm"
	"github.com/abhisek/viva/internal/logger"
)

const (
	minScore = 1.0
	maxScore = 10.0
)

// Config holds scorer settings.
type Config struct {
	MaxTokens   int        `koanf:"max_tokens"`
	Temperature float64    `koanf:"temperature"`
	Thresholds  Thresholds `koanf:"thresholds"`

	// MinQuestionsBeforeAssessment is how many answers an interview needs
	// before the backend is asked whether to end it.
	MinQuestionsBeforeAssessment int `koanf:"min_questions_before_assessment"`
}

// DefaultConfig returns the standard scorer settings.
func DefaultConfig() Config {
	return Config{
		MaxTokens:                    512,
		Temperature:                  0.2,
		Thresholds:                   DefaultThresholds(),
		MinQuestionsBeforeAssessment: 5,
	}
}

// Exchange is one prior question and answer.
type Exchange struct {
	Question string
	Response string
}

// Input is one answer to score.
type Input struct {
	ScenarioTitle       string
	ScenarioDescription string
	Question            string
	Response            string
	History             []Exchange

	// QuestionIndex is the 1-based position of Question in the scenario.
	QuestionIndex int
}

// Result is a rubric score. Every number is within [1, 10].
type Result struct {
	Score             float64            `json:"score"`
	Competencies      map[string]float64 `json:"competencies"`
	Feedback          string             `json:"feedback"`
	RecommendComplete bool               `json:"recommend_complete"`
	Fallback          bool               `json:"fallback"`
}

// Scorer grades answers through a scoring backend.
type Scorer struct {
	provider llm.Provider
	cfg      Config
	log      *logger.Logger
}

// NewScorer creates a Scorer. A nil provider scores every answer by length.
func NewScorer(p llm.Provider, cfg Config, log *logger.Logger) *Scorer {
	return &Scorer{provider: p, cfg: cfg, log: logger.OrNop(log)}
}

// Thresholds returns the completion rule in use.
func (s *Scorer) Thresholds() Thresholds { return s.cfg.Thresholds }

// Score grades in.Response. It never fails: backend errors and malformed
// output produce LengthFallback.
func (s *Scorer) Score(ctx context.Context, in Input) Result {
	res, err := s.score(ctx, in)
	if err != nil {
		s.log.Warn("response scoring failed, using length fallback",
			"question_index", in.QuestionIndex,
			"error", err,
		)
		res = LengthFallback(in.Response)
	}
	res.RecommendComplete = s.cfg.Thresholds.ShouldComplete(in.QuestionIndex, res.Score)
	return res
}

func (s *Scorer) score(ctx context.Context, in Input) (Result, error) {
	if s.provider == nil {
		return Result{}, &llm.ErrProviderUnavailable{}
	}

	resp, err := s.provider.Generate(llm.WithPurpose(ctx, llm.PurposeResponseScore), llm.Request{
		System: scoreSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildScoreMessage(in)},
		},
		Schema:      ScoreSchema,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return Result{}, fmt.Errorf("score response: %w", err)
	}

	var out scoreOutput
	if err := llm.Decode(resp, &out); err != nil {
		return Result{}, fmt.Errorf("decode score: %w", err)
	}

	res := Result{
		Score:        clamp(out.Score),
		Competencies: make(map[string]float64, len(Competencies)),
		Feedback:     strings.TrimSpace(out.Feedback),
	}
	for _, name := range Competencies {
		res.Competencies[name] = clamp(out.Competencies[name])
	}
	return res, nil
}

// LengthFallback scores an answer by word count alone: under 10 words is
// 3, under 30 is 4, under 60 is 5, anything longer is 6.
func LengthFallback(response string) Result {
	words := len(strings.Fields(response))
	var score float64
	switch {
	case words < 10:
		score = 3
	case words < 30:
		score = 4
	case words < 60:
		score = 5
	default:
		score = 6
	}

	comps := make(map[string]float64, len(Competencies))
	for _, name := range Competencies {
		comps[name] = score
	}
	return Result{
		Score:        score,
		Competencies: comps,
		Feedback:     "Your answer was recorded. Detailed feedback is not available for this response.",
		Fallback:     true,
	}
}

func clamp(v float64) float64 {
	switch {
	case v < minScore:
		return minScore
	case v > maxScore:
		return maxScore
	default:
		return v
	}
}

const scoreSystemPrompt = `You are an examiner scoring one spoken answer in a clinical certification.

Score the answer on each rubric dimension from 1 (poor) to 10 (excellent):
- accuracy: facts and steps are correct
- practical_application: the answer reflects how the task is really done
- communication: the answer is clear, ordered and confident
- problem_solving: risks and alternatives are recognized and handled
- completeness: nothing important is missing

Give an overall score from 1 to 10 and two or three sentences of feedback addressed to the candidate. Judge the answer to the current question only; earlier answers are context.`

func buildScoreMessage(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Scenario: %s\n", in.ScenarioTitle)
	if in.ScenarioDescription != "" {
		fmt.Fprintf(&b, "%s\n", in.ScenarioDescription)
	}
	if len(in.History) > 0 {
		b.WriteString("\nEarlier in this scenario:\n")
		for i, ex := range in.History {
			fmt.Fprintf(&b, "Q%d: %s\nA%d: %s\n", i+1, ex.Question, i+1, ex.Response)
		}
	}
	fmt.Fprintf(&b, "\nCurrent question (%d): %s\n", in.QuestionIndex, in.Question)
	fmt.Fprintf(&b, "Answer: %s\n", in.Response)
	return b.String()
}
