package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/viva/internal/certification"
	"github.com/abhisek/viva/internal/coverage"
	"github.com/abhisek/viva/internal/events"
	"github.com/abhisek/viva/internal/questionbank"
	"github.com/abhisek/viva/internal/scoring"
	"github.com/abhisek/viva/internal/session"
)

// SubmitRequest is one answer, as text or as recorded audio.
type SubmitRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text,omitempty"`
	Audio     []byte `json:"-"`
	MimeType  string `json:"-"`

	// QuestionID, when set, must name the current question.
	QuestionID string `json:"question_id,omitempty"`
}

// TurnResult is the outcome of one answer.
type TurnResult struct {
	SessionID  string                 `json:"session_id"`
	Transcript string                 `json:"transcript"`
	Next       *questionbank.Question `json:"next,omitempty"`
	Completed  bool                   `json:"completed"`
	Reason     string                 `json:"reason,omitempty"`
	Progress   session.Progress       `json:"progress"`

	// Score is set for certification answers.
	Score *scoring.Result `json:"score,omitempty"`

	// TranscriptionFailed is set when the audio could not be transcribed
	// and a placeholder answer was recorded.
	TranscriptionFailed bool `json:"transcription_failed,omitempty"`
}

// Submit processes one answer: it updates coverage, scores certification
// answers, picks the next question or ends the session, and persists the
// result. Answers for one session are processed one at a time.
func (e *Engine) Submit(ctx context.Context, req SubmitRequest) (*TurnResult, error) {
	if err := e.validateSubmit(req); err != nil {
		return nil, err
	}

	unlock := e.locks.Lock(req.SessionID)
	defer unlock()

	work, err := e.sessions.Get(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if work.InterviewCompleted {
		return nil, fmt.Errorf("%w: %s", session.ErrAlreadyCompleted, work.ID)
	}
	if work.CurrentQuestion == nil {
		return nil, fmt.Errorf("%w: no question pending", ErrStaleTurn)
	}
	if req.QuestionID != "" && req.QuestionID != work.CurrentQuestion.ID {
		return nil, fmt.Errorf("%w: %s", ErrStaleTurn, req.QuestionID)
	}

	res := &TurnResult{SessionID: work.ID}
	text := strings.TrimSpace(req.Text)
	if len(req.Audio) > 0 {
		text, err = e.transcribe(ctx, req)
		if err != nil {
			return nil, err
		}
		if text == "" {
			text = unintelligible
			res.TranscriptionFailed = true
		}
	}
	res.Transcript = text

	questionID := work.CurrentQuestion.ID
	asked := work.QuestionsAsked
	turns := len(work.History)
	question := work.CurrentQuestion.Text

	now := e.now()
	work.Answer(text, now)
	work.QuestionsAsked++

	cov, err := e.tracker.Update(ctx, text, work.Topics)
	if err != nil {
		return nil, err
	}
	work.Topics = cov.Topics

	var reason string
	if work.Kind == session.KindCertification && work.Certification != nil {
		var score scoring.Result
		score, reason = e.certificationTurn(ctx, work, question, text, now)
		res.Score = &score
	} else {
		reason = e.interviewTurn(ctx, work, now)
	}

	added := work.History[turns:]
	saved, err := e.sessions.Update(ctx, work.ID, func(cur *session.Session) error {
		if cur.CurrentQuestion == nil || cur.CurrentQuestion.ID != questionID || cur.QuestionsAsked != asked {
			return ErrStaleTurn
		}
		cur.History = append(cur.History, added...)
		cur.Topics = mergeTopics(cur.Topics, work.Topics)
		cur.QuestionPool = mergePool(cur.QuestionPool, work.QuestionPool)
		cur.QuestionsAsked = work.QuestionsAsked
		cur.CurrentQuestion = work.CurrentQuestion
		cur.Certification = work.Certification
		cur.Status = session.StatusInProgress
		if reason != "" {
			cur.Complete(reason, now)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, session.ErrAlreadyCompleted) {
			e.log.Info("turn discarded, session ended meanwhile", "session_id", work.ID)
			return nil, fmt.Errorf("%w: %s", session.ErrAlreadyCompleted, work.ID)
		}
		return nil, err
	}

	res.Next = saved.CurrentQuestion
	res.Completed = saved.InterviewCompleted
	res.Reason = saved.CompletionReason
	res.Progress = session.BuildProgress(saved)

	e.log.Info("turn processed",
		"session_id", saved.ID,
		"questions_asked", saved.QuestionsAsked,
		"refined", len(cov.Refined),
		"completed", saved.InterviewCompleted,
		"reason", saved.CompletionReason,
	)
	var turnScore *float64
	if res.Score != nil {
		turnScore = &res.Score.Score
	}
	e.publish(ctx, events.SessionTurn, saved, "", turnScore)
	if saved.InterviewCompleted {
		e.publish(ctx, events.SessionCompleted, saved, saved.CompletionReason, overallScore(saved))
	}
	return res, nil
}

func (e *Engine) validateSubmit(req SubmitRequest) error {
	if strings.TrimSpace(req.SessionID) == "" {
		return fmt.Errorf("%w: session_id is required", ErrInvalidInput)
	}
	hasText := strings.TrimSpace(req.Text) != ""
	hasAudio := len(req.Audio) > 0
	switch {
	case hasText && hasAudio:
		return fmt.Errorf("%w: send either text or audio, not both", ErrInvalidInput)
	case !hasText && !hasAudio:
		return fmt.Errorf("%w: answer is empty", ErrInvalidInput)
	case hasText && e.cfg.MaxResponseChars > 0 && len(req.Text) > e.cfg.MaxResponseChars:
		return fmt.Errorf("%w: answer exceeds %d characters", ErrInvalidInput, e.cfg.MaxResponseChars)
	case hasAudio && e.transcriber == nil:
		return fmt.Errorf("%w: speech-to-text is not configured", ErrSpeechUnavailable)
	}
	return nil
}

// transcribe returns the trimmed transcript, or "" when the audio could not
// be understood. Only a cancelled caller context is an error.
func (e *Engine) transcribe(ctx context.Context, req SubmitRequest) (string, error) {
	tctx := ctx
	if e.cfg.TranscribeTimeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, e.cfg.TranscribeTimeout)
		defer cancel()
	}
	text, err := e.transcriber.Transcribe(tctx, req.Audio, req.MimeType)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		e.log.Warn("transcription failed, recording placeholder",
			"session_id", req.SessionID,
			"bytes", len(req.Audio),
			"error", err,
		)
		return "", nil
	}
	return strings.TrimSpace(text), nil
}

// interviewTurn decides whether the interview ends and otherwise asks the
// next question. It returns the completion reason or "".
func (e *Engine) interviewTurn(ctx context.Context, s *session.Session, now time.Time) string {
	if e.maxQuestionsReached(s) {
		return session.ReasonMaxQuestions
	}
	if e.cfg.AssessEvery > 0 && s.QuestionsAsked%e.cfg.AssessEvery == 0 {
		a := e.scorer.AssessInterview(ctx, scoring.AssessInput{
			Context:        s.InitialContext,
			Topics:         s.Topics,
			Transcript:     s.Transcript(0),
			QuestionsAsked: s.QuestionsAsked,
		})
		if a.Complete {
			e.log.Info("assessment ended interview", "session_id", s.ID, "reason", a.Reason)
			return session.ReasonAssessment
		}
	}
	if !e.askNext(ctx, s, now) {
		return session.ReasonNoQuestions
	}
	return ""
}

// certificationTurn scores the answer against the current scenario, then
// asks a follow-up, opens the next scenario or ends the attempt.
func (e *Engine) certificationTurn(ctx context.Context, s *session.Session, question, answer string, now time.Time) (scoring.Result, string) {
	a := s.Certification
	sc := a.Current()
	if sc == nil {
		return scoring.LengthFallback(answer), session.ReasonScenarios
	}
	sc.Say(certification.Respondent, answer, now)

	history := make([]scoring.Exchange, len(sc.Responses))
	for i, r := range sc.Responses {
		history[i] = scoring.Exchange{Question: r.Question, Response: r.Response}
	}
	score := e.scorer.Score(ctx, scoring.Input{
		ScenarioTitle:       sc.Title,
		ScenarioDescription: sc.Description,
		Question:            question,
		Response:            answer,
		History:             history,
		QuestionIndex:       len(sc.Responses) + 1,
	})
	// Current is non-nil here, so RecordResponse cannot fail.
	_ = a.RecordResponse(certification.ResponseRecord{
		Question:     question,
		Response:     answer,
		Score:        score.Score,
		Competencies: score.Competencies,
		Feedback:     score.Feedback,
		Fallback:     score.Fallback,
		Timestamp:    now,
	})

	if e.maxQuestionsReached(s) {
		_ = a.ScoreScenario()
		return score, session.ReasonMaxQuestions
	}
	if !score.RecommendComplete && e.askNext(ctx, s, now) {
		sc.Say(certification.Interviewer, s.CurrentQuestion.Text, now)
		return score, ""
	}

	e.log.Info("scenario scored",
		"session_id", s.ID,
		"scenario", sc.ID,
		"questions", sc.QuestionCount,
		"running_score", sc.RunningScore,
	)
	_ = a.ScoreScenario()
	if a.Advance() {
		e.askScenarioOpening(s, now)
		return score, ""
	}
	return score, session.ReasonScenarios
}

// maxQuestionsReached reports whether the session hit the hard question
// cap, which applies to both session kinds.
func (e *Engine) maxQuestionsReached(s *session.Session) bool {
	return e.cfg.MaxQuestions > 0 && s.QuestionsAsked >= e.cfg.MaxQuestions
}

// askNext tops up the pool when it runs low and asks the best unused
// question. It reports false when the pool is exhausted.
func (e *Engine) askNext(ctx context.Context, s *session.Session, now time.Time) bool {
	if e.bank.Config().NeedsReplenish(s.QuestionPool) {
		more := e.bank.Replenish(ctx, questionbank.BatchInput{
			Context: s.InitialContext,
			Topics:  s.Topics,
			Pool:    s.QuestionPool,
			Recent:  s.Transcript(e.cfg.RecentTurns),
		})
		s.QuestionPool = append(s.QuestionPool, more...)
	}

	sel, ok := questionbank.Select(s.QuestionPool, s.Topics)
	if !ok {
		return false
	}
	questionbank.MarkUsed(s.QuestionPool, sel.Question.ID)
	s.Ask(s.QuestionPool[sel.Index], now)
	e.log.Debug("question selected",
		"session_id", s.ID,
		"question_id", sel.Question.ID,
		"topic", sel.TopicID,
	)
	return true
}

// mergeTopics keeps the higher score of each topic so a concurrent writer
// can never lower coverage.
func mergeTopics(cur, next []coverage.Topic) []coverage.Topic {
	byID := make(map[string]coverage.Topic, len(next))
	for _, t := range next {
		byID[t.ID] = t
	}
	out := coverage.Clone(cur)
	for i := range out {
		n, ok := byID[out[i].ID]
		if !ok || n.CoverageScore < out[i].CoverageScore {
			continue
		}
		out[i] = n
	}
	return out
}

// mergePool appends questions cur lacks and carries over used flags.
func mergePool(cur, next []questionbank.Question) []questionbank.Question {
	out := questionbank.Clone(cur)
	index := make(map[string]int, len(out))
	for i, q := range out {
		index[q.ID] = i
	}
	for _, q := range next {
		i, ok := index[q.ID]
		if !ok {
			index[q.ID] = len(out)
			out = append(out, q)
			continue
		}
		if q.Used {
			out[i].Used = true
		}
	}
	return out
}

func overallScore(s *session.Session) *float64 {
	if s.Certification == nil {
		return nil
	}
	v := s.Certification.OverallScore
	return &v
}
