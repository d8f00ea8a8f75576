// Package interview runs the scripted interest-inventory questionnaire.
package interview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/MikeSquared-Agency/pathfinder/internal/store"
)

// TriggerPhrase starts an interview when contained in a user message.
const TriggerPhrase = "explore careers"

var (
	// ErrInvalidState is a caller contract violation: Begin while active, or
	// SubmitAnswer while inactive.
	ErrInvalidState = errors.New("interview: invalid state")

	// ErrNoQuestions is returned by NewEngine for an empty question bank.
	ErrNoQuestions = errors.New("interview: no questions configured")
)

// Finalizer computes and persists the result code once an interview ends.
type Finalizer interface {
	Finalize(ctx context.Context, sessionID string) (string, error)
}

// Engine owns the question sequence and the active interviews.
type Engine struct {
	questions []Question
	store     store.ScoreStore
	finalizer Finalizer
	logger    *slog.Logger
	now       func() time.Time

	mu     sync.Mutex
	active map[string]*Session
}

func NewEngine(questions []Question, s store.ScoreStore, f Finalizer, logger *slog.Logger) (*Engine, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	qs := make([]Question, len(questions))
	copy(qs, questions)
	for i := range qs {
		qs[i].Index = i
	}
	return &Engine{
		questions: qs,
		store:     s,
		finalizer: f,
		logger:    logger,
		now:       time.Now,
		active:    make(map[string]*Session),
	}, nil
}

// Questions returns a copy of the configured sequence.
func (e *Engine) Questions() []Question {
	out := make([]Question, len(e.questions))
	copy(out, e.questions)
	return out
}

// IsTriggerPhrase reports whether text asks to start the interview.
func IsTriggerPhrase(text string) bool {
	return strings.Contains(strings.ToLower(text), TriggerPhrase)
}

func (e *Engine) IsTriggerPhrase(text string) bool {
	return IsTriggerPhrase(text)
}

// Begin starts a fresh interview for sessionID and returns the first question.
func (e *Engine) Begin(sessionID string) (Question, *Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if s, ok := e.active[sessionID]; ok && s.Active {
		return Question{}, nil, fmt.Errorf("%w: interview already active for session %s", ErrInvalidState, sessionID)
	}

	sess := &Session{
		SessionID: sessionID,
		Active:    true,
		StartedAt: e.now(),
	}
	e.active[sessionID] = sess

	e.logger.Info("interview started", "session_id", sessionID, "questions", len(e.questions))
	return e.questions[0], sess, nil
}

// Abandon drops the active interview for sessionID without finalizing it.
// Any persisted partial record is left in place.
func (e *Engine) Abandon(sessionID string) {
	e.mu.Lock()
	sess, ok := e.active[sessionID]
	delete(e.active, sessionID)
	e.mu.Unlock()

	if ok {
		e.logger.Info("interview abandoned", "session_id", sessionID, "answered", len(sess.History))
	}
}

// Preview returns the StepResult SubmitAnswer would produce, without mutating
// the session or touching the store.
func (e *Engine) Preview(sess *Session, raw string) (StepResult, error) {
	if sess == nil || !sess.Active {
		return StepResult{}, fmt.Errorf("%w: no active interview", ErrInvalidState)
	}

	history := make([]Answer, len(sess.History), len(sess.History)+1)
	copy(history, sess.History)
	history = append(history, Answer{
		Question: e.questions[sess.Index],
		Raw:      raw,
		Score:    ParseScore(raw),
	})

	next := sess.Index + 1
	if next < len(e.questions) {
		q := e.questions[next]
		return StepResult{Next: &q, History: history}, nil
	}
	return StepResult{Finished: true, History: history}, nil
}

// SubmitAnswer records raw as the answer to the current question, persists
// its score and advances. The final answer deactivates the session and
// finalizes the result code.
func (e *Engine) SubmitAnswer(ctx context.Context, sess *Session, raw string) (StepResult, error) {
	if sess == nil || !sess.Active {
		return StepResult{}, fmt.Errorf("%w: no active interview", ErrInvalidState)
	}

	q := e.questions[sess.Index]
	score := ParseScore(raw)
	sess.History = append(sess.History, Answer{Question: q, Raw: raw, Score: score})

	var result StepResult
	if err := e.recordScore(ctx, sess, q.Category, score); err != nil {
		e.logger.Warn("score not persisted",
			"session_id", sess.SessionID,
			"question", q.Index,
			"category", q.Category,
			"error", err,
		)
		result.Warnings = append(result.Warnings, err)
	} else {
		result.Persisted = true
	}

	sess.Index++
	result.History = append([]Answer(nil), sess.History...)

	if sess.Index < len(e.questions) {
		next := e.questions[sess.Index]
		result.Next = &next
		return result, nil
	}

	sess.Active = false
	e.mu.Lock()
	if cur, ok := e.active[sess.SessionID]; ok && cur == sess {
		delete(e.active, sess.SessionID)
	}
	e.mu.Unlock()
	result.Finished = true

	if e.finalizer != nil {
		code, err := e.finalizer.Finalize(ctx, sess.SessionID)
		if err != nil {
			e.logger.Warn("result not finalized", "session_id", sess.SessionID, "error", err)
			result.Warnings = append(result.Warnings, err)
		} else {
			result.ResultCode = code
		}
	}

	e.logger.Info("interview finished",
		"session_id", sess.SessionID,
		"result_code", result.ResultCode,
		"warnings", len(result.Warnings),
	)
	return result, nil
}

// recordScore adds score to the session's record, creating the record on the
// first answer.
func (e *Engine) recordScore(ctx context.Context, sess *Session, cat Category, score int) error {
	if e.store == nil {
		return nil
	}
	err := e.store.Increment(ctx, sess.SessionID, string(cat), score)
	if err == nil {
		return nil
	}

	switch store.KindOf(err) {
	case store.KindNotFound:
		if cerr := e.store.Create(ctx, sess.SessionID, map[string]int{string(cat): score}, sess.StartedAt); cerr != nil {
			return fmt.Errorf("create score record: %w", cerr)
		}
		return nil
	default:
		return fmt.Errorf("increment score: %w", err)
	}
}

// ParseScore reads a leading integer from raw, returning 0 when there is none.
func ParseScore(raw string) int {
	s := strings.TrimSpace(raw)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}
