// Package conversation routes chat turns between free-form questions and the
// interest interview.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/MikeSquared-Agency/pathfinder/internal/anthropic"
	"github.com/MikeSquared-Agency/pathfinder/internal/hermes"
	"github.com/MikeSquared-Agency/pathfinder/internal/interview"
)

var (
	ErrEmptyMessage   = errors.New("conversation: empty message")
	ErrUnknownSession = errors.New("conversation: unknown session")

	// ErrSessionReset is returned by a turn whose session was reset while it
	// waited on the completion service. Its messages are discarded.
	ErrSessionReset = errors.New("conversation: session reset during turn")
)

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

type Message struct {
	Text   string `json:"text"`
	Sender Sender `json:"sender"`
}

// Turn is what one HandleTurn call appended: the user echo, then bot messages.
type Turn struct {
	Messages   []Message `json:"messages"`
	Finished   bool      `json:"interview_finished,omitempty"`
	ResultCode string    `json:"result_code,omitempty"`
}

// Completer generates text for a prompt.
type Completer interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Publisher receives interview lifecycle events.
type Publisher interface {
	Publish(subject string, data any) error
}

type session struct {
	// turn serializes HandleTurn calls. Reset never takes it.
	turn sync.Mutex

	mu         sync.Mutex
	generation uint64
	interview  *interview.Session
	transcript []Message
	lastActive time.Time
	pruned     bool
}

type Controller struct {
	engine    *interview.Engine
	completer Completer
	publisher Publisher
	maxTokens int
	logger    *slog.Logger
	now       func() time.Time

	// afterEcho runs once the echo is recorded, before routing. Tests only.
	afterEcho func(sessionID string)

	mu       sync.Mutex
	sessions map[string]*session
}

// New builds a Controller. publisher may be nil.
func New(engine *interview.Engine, completer Completer, publisher Publisher, maxTokens int, logger *slog.Logger) *Controller {
	return &Controller{
		engine:    engine,
		completer: completer,
		publisher: publisher,
		maxTokens: maxTokens,
		logger:    logger,
		now:       time.Now,
		sessions:  make(map[string]*session),
	}
}

// Open creates the session if needed and returns its transcript, which
// starts with the welcome message.
func (c *Controller) Open(sessionID string) []Message {
	c.mu.Lock()
	s, ok := c.sessions[sessionID]
	if !ok {
		s = &session{
			transcript: []Message{{Text: WelcomeMessage, Sender: SenderBot}},
			lastActive: c.now(),
		}
		c.sessions[sessionID] = s
		c.logger.Debug("session opened", "session_id", sessionID)
	}
	c.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.transcript...)
}

func (c *Controller) lookup(sessionID string) (*session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	return s, nil
}

// Transcript returns a copy of the session's messages in order.
func (c *Controller) Transcript(sessionID string) ([]Message, error) {
	s, err := c.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.transcript...), nil
}

// InterviewState returns a snapshot of the session's interview. The bool is
// false when no interview is running.
func (c *Controller) InterviewState(sessionID string) (interview.Session, bool, error) {
	s, err := c.lookup(sessionID)
	if err != nil {
		return interview.Session{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.interview == nil {
		return interview.Session{}, false, nil
	}
	snap := *s.interview
	snap.History = append([]interview.Answer(nil), s.interview.History...)
	return snap, true, nil
}

// Reset clears the transcript back to the welcome message and abandons any
// running interview without finalizing it. A turn still waiting on the
// completion service is invalidated.
func (c *Controller) Reset(sessionID string) error {
	s, err := c.lookup(sessionID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	if s.interview != nil {
		c.engine.Abandon(sessionID)
		s.interview = nil
	}
	s.transcript = []Message{{Text: WelcomeMessage, Sender: SenderBot}}
	s.lastActive = c.now()
	c.logger.Info("session reset", "session_id", sessionID, "generation", s.generation)
	return nil
}

// Prune drops sessions idle for longer than maxIdle, abandoning any running
// interview. Sessions with a turn in progress are kept. It returns the number
// of sessions removed.
func (c *Controller) Prune(maxIdle time.Duration) int {
	cutoff := c.now().Add(-maxIdle)

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for id, s := range c.sessions {
		if !s.turn.TryLock() {
			continue
		}
		s.mu.Lock()
		if s.lastActive.Before(cutoff) {
			s.generation++
			if s.interview != nil {
				c.engine.Abandon(id)
				s.interview = nil
			}
			s.pruned = true
			delete(c.sessions, id)
			removed++
		}
		s.mu.Unlock()
		s.turn.Unlock()
	}
	if removed > 0 {
		c.logger.Info("idle sessions pruned", "removed", removed, "remaining", len(c.sessions))
	}
	return removed
}

// HandleTurn processes one user message for the session. The echo keeps text
// as typed; routing and prompts use the trimmed form.
func (c *Controller) HandleTurn(ctx context.Context, sessionID, text string) (Turn, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Turn{}, ErrEmptyMessage
	}
	s, err := c.lookup(sessionID)
	if err != nil {
		return Turn{}, err
	}

	s.turn.Lock()
	defer s.turn.Unlock()

	echo := Message{Text: text, Sender: SenderUser}
	s.mu.Lock()
	if s.pruned {
		s.mu.Unlock()
		return Turn{}, fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	gen := s.generation
	s.transcript = append(s.transcript, echo)
	s.lastActive = c.now()
	iv := s.interview
	s.mu.Unlock()

	if c.afterEcho != nil {
		c.afterEcho(sessionID)
	}

	switch {
	case iv != nil:
		return c.answer(ctx, s, gen, iv, echo)
	case interview.IsTriggerPhrase(trimmed):
		return c.begin(s, gen, sessionID, echo)
	default:
		return c.query(ctx, s, gen, sessionID, echo, trimmed)
	}
}

func (c *Controller) begin(s *session, gen uint64, sessionID string, echo Message) (Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		c.logger.Info("discarding stale turn", "session_id", sessionID)
		return Turn{}, ErrSessionReset
	}

	q, sess, err := c.engine.Begin(sessionID)
	if err != nil {
		return Turn{}, fmt.Errorf("begin interview: %w", err)
	}
	s.interview = sess

	msg := Message{Text: q.Text, Sender: SenderBot}
	s.transcript = append(s.transcript, msg)

	c.publish(hermes.SubjectInterviewStarted, hermes.InterviewStarted{
		SessionID: sessionID,
		Questions: len(c.engine.Questions()),
		StartedAt: sess.StartedAt,
	})
	return Turn{Messages: []Message{echo, msg}}, nil
}

func (c *Controller) answer(ctx context.Context, s *session, gen uint64, iv *interview.Session, echo Message) (Turn, error) {
	preview, err := c.engine.Preview(iv, echo.Text)
	if err != nil {
		return Turn{}, fmt.Errorf("preview answer: %w", err)
	}

	reply, genErr := c.completer.Generate(ctx, interviewPrompt(preview.History, preview.Next), c.maxTokens)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		c.logger.Info("discarding stale turn", "session_id", iv.SessionID)
		return Turn{}, ErrSessionReset
	}

	if genErr != nil {
		return c.appendFailure(s, iv.SessionID, echo, genErr), nil
	}

	step, err := c.engine.SubmitAnswer(ctx, iv, echo.Text)
	if err != nil {
		return Turn{}, fmt.Errorf("submit answer: %w", err)
	}

	last := step.History[len(step.History)-1]
	c.publish(hermes.SubjectInterviewAnswered, hermes.InterviewAnswered{
		SessionID:     iv.SessionID,
		QuestionIndex: last.Question.Index,
		Category:      string(last.Question.Category),
		Score:         last.Score,
		Persisted:     step.Persisted,
	})

	fragments := SplitFragments(reply)
	if len(fragments) == 0 && step.Next != nil {
		fragments = []string{step.Next.Text}
	}
	turn := Turn{Messages: []Message{echo}}
	for _, f := range fragments {
		msg := Message{Text: f, Sender: SenderBot}
		s.transcript = append(s.transcript, msg)
		turn.Messages = append(turn.Messages, msg)
	}

	if step.Finished {
		s.interview = nil
		turn.Finished = true
		turn.ResultCode = step.ResultCode
		c.publish(hermes.SubjectInterviewCompleted, hermes.InterviewCompleted{
			SessionID:  iv.SessionID,
			Answers:    len(step.History),
			ResultCode: step.ResultCode,
		})
	}
	return turn, nil
}

func (c *Controller) query(ctx context.Context, s *session, gen uint64, sessionID string, echo Message, question string) (Turn, error) {
	reply, genErr := c.completer.Generate(ctx, queryPrompt(question), c.maxTokens)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		c.logger.Info("discarding stale turn", "session_id", sessionID)
		return Turn{}, ErrSessionReset
	}

	if genErr != nil {
		return c.appendFailure(s, sessionID, echo, genErr), nil
	}

	turn := Turn{Messages: []Message{echo}}
	for _, f := range SplitFragments(reply) {
		msg := Message{Text: f, Sender: SenderBot}
		s.transcript = append(s.transcript, msg)
		turn.Messages = append(turn.Messages, msg)
	}
	return turn, nil
}

// appendFailure records a single connection-error message. Caller holds s.mu.
func (c *Controller) appendFailure(s *session, sessionID string, echo Message, err error) Turn {
	c.logger.Error("completion failed", "session_id", sessionID, "error", err)
	msg := Message{Text: "Connection error: " + failureReason(err), Sender: SenderBot}
	s.transcript = append(s.transcript, msg)
	return Turn{Messages: []Message{echo, msg}}
}

func failureReason(err error) string {
	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

func (c *Controller) publish(subject string, data any) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(subject, data); err != nil {
		c.logger.Warn("event publish failed", "subject", subject, "error", err)
	}
}
