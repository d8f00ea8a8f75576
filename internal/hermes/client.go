package hermes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Interview lifecycle subjects.
const (
	SubjectInterviewStarted   = "pathfinder.interview.started"
	SubjectInterviewAnswered  = "pathfinder.interview.answered"
	SubjectInterviewCompleted = "pathfinder.interview.completed"

	SubjectServiceRegistered = "pathfinder.service.registered"
)

// InterviewStarted is published when a session begins the questionnaire.
type InterviewStarted struct {
	SessionID string    `json:"session_id"`
	Questions int       `json:"questions"`
	StartedAt time.Time `json:"started_at"`
}

// InterviewAnswered is published once per committed answer.
type InterviewAnswered struct {
	SessionID     string `json:"session_id"`
	QuestionIndex int    `json:"question_index"`
	Category      string `json:"category"`
	Score         int    `json:"score"`
	Persisted     bool   `json:"persisted"`
}

// InterviewCompleted is published after the last answer. ResultCode is empty
// when finalization failed.
type InterviewCompleted struct {
	SessionID  string `json:"session_id"`
	Answers    int    `json:"answers"`
	ResultCode string `json:"result_code,omitempty"`
}

type Client struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewClient(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

func (c *Client) Close() {
	if err := c.conn.Drain(); err != nil {
		c.logger.Warn("nats drain failed", "error", err)
		c.conn.Close()
	}
}
