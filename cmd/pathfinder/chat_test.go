package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/pathfinder/internal/config"
	"github.com/MikeSquared-Agency/pathfinder/internal/conversation"
	"github.com/MikeSquared-Agency/pathfinder/internal/interview"
	"github.com/MikeSquared-Agency/pathfinder/internal/presenter"
	"github.com/MikeSquared-Agency/pathfinder/internal/scoring"
	"github.com/MikeSquared-Agency/pathfinder/internal/store"
)

type echoCompleter struct{}

func (echoCompleter) Generate(context.Context, string, int) (string, error) {
	return "Great answer!|SPLIT|Keep going", nil
}

func newTestController(t *testing.T) (*conversation.Controller, []interview.Question) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	questions, err := config.LoadQuestions("")
	require.NoError(t, err)

	s := store.NewMemory()
	engine, err := interview.NewEngine(questions, s, scoring.NewAggregator(s, questions, logger), logger)
	require.NoError(t, err)
	return conversation.New(engine, echoCompleter{}, nil, 300, logger), questions
}

func TestChatLoop_Questionnaire(t *testing.T) {
	ctrl, questions := newTestController(t)
	var out bytes.Buffer
	term := &presenter.Terminal{Out: &out}

	in := strings.NewReader("explore careers\n4\n\n/reset\n/quit\nnever read\n")
	err := chatLoop(context.Background(), ctrl, "cli", in, term)
	require.NoError(t, err)

	got := out.String()
	assert.True(t, strings.HasPrefix(got, "bot> "+conversation.WelcomeMessage+"\n"))
	assert.Contains(t, got, "bot> "+questions[0].Text+"\n")
	assert.Contains(t, got, "bot> Great answer!\nbot> Keep going\n")
	assert.Equal(t, 2, strings.Count(got, conversation.WelcomeMessage), "reset shows the welcome again")
	assert.NotContains(t, got, "never read")
}

func TestChatLoop_EOF(t *testing.T) {
	ctrl, _ := newTestController(t)
	term := &presenter.Terminal{Out: io.Discard}

	err := chatLoop(context.Background(), ctrl, "cli", strings.NewReader("hello"), term)
	assert.NoError(t, err)
}

func TestNewApp_UnknownStore(t *testing.T) {
	cfg := config.Config{StoreBackend: "dynamo", AnthropicAPIKey: "k"}
	_, err := newApp(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown PATHFINDER_STORE")
}

func TestNewApp_RequiresAPIKey(t *testing.T) {
	cfg := config.Config{StoreBackend: "memory"}
	_, err := newApp(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")
}

func TestNewApp_SQLite(t *testing.T) {
	cfg := config.Config{
		StoreBackend:    "sqlite",
		SQLitePath:      t.TempDir() + "/pathfinder.db",
		AnthropicAPIKey: "k",
		AnthropicModel:  "test-model",
		MaxTokens:       300,
	}
	a, err := newApp(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.ctrl)
	assert.Nil(t, a.events)
	_, ok := a.scores.(*store.SQLite)
	assert.True(t, ok)
}

func TestPruneSessions_StopsWithContext(t *testing.T) {
	ctrl, _ := newTestController(t)
	a := &app{ctrl: ctrl}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pruneSessions(ctx, a, time.Hour)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pruneSessions did not stop")
	}

	// A zero ttl disables pruning and returns immediately.
	pruneSessions(context.Background(), a, 0)
}
