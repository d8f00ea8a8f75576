package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/pathfinder/internal/config"
	"github.com/MikeSquared-Agency/pathfinder/internal/conversation"
	"github.com/MikeSquared-Agency/pathfinder/internal/presenter"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant in the terminal",
	Long:  "Starts an interactive session. Type 'explore careers' to take the questionnaire, '/reset' to start over, '/quit' to leave.",
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	// Logs go to stderr so they do not interleave with the conversation.
	level := "warn"
	if cfg.LogLevel == "debug" {
		level = "debug"
	}
	setupLoggingTo(os.Stderr, level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := newApp(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer a.Close()

	term := &presenter.Terminal{Out: cmd.OutOrStdout(), Pacer: presenter.Pacer{Delay: cfg.FragmentDelay}}
	return chatLoop(ctx, a.ctrl, uuid.New().String(), cmd.InOrStdin(), term)
}

func chatLoop(ctx context.Context, ctrl *conversation.Controller, sessionID string, in io.Reader, term *presenter.Terminal) error {
	if err := term.Show(ctx, ctrl.Open(sessionID)); err != nil {
		return nil
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(term.Out, "you> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			if err := ctrl.Reset(sessionID); err != nil {
				return err
			}
			msgs, err := ctrl.Transcript(sessionID)
			if err != nil {
				return err
			}
			if err := term.Show(ctx, msgs); err != nil {
				return nil
			}
			continue
		}

		turn, err := ctrl.HandleTurn(ctx, sessionID, line)
		if err != nil {
			if errors.Is(err, conversation.ErrSessionReset) {
				continue
			}
			return err
		}
		if err := term.Show(ctx, turn.Messages); err != nil {
			return nil
		}
	}
}
