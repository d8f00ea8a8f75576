// Package presenter renders conversation messages for a terminal.
package presenter

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/MikeSquared-Agency/pathfinder/internal/conversation"
)

// Pacer emits messages in order with Delay between consecutive ones.
type Pacer struct {
	Delay time.Duration
}

// Play calls emit for each message, the first immediately. It stops early
// and returns ctx.Err() if ctx is cancelled between messages.
func (p Pacer) Play(ctx context.Context, msgs []conversation.Message, emit func(conversation.Message)) error {
	for i, m := range msgs {
		if i > 0 && p.Delay > 0 {
			timer := time.NewTimer(p.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		emit(m)
	}
	return nil
}

// Terminal writes messages as prefixed lines.
type Terminal struct {
	Out   io.Writer
	Pacer Pacer
}

func (t *Terminal) Write(m conversation.Message) {
	prefix := "bot"
	if m.Sender == conversation.SenderUser {
		prefix = "you"
	}
	fmt.Fprintf(t.Out, "%s> %s\n", prefix, m.Text)
}

// Show plays the bot messages of a turn. The user echo is skipped since the
// terminal already shows what was typed.
func (t *Terminal) Show(ctx context.Context, msgs []conversation.Message) error {
	bot := make([]conversation.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Sender == conversation.SenderBot {
			bot = append(bot, m)
		}
	}
	return t.Pacer.Play(ctx, bot, t.Write)
}
