package telegram

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"telegram-phone-sales/internal/domain/ports/adapter"
)

var _ adapter.TelegramBotAdapter = (*NoopBotAdapter)(nil)

// NoopBotAdapter implements adapter.TelegramBotAdapter for local runs.
// Replies are written to w instead of the Bot API.
type NoopBotAdapter struct {
	mu  sync.Mutex
	w   io.Writer
	log *zerolog.Logger
}

func NewNoopBotAdapter(w io.Writer, logger *zerolog.Logger) *NoopBotAdapter {
	l := logger.With().Str("component", "noop_telegram").Logger()
	return &NoopBotAdapter{w: w, log: &l}
}

func (b *NoopBotAdapter) SendMessage(ctx context.Context, tgID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := fmt.Fprintf(b.w, "bot> %s\n", text)
	return err
}

func (b *NoopBotAdapter) SendTyping(ctx context.Context, tgID int64) error {
	b.log.Trace().Int64("tg_id", tgID).Msg("typing")
	return ctx.Err()
}

// ConsoleOptions configures RunConsole.
type ConsoleOptions struct {
	Conversation Conversation
	Translator   Translator
	Out          *NoopBotAdapter
	// UserID is the participant id every console line is attributed to.
	UserID int64
	Logger *zerolog.Logger
}

// RunConsole feeds lines from r through the same routing as the polling bot, one participant,
// until r is exhausted or ctx is done.
func RunConsole(ctx context.Context, r io.Reader, o ConsoleOptions) error {
	rt := &router{
		conv: o.Conversation,
		out:  o.Out,
		tr:   o.Translator,
		log:  o.Logger,
	}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(sc.Text())
		if err := rt.route(ctx, parseLine(o.UserID, line)); err != nil {
			o.Logger.Warn().Err(err).Msg("console reply")
		}
	}
	return sc.Err()
}

func parseLine(userID int64, line string) incoming {
	in := incoming{ChatID: userID, UserID: userID, Text: line}
	if strings.HasPrefix(line, "/") {
		cmd := strings.Fields(line)[0][1:]
		if i := strings.IndexByte(cmd, '@'); i >= 0 {
			cmd = cmd[:i]
		}
		in.Command = cmd
	}
	return in
}
