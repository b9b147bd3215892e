package telegram

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"telegram-phone-sales/internal/application"
	"telegram-phone-sales/internal/domain/ports/adapter"
	"telegram-phone-sales/internal/infra/logging"
	"telegram-phone-sales/internal/infra/metrics"
	red "telegram-phone-sales/internal/infra/redis"
)

// Conversation is the part of application.BotFacade the transport drives.
type Conversation interface {
	HandleMessage(ctx context.Context, in application.Inbound) []string
	HandleCancel(ctx context.Context, tgID int64) []string
	HandleHelp() string
}

// Translator resolves reply keys to user-facing text.
type Translator interface {
	T(key string, args ...interface{}) string
}

// RateLimiter is satisfied by redis.RateLimiter.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// incoming is a transport-neutral text message.
type incoming struct {
	ChatID  int64
	UserID  int64
	Text    string
	Command string // without the leading slash, empty for plain text
}

type commandHandler func(ctx context.Context, in incoming) error

// router turns incoming messages into facade calls and sends the replies through out.
type router struct {
	conv       Conversation
	out        adapter.TelegramBotAdapter
	tr         Translator
	limiter    RateLimiter
	rateLimit  int
	rateWindow time.Duration
	log        *zerolog.Logger
}

// commandRoutes defines all available bot commands and their handlers.
func (r *router) commandRoutes() map[string]commandHandler {
	return map[string]commandHandler{
		"start":  r.handleStartCommand,
		"cancel": r.handleCancelCommand,
		"help":   r.handleHelpCommand,
	}
}

func (r *router) route(ctx context.Context, in incoming) error {
	command := "message"
	if in.Command != "" {
		command = "/" + in.Command
	}

	if r.limiter != nil {
		allowed, err := r.limiter.Allow(ctx, red.UserCommandKey(in.UserID, command), r.rateLimit, r.rateWindow)
		if err != nil {
			// fail open
			logging.With(ctx, r.log).Warn().Err(err).Msg("rate limit check failed")
		} else if !allowed {
			metrics.IncRateLimitTriggered()
			return r.out.SendMessage(ctx, in.ChatID, r.tr.T("rate_limited"))
		}
	}

	if in.Command != "" {
		if fn, ok := r.commandRoutes()[strings.ToLower(in.Command)]; ok {
			metrics.IncTelegramCommand(command)
			return fn(ctx, in)
		}
		metrics.IncTelegramCommand("unknown")
		return r.handleHelpCommand(ctx, in)
	}

	metrics.IncTelegramCommand(command)
	return r.handleText(ctx, in)
}

func (r *router) handleStartCommand(ctx context.Context, in incoming) error {
	return r.sendAll(ctx, in.ChatID, r.conv.HandleMessage(ctx, application.Inbound{
		TelegramID: in.UserID,
		Text:       in.Text,
		IsStart:    true,
	}))
}

func (r *router) handleCancelCommand(ctx context.Context, in incoming) error {
	return r.sendAll(ctx, in.ChatID, r.conv.HandleCancel(ctx, in.UserID))
}

func (r *router) handleHelpCommand(ctx context.Context, in incoming) error {
	return r.out.SendMessage(ctx, in.ChatID, r.conv.HandleHelp())
}

func (r *router) handleText(ctx context.Context, in incoming) error {
	if err := r.out.SendTyping(ctx, in.ChatID); err != nil {
		logging.With(ctx, r.log).Debug().Err(err).Msg("typing indicator")
	}
	return r.sendAll(ctx, in.ChatID, r.conv.HandleMessage(ctx, application.Inbound{
		TelegramID: in.UserID,
		Text:       in.Text,
	}))
}

// sendAll delivers replies in order; it keeps going after a failed send and reports all failures.
func (r *router) sendAll(ctx context.Context, chatID int64, replies []string) error {
	var errs []error
	for _, text := range replies {
		if strings.TrimSpace(text) == "" {
			continue
		}
		if err := r.out.SendMessage(ctx, chatID, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
