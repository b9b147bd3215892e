package telegram

import (
	"context"
	"errors"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-phone-sales/internal/config"
	"telegram-phone-sales/internal/domain/ports/adapter"
	"telegram-phone-sales/internal/infra/logging"
	"telegram-phone-sales/internal/infra/metrics"
	"telegram-phone-sales/internal/infra/worker"
)

var _ adapter.TelegramBotAdapter = (*RealTelegramBotAdapter)(nil)

// botAPI is the subset of *tgbotapi.BotAPI the adapter uses.
type botAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Options carries the collaborators of the polling adapter.
type Options struct {
	Conversation Conversation
	Translator   Translator
	Limiter      RateLimiter // optional
	RateLimit    int
	RateWindow   time.Duration
	Pool         *worker.KeyedPool
	Logger       *zerolog.Logger
}

// RealTelegramBotAdapter long-polls the Bot API and hands every message to a keyed
// worker pool, so one participant's messages are handled strictly in order.
type RealTelegramBotAdapter struct {
	api    botAPI
	router *router
	pool   *worker.KeyedPool
	tr     Translator
	log    *zerolog.Logger
}

func NewRealTelegramBotAdapter(cfg *config.BotConfig, opts Options) (*RealTelegramBotAdapter, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	opts.Logger.Info().Str("username", bot.Self.UserName).Msg("authorized on telegram")
	return newRealBot(bot, opts)
}

func newRealBot(api botAPI, opts Options) (*RealTelegramBotAdapter, error) {
	if opts.Conversation == nil {
		return nil, errors.New("conversation is nil")
	}
	if opts.Pool == nil {
		return nil, errors.New("worker pool is nil")
	}
	l := opts.Logger.With().Str("component", "telegram").Logger()
	r := &RealTelegramBotAdapter{
		api:  api,
		pool: opts.Pool,
		tr:   opts.Translator,
		log:  &l,
	}
	r.router = &router{
		conv:       opts.Conversation,
		out:        r,
		tr:         opts.Translator,
		limiter:    opts.Limiter,
		rateLimit:  opts.RateLimit,
		rateWindow: opts.RateWindow,
		log:        &l,
	}
	return r, nil
}

// StartPolling blocks until ctx is cancelled or the update channel closes.
func (r *RealTelegramBotAdapter) StartPolling(ctx context.Context) error {
	if err := r.SetMenuCommands(ctx); err != nil {
		r.log.Warn().Err(err).Msg("failed to set menu commands")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := r.api.GetUpdatesChan(u)

	r.pool.Start(ctx)
	defer r.pool.Stop()

	for {
		select {
		case <-ctx.Done():
			r.api.StopReceivingUpdates()
			return ctx.Err()
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			r.dispatch(ctx, up)
		}
	}
}

func (r *RealTelegramBotAdapter) dispatch(ctx context.Context, up tgbotapi.Update) {
	msg := up.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		metrics.IncUpdateProcessed("skipped")
		return
	}
	in := incoming{
		ChatID:  msg.Chat.ID,
		UserID:  msg.From.ID,
		Text:    msg.Text,
		Command: msg.Command(),
	}
	traceID := logging.NewTraceID()

	err := r.pool.Submit(ctx, in.UserID, func(ctx context.Context) error {
		ctx = logging.WithTgID(logging.WithTraceID(ctx, traceID), in.UserID)
		if err := r.router.route(ctx, in); err != nil {
			metrics.IncUpdateProcessed("failed")
			return err
		}
		metrics.IncUpdateProcessed("ok")
		return nil
	})
	if err != nil {
		metrics.IncUpdateProcessed("dropped")
		r.log.Warn().Err(err).Str("trace_id", traceID).Int64("tg_id", in.UserID).Msg("update dropped")
	}
}

func (r *RealTelegramBotAdapter) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := r.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		metrics.IncTelegramSendFailure()
		logging.With(ctx, r.log).Error().Err(err).Msg("send message")
		return err
	}
	return nil
}

// SendTyping shows the "typing" chat action. The Bot API answers it with a bare
// boolean, so it goes through Request rather than Send.
func (r *RealTelegramBotAdapter) SendTyping(ctx context.Context, chatID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := r.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
	return err
}

// SetMenuCommands publishes the command list shown in the Telegram client menu.
func (r *RealTelegramBotAdapter) SetMenuCommands(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cmds := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "start", Description: r.tr.T("cmd_start")},
		tgbotapi.BotCommand{Command: "cancel", Description: r.tr.T("cmd_cancel")},
		tgbotapi.BotCommand{Command: "help", Description: r.tr.T("cmd_help")},
	)
	_, err := r.api.Request(cmds)
	return err
}
