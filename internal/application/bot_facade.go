package application

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"telegram-phone-sales/internal/domain"
	"telegram-phone-sales/internal/domain/catalog"
	"telegram-phone-sales/internal/domain/model"
	"telegram-phone-sales/internal/infra/logging"
	"telegram-phone-sales/internal/usecase"
)

// Inbound is one text message from a participant.
type Inbound struct {
	TelegramID int64
	Text       string
	IsStart    bool
}

// Translator resolves reply keys to user-facing text.
type Translator interface {
	T(key string, args ...interface{}) string
}

// BotFacade composes usecases into the conversation flow.
// Methods return ready-to-send replies so the Telegram adapter just forwards them to the chat.
type BotFacade struct {
	Dialog    usecase.DialogUseCase
	Assistant usecase.AssistantUseCase
	Orders    usecase.OrderUseCase
	tr        Translator
	log       *zerolog.Logger
}

func NewBotFacade(
	dialogUC usecase.DialogUseCase,
	assistantUC usecase.AssistantUseCase,
	orderUC usecase.OrderUseCase,
	tr Translator,
	logger *zerolog.Logger,
) *BotFacade {
	l := logger.With().Str("component", "bot_facade").Logger()
	return &BotFacade{
		Dialog:    dialogUC,
		Assistant: assistantUC,
		Orders:    orderUC,
		tr:        tr,
		log:       &l,
	}
}

// HandleStart discards any dialog (including a failed order) and greets the participant.
func (b *BotFacade) HandleStart(ctx context.Context, tgID int64) []string {
	if err := b.reset(ctx, tgID); err != nil {
		return []string{b.tr.T("error_generic")}
	}
	return []string{b.tr.T("greeting")}
}

// HandleCancel resets like /start without the greeting.
func (b *BotFacade) HandleCancel(ctx context.Context, tgID int64) []string {
	if err := b.reset(ctx, tgID); err != nil {
		return []string{b.tr.T("error_generic")}
	}
	return []string{b.tr.T("cancelled")}
}

func (b *BotFacade) HandleHelp() string {
	return b.tr.T("help", catalog.BrandNames())
}

func (b *BotFacade) reset(ctx context.Context, tgID int64) error {
	b.Orders.Abandon(tgID)
	if err := b.Dialog.Reset(ctx, tgID); err != nil {
		logging.With(ctx, b.log).Error().Err(err).Msg("reset dialog")
		return err
	}
	return nil
}

// HandleMessage runs one inbound message through the dialog and returns the replies.
// Per-message failures become a reply; nothing is returned as an error.
func (b *BotFacade) HandleMessage(ctx context.Context, in Inbound) []string {
	defer logging.TraceDuration(b.log, "BotFacade.HandleMessage")()

	if in.IsStart {
		return b.HandleStart(ctx, in.TelegramID)
	}
	l := logging.With(ctx, b.log)

	cur, err := b.Dialog.Current(ctx, in.TelegramID)
	if err != nil {
		l.Error().Err(err).Msg("load dialog")
		return []string{b.tr.T("error_generic")}
	}
	// Confirmation is only held after a failed submission; any message retries it.
	if cur.Step == model.StepConfirmation {
		return b.submit(ctx, in.TelegramID, cur, nil)
	}

	tr, st, err := b.Dialog.Process(ctx, in.TelegramID, in.Text)
	if err != nil {
		l.Error().Err(err).Msg("process message")
		return []string{b.tr.T("error_generic")}
	}

	if tr.Err != nil {
		return []string{b.correction(*tr.Err)}
	}
	if !tr.Advanced() {
		return b.stay(ctx, st, in.Text)
	}

	switch tr.To {
	case model.StepSpecsSelection:
		return []string{b.askSpecs(tr.Brand)}
	case model.StepGetName:
		return []string{b.tr.T("ask_name")}
	case model.StepGetPhone:
		return []string{b.tr.T("ask_phone", st.Order.ClientName)}
	case model.StepConfirmation:
		summary := b.summary(st.Order)
		return b.submit(ctx, in.TelegramID, st, &summary)
	default:
		return []string{b.tr.T("error_generic")}
	}
}

// stay answers a message that did not move the dialog.
func (b *BotFacade) stay(ctx context.Context, st model.DialogState, text string) []string {
	switch st.Step {
	case model.StepStart:
		if strings.TrimSpace(text) == "" {
			return []string{b.tr.T("fallback_prompt", catalog.BrandNames())}
		}
		reply, err := b.Assistant.Reply(ctx, st, text)
		if err != nil {
			logging.With(ctx, b.log).Warn().Err(err).Msg("assistant reply")
			if errors.Is(err, domain.ErrGenerator) {
				return []string{b.tr.T("error_generic")}
			}
			return []string{b.tr.T("fallback_prompt", catalog.BrandNames())}
		}
		return []string{reply}
	case model.StepSpecsSelection:
		return []string{b.tr.T("ask_specs")}
	case model.StepGetName:
		return []string{b.tr.T("ask_name")}
	case model.StepGetPhone:
		return []string{b.tr.T("ask_phone", st.Order.ClientName)}
	default:
		return nil
	}
}

func (b *BotFacade) submit(ctx context.Context, tgID int64, st model.DialogState, summary *string) []string {
	var out []string
	if summary != nil {
		out = append(out, *summary)
	}
	if _, err := b.Orders.Submit(ctx, tgID, st); err != nil {
		if errors.Is(err, domain.ErrOrderIncomplete) {
			logging.With(ctx, b.log).Error().Err(err).Msg("confirmation reached without a complete order")
			_ = b.reset(ctx, tgID)
			return append(out, b.tr.T("error_generic"))
		}
		return append(out, b.tr.T("order_failed"))
	}
	if err := b.Dialog.Reset(ctx, tgID); err != nil {
		logging.With(ctx, b.log).Error().Err(err).Msg("reset after submission")
	}
	return append(out, b.tr.T("order_submitted"))
}

func (b *BotFacade) correction(tag model.ErrorTag) string {
	switch tag.Kind {
	case model.TagTooShort:
		return b.tr.T("error_phone_too_short")
	case model.TagWrongLength:
		return b.tr.T("error_phone_wrong_length", tag.Expected, tag.Got)
	case model.TagInvalidPrefix:
		return b.tr.T("error_phone_prefix")
	case model.TagNameValidationError:
		return b.tr.T("error_name")
	default:
		return b.tr.T("error_generic")
	}
}

const maxModelHints = 5

func (b *BotFacade) askSpecs(brand catalog.Brand) string {
	hints := catalog.ModelKeywords(brand)
	if len(hints) == 0 {
		return b.tr.T("ask_specs")
	}
	if len(hints) > maxModelHints {
		hints = hints[:maxModelHints]
	}
	for i, h := range hints {
		hints[i] = strings.ToUpper(h[:1]) + h[1:]
	}
	return b.tr.T("ask_specs_models", strings.Join(hints, ", "))
}

func (b *BotFacade) summary(o model.OrderData) string {
	return b.tr.T("order_summary", o.PhoneModel, o.Specifications, o.ClientName, o.ClientPhone)
}
