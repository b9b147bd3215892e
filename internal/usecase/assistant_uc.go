// File: internal/usecase/assistant_uc.go
package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"telegram-phone-sales/internal/domain"
	"telegram-phone-sales/internal/domain/model"
	"telegram-phone-sales/internal/domain/ports/adapter"
	"telegram-phone-sales/internal/infra/logging"
	"telegram-phone-sales/internal/infra/metrics"
)

// Compile-time check
var _ AssistantUseCase = (*assistantUC)(nil)

// AssistantUseCase produces a free-form reply when no canned prompt fits the message.
type AssistantUseCase interface {
	Reply(ctx context.Context, st model.DialogState, userMessage string) (string, error)
}

type assistantUC struct {
	ai           adapter.AIServiceAdapter
	model        string
	systemPrompt string
	maxTokens    int
	log          *zerolog.Logger
}

func NewAssistantUseCase(ai adapter.AIServiceAdapter, modelName, systemPrompt string, maxPromptTokens int, logger *zerolog.Logger) *assistantUC {
	return &assistantUC{
		ai:           ai,
		model:        modelName,
		systemPrompt: systemPrompt,
		maxTokens:    maxPromptTokens,
		log:          logger,
	}
}

func (a *assistantUC) Reply(ctx context.Context, st model.DialogState, userMessage string) (string, error) {
	defer logging.TraceDuration(a.log, "AssistantUC.Reply")()

	userMessage = strings.TrimSpace(userMessage)
	if userMessage == "" {
		return "", domain.ErrInvalidArgument
	}

	msgs := a.buildPrompt(st, userMessage)
	msgs = a.fit(ctx, msgs)

	start := time.Now()
	reply, usage, err := a.ai.ChatWithUsage(ctx, a.model, msgs)
	latency := int(time.Since(start).Milliseconds())
	metrics.ObserveChatUsage(a.ai.Name(), a.model, usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens, latency, err == nil)
	if err != nil {
		logging.With(ctx, a.log).Error().Err(err).Str("provider", a.ai.Name()).Msg("generator failed")
		return "", fmt.Errorf("%w: %v", domain.ErrGenerator, err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", fmt.Errorf("%w: empty reply", domain.ErrGenerator)
	}
	return reply, nil
}

func (a *assistantUC) buildPrompt(st model.DialogState, userMessage string) []adapter.Message {
	msgs := make([]adapter.Message, 0, 3)
	if a.systemPrompt != "" {
		msgs = append(msgs, adapter.Message{Role: "system", Content: a.systemPrompt})
	}
	if ctxLine := orderContext(st); ctxLine != "" {
		msgs = append(msgs, adapter.Message{Role: "system", Content: ctxLine})
	}
	return append(msgs, adapter.Message{Role: "user", Content: userMessage})
}

// orderContext tells the generator which slots are already known.
func orderContext(st model.DialogState) string {
	var parts []string
	if st.Order.PhoneModel != "" {
		parts = append(parts, "модель: "+st.Order.PhoneModel)
	}
	if st.Order.Specifications != "" {
		parts = append(parts, "характеристики: "+st.Order.Specifications)
	}
	if len(parts) == 0 {
		return ""
	}
	return "Уже известно о заказе клиента: " + strings.Join(parts, "; ")
}

// fit shortens the user message until the prompt is within the token budget.
// Counting errors are ignored and the prompt is sent as is.
func (a *assistantUC) fit(ctx context.Context, msgs []adapter.Message) []adapter.Message {
	if a.maxTokens <= 0 {
		return msgs
	}
	last := len(msgs) - 1
	for i := 0; i < 8; i++ {
		n, err := a.ai.CountTokens(ctx, a.model, msgs)
		if err != nil || n <= a.maxTokens {
			return msgs
		}
		r := []rune(msgs[last].Content)
		if len(r) < 16 {
			return msgs
		}
		msgs[last].Content = string(r[:len(r)/2])
		logging.With(ctx, a.log).Debug().Int("tokens", n).Int("budget", a.maxTokens).Msg("prompt trimmed")
	}
	return msgs
}
