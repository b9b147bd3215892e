package ai

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-phone-sales/internal/domain/ports/adapter"
)

var _ adapter.AIServiceAdapter = (*NoopAIAdapter)(nil)

// NoopAIAdapter implements adapter.AIServiceAdapter for local/dev testing.
// It logs the prompt and answers with a fixed reply.
type NoopAIAdapter struct {
	reply string
	log   *zerolog.Logger
}

func NewNoopAIAdapter(reply string, logger *zerolog.Logger) *NoopAIAdapter {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &NoopAIAdapter{reply: reply, log: logger}
}

func (a *NoopAIAdapter) Name() string { return "noop" }

func (a *NoopAIAdapter) CountTokens(_ context.Context, _ string, messages []adapter.Message) (int, error) {
	n := 0
	for _, m := range messages {
		n += estimateTokens(m.Content)
	}
	return n, nil
}

func (a *NoopAIAdapter) ChatWithUsage(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	// Simulate processing and respect ctx
	select {
	case <-time.After(50 * time.Millisecond):
	case <-ctx.Done():
		return "", adapter.Usage{}, ctx.Err()
	}
	a.log.Debug().Str("model", model).Int("messages", len(messages)).Msg("noop ai chat")
	in, _ := a.CountTokens(ctx, model, messages)
	out := estimateTokens(a.reply)
	return a.reply, adapter.Usage{PromptTokens: in, CompletionTokens: out, TotalTokens: in + out}, nil
}
