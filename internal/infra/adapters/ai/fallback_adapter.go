// File: internal/infra/adapters/ai/fallback_adapter.go
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"telegram-phone-sales/internal/domain/ports/adapter"
	"telegram-phone-sales/internal/infra/metrics"
)

var _ adapter.AIServiceAdapter = (*FallbackAdapter)(nil)

// Provider pairs an adapter with the model it should be asked for.
type Provider struct {
	Adapter adapter.AIServiceAdapter
	Model   string
}

// FallbackAdapter tries providers in order and returns the first successful reply.
// The model argument of a call is ignored; every provider uses its own model.
type FallbackAdapter struct {
	providers []Provider
	log       *zerolog.Logger
}

func NewFallbackAdapter(logger *zerolog.Logger, providers ...Provider) (*FallbackAdapter, error) {
	var ps []Provider
	for _, p := range providers {
		if p.Adapter != nil {
			ps = append(ps, p)
		}
	}
	if len(ps) == 0 {
		return nil, errors.New("ai: no providers configured")
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "ai_fallback").Logger()
	return &FallbackAdapter{providers: ps, log: &l}, nil
}

func (f *FallbackAdapter) Name() string {
	names := make([]string, 0, len(f.providers))
	for _, p := range f.providers {
		names = append(names, p.Adapter.Name())
	}
	return strings.Join(names, ">")
}

// CountTokens asks the primary provider.
func (f *FallbackAdapter) CountTokens(ctx context.Context, _ string, messages []adapter.Message) (int, error) {
	p := f.providers[0]
	return p.Adapter.CountTokens(ctx, p.Model, messages)
}

func (f *FallbackAdapter) ChatWithUsage(ctx context.Context, _ string, messages []adapter.Message) (string, adapter.Usage, error) {
	var errs []error
	for i, p := range f.providers {
		reply, usage, err := p.Adapter.ChatWithUsage(ctx, p.Model, messages)
		if err == nil {
			return reply, usage, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", p.Adapter.Name(), err))
		if ctx.Err() != nil {
			break
		}
		if i < len(f.providers)-1 {
			metrics.IncAIFallback(p.Adapter.Name())
			f.log.Warn().Err(err).Str("provider", p.Adapter.Name()).Msg("provider failed, trying next")
		}
	}
	return "", adapter.Usage{}, errors.Join(errs...)
}

// PrimaryModel is the model of the first provider.
func (f *FallbackAdapter) PrimaryModel() string { return f.providers[0].Model }
