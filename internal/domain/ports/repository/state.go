package repository

import (
	"context"

	"telegram-phone-sales/internal/domain/model"
)

// DialogStateStore owns the per-participant dialog state.
// Implementations must serialize Update calls for the same participant; calls for
// different participants must not block each other.
type DialogStateStore interface {
	// GetOrCreate returns a snapshot of the participant's state, creating it on first contact.
	GetOrCreate(ctx context.Context, tgID int64) (model.DialogState, error)
	// Update runs fn on the live state while holding the participant's lock and
	// returns a snapshot taken after fn. fn must not block.
	Update(ctx context.Context, tgID int64, fn func(s *model.DialogState) error) (model.DialogState, error)
	// Reset puts the participant back at the start step.
	Reset(ctx context.Context, tgID int64) error
}
