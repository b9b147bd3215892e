// File: internal/usecase/dialog_uc.go
package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"telegram-phone-sales/internal/domain/dialog"
	"telegram-phone-sales/internal/domain/model"
	"telegram-phone-sales/internal/domain/ports/repository"
	"telegram-phone-sales/internal/infra/logging"
	"telegram-phone-sales/internal/infra/metrics"
)

// Compile-time check
var _ DialogUseCase = (*dialogUC)(nil)

// DialogUseCase applies inbound messages to the participant's dialog state.
type DialogUseCase interface {
	Process(ctx context.Context, tgID int64, text string) (dialog.Transition, model.DialogState, error)
	Current(ctx context.Context, tgID int64) (model.DialogState, error)
	Reset(ctx context.Context, tgID int64) error
}

type dialogUC struct {
	store repository.DialogStateStore
	log   *zerolog.Logger
}

func NewDialogUseCase(store repository.DialogStateStore, logger *zerolog.Logger) *dialogUC {
	return &dialogUC{store: store, log: logger}
}

// sized is implemented by stores that can report how many states they hold.
type sized interface{ Len() int }

func (d *dialogUC) Process(ctx context.Context, tgID int64, text string) (dialog.Transition, model.DialogState, error) {
	defer logging.TraceDuration(d.log, "DialogUC.Process")()

	var tr dialog.Transition
	st, err := d.store.Update(ctx, tgID, func(s *model.DialogState) error {
		tr = dialog.Advance(s, text)
		return nil
	})
	if err != nil {
		return dialog.Transition{}, model.DialogState{}, err
	}

	if tr.Advanced() {
		metrics.IncDialogTransition(tr.From.String(), tr.To.String())
		logging.With(ctx, d.log).Debug().
			Str("from", tr.From.String()).
			Str("to", tr.To.String()).
			Msg("dialog advanced")
	}
	if tr.Err != nil {
		metrics.IncValidationFailure(string(tr.Err.Kind))
		logging.With(ctx, d.log).Debug().Str("kind", string(tr.Err.Kind)).Str("step", tr.From.String()).Msg("slot rejected")
	}
	if s, ok := d.store.(sized); ok {
		metrics.SetDialogSessions(s.Len())
	}
	return tr, st, nil
}

func (d *dialogUC) Current(ctx context.Context, tgID int64) (model.DialogState, error) {
	return d.store.GetOrCreate(ctx, tgID)
}

func (d *dialogUC) Reset(ctx context.Context, tgID int64) error {
	if err := d.store.Reset(ctx, tgID); err != nil {
		return err
	}
	logging.With(ctx, d.log).Debug().Msg("dialog reset")
	return nil
}
