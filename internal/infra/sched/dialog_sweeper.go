package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-phone-sales/internal/infra/metrics"
)

// IdleEvicter drops dialog states not touched since a cutoff.
type IdleEvicter interface {
	EvictIdle(ctx context.Context, before time.Time) ([]int64, error)
	Len() int
}

// Abandoner forgets per-participant order bookkeeping.
type Abandoner interface {
	Abandon(tgID int64)
}

// DialogSweeper periodically evicts dialogs idle for longer than ttl, together with any
// failed order still waiting for a retry from that participant.
type DialogSweeper struct {
	interval time.Duration
	ttl      time.Duration
	store    IdleEvicter
	orders   Abandoner
	log      *zerolog.Logger
}

func NewDialogSweeper(interval, ttl time.Duration, store IdleEvicter, orders Abandoner, logger *zerolog.Logger) *DialogSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	l := logger.With().Str("component", "DialogSweeper").Logger()
	return &DialogSweeper{
		interval: interval,
		ttl:      ttl,
		store:    store,
		orders:   orders,
		log:      &l,
	}
}

func (w *DialogSweeper) Run(ctx context.Context) error {
	w.log.Info().Dur("ttl", w.ttl).Msg("Starting dialog sweeper")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping dialog sweeper")
			return ctx.Err()
		case now := <-ticker.C:
			w.Sweep(ctx, now)
		}
	}
}

// Sweep runs one eviction pass relative to now and returns the number of evicted dialogs.
func (w *DialogSweeper) Sweep(ctx context.Context, now time.Time) int {
	ids, err := w.store.EvictIdle(ctx, now.Add(-w.ttl))
	if err != nil {
		w.log.Error().Err(err).Msg("dialog sweep failed")
		return 0
	}
	for _, id := range ids {
		if w.orders != nil {
			w.orders.Abandon(id)
		}
	}
	metrics.SetDialogSessions(w.store.Len())
	if len(ids) > 0 {
		metrics.AddDialogEvicted(len(ids))
		w.log.Info().Int("count", len(ids)).Msg("idle dialogs evicted")
	}
	return len(ids)
}
