package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"telegram-phone-sales/internal/domain"
	"telegram-phone-sales/internal/domain/model"
	"telegram-phone-sales/internal/domain/ports/repository"
)

var _ repository.OrderRepository = (*OrderJournal)(nil)

// OrderJournal keeps order records in memory and writes each one to the log,
// so a failed order can still be recovered from the log stream without a database.
type OrderJournal struct {
	mu      sync.RWMutex
	records map[string]model.OrderRecord
	log     *zerolog.Logger
}

func NewOrderJournal(logger *zerolog.Logger) *OrderJournal {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "order_journal").Logger()
	return &OrderJournal{records: make(map[string]model.OrderRecord), log: &l}
}

func (j *OrderJournal) Save(_ context.Context, _ repository.Tx, rec *model.OrderRecord) error {
	if rec == nil || rec.ID == "" {
		return domain.ErrInvalidArgument
	}
	j.mu.Lock()
	j.records[rec.ID] = *rec
	j.mu.Unlock()

	j.log.Info().
		Str("order_id", rec.ID).
		Int64("tg_id", rec.TelegramID).
		Str("status", string(rec.Status)).
		Int("attempts", rec.Attempts).
		Str("last_error", rec.LastError).
		Interface("order", rec.Order).
		Msg("order journaled")
	return nil
}

func (j *OrderJournal) FindByID(_ context.Context, _ repository.Tx, id string) (*model.OrderRecord, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	rec, ok := j.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

func (j *OrderJournal) ListByStatus(_ context.Context, status model.OrderStatus, limit int) ([]*model.OrderRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	j.mu.RLock()
	out := make([]*model.OrderRecord, 0, len(j.records))
	for _, rec := range j.records {
		if status != "" && rec.Status != status {
			continue
		}
		rec := rec
		out = append(out, &rec)
	}
	j.mu.RUnlock()

	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
