// File: internal/usecase/order_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-phone-sales/internal/domain"
	"telegram-phone-sales/internal/domain/model"
	"telegram-phone-sales/internal/domain/ports/adapter"
	"telegram-phone-sales/internal/domain/ports/repository"
	"telegram-phone-sales/internal/infra/logging"
	"telegram-phone-sales/internal/infra/metrics"
)

// Compile-time check
var _ OrderUseCase = (*orderUC)(nil)

// OrderUseCase submits finished orders and keeps the journal of attempts.
type OrderUseCase interface {
	// Submit sends the order held by st. The returned record is the journal entry
	// of this attempt; on failure err wraps domain.ErrOrderSubmission.
	Submit(ctx context.Context, tgID int64, st model.DialogState) (*model.OrderRecord, error)
	// Abandon forgets a failed order of tgID so the next submission starts a new record.
	Abandon(tgID int64)
	Get(ctx context.Context, id string) (*model.OrderRecord, error)
	List(ctx context.Context, status model.OrderStatus, limit int) ([]*model.OrderRecord, error)
}

type OrderSettings struct {
	PlatformID string
	RoleID     string
	Timeout    time.Duration
	Dev        bool
}

type orderUC struct {
	submitter adapter.OrderSubmitter
	journal   repository.OrderRepository
	tm        repository.TransactionManager // nil without a database
	cfg       OrderSettings
	log       *zerolog.Logger

	mu      sync.Mutex
	pending map[int64]string // tgID -> id of the last failed record
}

func NewOrderUseCase(
	submitter adapter.OrderSubmitter,
	journal repository.OrderRepository,
	tm repository.TransactionManager,
	cfg OrderSettings,
	logger *zerolog.Logger,
) *orderUC {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &orderUC{
		submitter: submitter,
		journal:   journal,
		tm:        tm,
		cfg:       cfg,
		log:       logger,
		pending:   make(map[int64]string),
	}
}

func (o *orderUC) Submit(ctx context.Context, tgID int64, st model.DialogState) (*model.OrderRecord, error) {
	defer logging.TraceDuration(o.log, "OrderUC.Submit")()

	req, err := model.NewOrderRequest(&st, o.cfg.PlatformID, o.cfg.RoleID)
	if err != nil {
		return nil, err
	}

	sctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	start := time.Now()
	subErr := o.submitter.Submit(sctx, req)
	cancel()
	metrics.ObserveOrderSubmit(int(time.Since(start).Milliseconds()), subErr == nil)
	if subErr != nil && !errors.Is(subErr, domain.ErrOrderSubmission) {
		subErr = fmt.Errorf("%w: %v", domain.ErrOrderSubmission, subErr)
	}

	rec, jerr := o.record(ctx, tgID, st.Order, subErr)
	l := logging.With(ctx, o.log)
	if jerr != nil {
		l.Error().Err(jerr).Msg("order journal write failed")
	}

	if subErr != nil {
		metrics.IncOrder(string(model.OrderStatusFailed))
		l.Error().Err(subErr).
			Str("order_id", rec.ID).
			Int("attempts", rec.Attempts).
			Str("phone_model", st.Order.PhoneModel).
			Str("client_phone", logging.Redact(st.Order.ClientPhone, o.cfg.Dev)).
			Msg("order submission failed")
		return rec, subErr
	}
	metrics.IncOrder(string(model.OrderStatusSubmitted))
	l.Info().Str("order_id", rec.ID).Int("attempts", rec.Attempts).Msg("order submitted")
	return rec, nil
}

// record writes the outcome of one attempt, reusing the failed record of a retry.
func (o *orderUC) record(ctx context.Context, tgID int64, order model.OrderData, subErr error) (*model.OrderRecord, error) {
	o.mu.Lock()
	prevID := o.pending[tgID]
	o.mu.Unlock()

	var rec *model.OrderRecord
	err := o.withTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if prevID != "" {
			prev, err := o.journal.FindByID(ctx, tx, prevID)
			switch {
			case err == nil:
				rec = prev
			case !errors.Is(err, domain.ErrNotFound):
				return err
			}
		}
		if rec == nil {
			rec = model.NewOrderRecord(tgID, order)
		}
		rec.Order = order
		rec.Attempts++
		rec.UpdatedAt = time.Now()
		if subErr != nil {
			rec.Status = model.OrderStatusFailed
			rec.LastError = subErr.Error()
		} else {
			rec.Status = model.OrderStatusSubmitted
			rec.LastError = ""
		}
		return o.journal.Save(ctx, tx, rec)
	})
	if rec == nil {
		rec = model.NewOrderRecord(tgID, order)
		rec.Attempts = 1
	}

	o.mu.Lock()
	if subErr != nil {
		o.pending[tgID] = rec.ID
	} else {
		delete(o.pending, tgID)
	}
	o.mu.Unlock()
	return rec, err
}

func (o *orderUC) withTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	if o.tm == nil {
		return fn(ctx, nil)
	}
	return o.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}

func (o *orderUC) Abandon(tgID int64) {
	o.mu.Lock()
	delete(o.pending, tgID)
	o.mu.Unlock()
}

func (o *orderUC) Get(ctx context.Context, id string) (*model.OrderRecord, error) {
	return o.journal.FindByID(ctx, nil, id)
}

func (o *orderUC) List(ctx context.Context, status model.OrderStatus, limit int) ([]*model.OrderRecord, error) {
	return o.journal.ListByStatus(ctx, status, limit)
}
