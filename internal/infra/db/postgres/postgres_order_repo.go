package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-phone-sales/internal/domain"
	"telegram-phone-sales/internal/domain/model"
	"telegram-phone-sales/internal/domain/ports/repository"
)

var _ repository.OrderRepository = (*orderRepo)(nil)

type orderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepo(pool *pgxpool.Pool) *orderRepo {
	return &orderRepo{pool: pool}
}

const orderColumns = `id, telegram_id, status, attempts, last_error, payload, created_at, updated_at`

func (r *orderRepo) Save(ctx context.Context, tx repository.Tx, rec *model.OrderRecord) error {
	payload, err := encodeOrder(rec.Order)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO orders (` + orderColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  status=$3, attempts=$4, last_error=$5, payload=$6, updated_at=$8;`

	_, err = execSQL(ctx, r.pool, tx, q, rec.ID, rec.TelegramID, string(rec.Status), rec.Attempts, rec.LastError, payload, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return fmt.Errorf("%w: save order: %v", domain.ErrOperationFailed, err)
	}
	return nil
}

func (r *orderRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.OrderRecord, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	rec, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *orderRepo) ListByStatus(ctx context.Context, status model.OrderStatus, limit int) ([]*model.OrderRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := `SELECT ` + orderColumns + ` FROM orders`
	args := []interface{}{}
	if status != "" {
		q += ` WHERE status=$1 ORDER BY created_at DESC LIMIT $2;`
		args = append(args, string(status), limit)
	} else {
		q += ` ORDER BY created_at DESC LIMIT $1;`
		args = append(args, limit)
	}
	rows, err := queryRows(ctx, r.pool, nil, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.OrderRecord
	for rows.Next() {
		rec, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func scanOrder(row pgx.Row) (*model.OrderRecord, error) {
	var (
		rec     model.OrderRecord
		status  string
		payload []byte
	)
	if err := row.Scan(&rec.ID, &rec.TelegramID, &status, &rec.Attempts, &rec.LastError, &payload, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, domain.ErrReadDatabaseRow
	}
	rec.Status = model.OrderStatus(status)
	order, err := decodeOrder(payload)
	if err != nil {
		return nil, err
	}
	rec.Order = order
	return &rec, nil
}

// The order snapshot is stored as jsonb so the journal survives OrderData changes.
func encodeOrder(o model.OrderData) ([]byte, error) {
	b, err := sonic.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("%w: encode order: %v", domain.ErrInvalidArgument, err)
	}
	return b, nil
}

func decodeOrder(b []byte) (model.OrderData, error) {
	var o model.OrderData
	if err := sonic.Unmarshal(b, &o); err != nil {
		return model.OrderData{}, domain.ErrReadDatabaseRow
	}
	return o, nil
}
