package repository

import (
	"context"

	"telegram-phone-sales/internal/domain/model"
)

// OrderRepository journals every order submission attempt.
type OrderRepository interface {
	Save(ctx context.Context, tx Tx, rec *model.OrderRecord) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.OrderRecord, error)
	ListByStatus(ctx context.Context, status model.OrderStatus, limit int) ([]*model.OrderRecord, error)
}
