package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"telegram-phone-sales/internal/domain"
)

// OrderRequest is what the downstream order endpoint receives.
type OrderRequest struct {
	PlatformID  string
	RoleID      string
	Name        string
	Phone       string
	Description string
}

type OrderStatus string

const (
	OrderStatusSubmitted OrderStatus = "submitted"
	OrderStatusFailed    OrderStatus = "failed"
)

// OrderRecord is a journal entry kept for every submission attempt, so a failed order
// can be recovered by hand.
type OrderRecord struct {
	ID         string
	TelegramID int64
	Order      OrderData
	Status     OrderStatus
	Attempts   int
	LastError  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewOrderRequest builds the request from a completed dialog.
func NewOrderRequest(s *DialogState, platformID, roleID string) (OrderRequest, error) {
	if !s.IsOrderComplete() {
		return OrderRequest{}, domain.ErrOrderIncomplete
	}
	return OrderRequest{
		PlatformID:  platformID,
		RoleID:      roleID,
		Name:        strings.TrimSpace(s.Order.ClientName),
		Phone:       s.Order.ClientPhone,
		Description: strings.TrimSpace(s.Order.Description()),
	}, nil
}

func NewOrderRecord(tgID int64, order OrderData) *OrderRecord {
	now := time.Now()
	return &OrderRecord{
		ID:         uuid.NewString(),
		TelegramID: tgID,
		Order:      order,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
