package adapter

import (
	"context"

	"telegram-phone-sales/internal/domain/model"
)

// OrderSubmitter delivers a finished order to the downstream order endpoint.
// Any failure (transport, timeout, non-2xx) is returned wrapped around domain.ErrOrderSubmission.
type OrderSubmitter interface {
	Submit(ctx context.Context, req model.OrderRequest) error
}
