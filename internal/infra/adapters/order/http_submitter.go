// File: internal/infra/adapters/order/http_submitter.go
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"resty.dev/v3"

	"telegram-phone-sales/internal/domain"
	"telegram-phone-sales/internal/domain/model"
	"telegram-phone-sales/internal/domain/ports/adapter"
)

var _ adapter.OrderSubmitter = (*HTTPSubmitter)(nil)

// HTTPSubmitter delivers orders to the CRM endpoint as a GET with query parameters.
type HTTPSubmitter struct {
	client   *resty.Client
	endpoint string
	timeout  time.Duration
	log      *zerolog.Logger
}

func NewHTTPSubmitter(endpoint string, timeout time.Duration, logger *zerolog.Logger) (*HTTPSubmitter, error) {
	if endpoint == "" {
		return nil, errors.New("order endpoint empty")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "order_submitter").Logger()
	c := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &HTTPSubmitter{client: c, endpoint: endpoint, timeout: timeout, log: &l}, nil
}

func (s *HTTPSubmitter) Submit(ctx context.Context, req model.OrderRequest) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"platform_id": req.PlatformID,
			"role_id":     req.RoleID,
			"name":        req.Name,
			"phone":       req.Phone,
			"desc":        req.Description,
		}).
		Get(s.endpoint)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrOrderSubmission, err)
	}
	if !resp.IsSuccess() {
		s.log.Warn().Int("status", resp.StatusCode()).Str("body", truncate(resp.String(), 200)).Msg("order endpoint refused")
		return fmt.Errorf("%w: status %d", domain.ErrOrderSubmission, resp.StatusCode())
	}
	return nil
}

// Close releases idle connections.
func (s *HTTPSubmitter) Close() error { return s.client.Close() }

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
