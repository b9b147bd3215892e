package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-phone-sales/internal/domain"
	"telegram-phone-sales/internal/domain/model"
)

// OrderReader is the read side of usecase.OrderUseCase.
type OrderReader interface {
	Get(ctx context.Context, id string) (*model.OrderRecord, error)
	List(ctx context.Context, status model.OrderStatus, limit int) ([]*model.OrderRecord, error)
}

// Server exposes health, Prometheus metrics and the order journal over HTTP.
type Server struct {
	orders OrderReader
	auth   *AuthManager
	log    *zerolog.Logger

	mu  sync.Mutex
	srv *http.Server
}

func NewServer(orders OrderReader, auth *AuthManager, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "admin_api").Logger()
	return &Server{orders: orders, auth: auth, log: &l}
}

// Router builds the chi route tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(TraceID(), Recover(s.log), RequestLog(s.log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(RequireAdmin(s.auth, s.log), Timeout(10*time.Second))
		r.Get("/orders", s.listOrders)
		r.Get("/orders/{id}", s.getOrder)
	})
	return r
}

// Start serves on port until Shutdown. http.ErrServerClosed is not reported.
func (s *Server) Start(port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.mu.Lock()
	s.srv = srv
	s.mu.Unlock()

	s.log.Info().Int("port", port).Msg("admin http listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

type orderDTO struct {
	ID             string    `json:"id"`
	TelegramID     int64     `json:"telegram_id"`
	Status         string    `json:"status"`
	Attempts       int       `json:"attempts"`
	LastError      string    `json:"last_error,omitempty"`
	PhoneModel     string    `json:"phone_model"`
	Specifications string    `json:"specifications"`
	ClientName     string    `json:"client_name"`
	ClientPhone    string    `json:"client_phone"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toDTO(rec *model.OrderRecord) orderDTO {
	return orderDTO{
		ID:             rec.ID,
		TelegramID:     rec.TelegramID,
		Status:         string(rec.Status),
		Attempts:       rec.Attempts,
		LastError:      rec.LastError,
		PhoneModel:     rec.Order.PhoneModel,
		Specifications: rec.Order.Specifications,
		ClientName:     rec.Order.ClientName,
		ClientPhone:    rec.Order.ClientPhone,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
	}
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := model.OrderStatus(q.Get("status"))
	switch status {
	case "", model.OrderStatusSubmitted, model.OrderStatusFailed:
	default:
		http.Error(w, "unknown status", http.StatusBadRequest)
		return
	}
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	recs, err := s.orders.List(r.Context(), status, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	items := make([]orderDTO, 0, len(recs))
	for _, rec := range recs {
		items = append(items, toDTO(rec))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return
	}
	rec, err := s.orders.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toDTO(rec))
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidArgument):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("admin request failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	body, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, "encode error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}
