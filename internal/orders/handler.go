package orders

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/joao-fontenele/shopflow/internal/domain"
)

const IdempotencyKeyHeader = "Idempotency-Key"

type OrderService interface {
	CreateOrder(ctx context.Context, in CreateOrderInput) (*CreateResult, error)
	GetOrder(ctx context.Context, key string) (*domain.Order, error)
}

type Handler struct {
	service OrderService
	logger  *slog.Logger
}

func NewHandler(service OrderService, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

type createOrderRequest struct {
	IDs []string `json:"ids"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.service.CreateOrder(r.Context(), CreateOrderInput{
		ProductIDs:     req.IDs,
		Requester:      domain.IdentityFromContext(r.Context()),
		IdempotencyKey: strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader)),
	})
	if err != nil {
		if domain.IsClientError(err) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to create order", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	order := result.Order
	if result.Replayed {
		h.logger.Info("order replayed for idempotency key", "order_id", order.OrderID)
		h.writeJSON(w, http.StatusOK, order)
		return
	}

	h.logger.Info("order created",
		"order_id", order.OrderID,
		"id", order.PrimaryKey,
		"username", order.Username,
		"total_price", order.TotalPrice,
		"published", result.PublishErr == nil,
	)
	h.writeJSON(w, http.StatusCreated, order)
}

// HandleGet serves both /order/{id} and /order?id=, preferring the query.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("id")
	if key == "" {
		key = r.PathValue("id")
	}
	if key == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrOrderKeyRequired.Error())
		return
	}

	order, err := h.service.GetOrder(r.Context(), key)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrOrderNotFound):
			h.writeError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, domain.ErrOrderKeyRequired):
			h.writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("failed to get order", "error", err, "key", key)
			h.writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.logger.Info("order retrieved", "order_id", order.OrderID)
	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
