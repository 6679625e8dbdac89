package get

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/quickbite/order_fulfillment/internal/domain/models"
	internalErrors "github.com/quickbite/order_fulfillment/internal/lib/errors"
	"github.com/quickbite/order_fulfillment/pkg/logger"
)

type orderGetter interface {
	Order(ctx context.Context, orderID uuid.UUID) (*models.OrderDetails, error)
	Orders(ctx context.Context) ([]models.OrderRead, error)
}

type Handler struct {
	log logger.Logger

	orderGetter orderGetter
}

func NewHandler(log logger.Logger, orderGetter orderGetter) *Handler {
	return &Handler{
		log:         log,
		orderGetter: orderGetter,
	}
}

func (h *Handler) Order(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return
	}

	details, err := h.orderGetter.Order(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, internalErrors.ErrOrderNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}

		h.log.Error("failed to get order", "error", err.Error())
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err = json.NewEncoder(w).Encode(details); err != nil {
		h.log.Error("failed to encode response", "error", err.Error())
	}
}

func (h *Handler) Orders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderGetter.Orders(r.Context())
	if err != nil {
		h.log.Error("failed to list orders", "error", err.Error())
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err = json.NewEncoder(w).Encode(map[string]any{
		"orders": orders,
	}); err != nil {
		h.log.Error("failed to encode response", "error", err.Error())
	}
}
