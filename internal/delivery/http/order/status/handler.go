package status

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

type orderStatusUpdater interface {
	UpdateStatus(ctx context.Context, orderID uuid.UUID, newStatus models.OrderStatus) error
}

type Handler struct {
	log logger.Logger

	orderStatusUpdater orderStatusUpdater
}

func NewHandler(log logger.Logger, orderStatusUpdater orderStatusUpdater) *Handler {
	return &Handler{
		log:                log,
		orderStatusUpdater: orderStatusUpdater,
	}
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return
	}

	var request UpdateStatusRequest
	if err = json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err = request.validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err = h.orderStatusUpdater.UpdateStatus(r.Context(), orderID, request.toStatus()); err != nil {
		switch {
		case errors.Is(err, internalErrors.ErrOrderNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, internalErrors.ErrOrderTerminal),
			errors.Is(err, internalErrors.ErrInvalidStatusTransition):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.log.Error("failed to update order status", "error", err.Error())
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err = json.NewEncoder(w).Encode(map[string]string{
		"orderId": orderID.String(),
		"status":  request.Status,
	}); err != nil {
		h.log.Error("failed to encode response", "error", err.Error())
	}
}
