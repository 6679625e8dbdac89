package cancel

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	internalErrors "github.com/quickbite/order_fulfillment/internal/lib/errors"
	"github.com/quickbite/order_fulfillment/pkg/logger"
)

type orderCanceler interface {
	Cancel(ctx context.Context, orderID uuid.UUID) error
}

type Handler struct {
	log logger.Logger

	orderCanceler orderCanceler
}

func NewHandler(log logger.Logger, orderCanceler orderCanceler) *Handler {
	return &Handler{
		log:           log,
		orderCanceler: orderCanceler,
	}
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return
	}

	if err = h.orderCanceler.Cancel(r.Context(), orderID); err != nil {
		switch {
		case errors.Is(err, internalErrors.ErrOrderNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, internalErrors.ErrOrderAlreadyCanceled),
			errors.Is(err, internalErrors.ErrOrderAlreadyDelivered):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.log.Error("failed to cancel order", "error", err.Error())
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err = json.NewEncoder(w).Encode(map[string]string{
		"orderId": orderID.String(),
		"status":  "CANCELLED",
	}); err != nil {
		h.log.Error("failed to encode response", "error", err.Error())
	}
}
