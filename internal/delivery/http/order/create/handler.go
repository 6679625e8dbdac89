package create

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/quickbite/order_fulfillment/internal/domain/models"
	"github.com/quickbite/order_fulfillment/pkg/logger"
)

type orderCreator interface {
	Create(ctx context.Context, order *models.Order) (string, error)
}

type Handler struct {
	log logger.Logger

	orderCreator orderCreator
}

func NewHandler(log logger.Logger, orderCreator orderCreator) *Handler {
	return &Handler{
		log:          log,
		orderCreator: orderCreator,
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var request CreateOrderRequest

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.log.Error("failed to decode request", "error", err.Error())
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := request.validate(); err != nil {
		h.log.Error("failed to validate request", "error", err.Error())
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	order := request.toDTO()
	orderID, err := h.orderCreator.Create(r.Context(), &order)
	if err != nil {
		h.log.Error("failed to create order", "error", err.Error())
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err = json.NewEncoder(w).Encode(
		map[string]string{
			"orderId": orderID,
		},
	); err != nil {
		h.log.Error("failed to encode response", "error", err.Error())
	}
}
