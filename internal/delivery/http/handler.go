package order_http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/quickbite/order_fulfillment/internal/delivery/http/order/cancel"
	"github.com/quickbite/order_fulfillment/internal/delivery/http/order/create"
	"github.com/quickbite/order_fulfillment/internal/delivery/http/order/get"
	"github.com/quickbite/order_fulfillment/internal/delivery/http/order/status"
	"github.com/quickbite/order_fulfillment/pkg/logger"
)

type Handler struct {
	log logger.Logger

	create *create.Handler
	get    *get.Handler
	cancel *cancel.Handler
	status *status.Handler
}

func NewHandler(
	log logger.Logger,
	createHandler *create.Handler,
	getHandler *get.Handler,
	cancelHandler *cancel.Handler,
	statusHandler *status.Handler,
) *Handler {
	return &Handler{
		log:    log,
		create: createHandler,
		get:    getHandler,
		cancel: cancelHandler,
		status: statusHandler,
	}
}

func (h *Handler) InitRoutes() *chi.Mux {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	router.Route("/order", func(r chi.Router) {
		r.Post("/", h.create.Create)

		r.Route("/{orderID}", func(r chi.Router) {
			r.Get("/", h.get.Order)
			r.Post("/cancel", h.cancel.Cancel)
			r.Patch("/status", h.status.Update)
		})
	})

	router.Get("/orders", h.get.Orders)

	return router
}
