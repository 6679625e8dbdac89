package httpapp

import (
	"context"
	"fmt"
	"net/http"

	order_http "github.com/quickbite/order_fulfillment/internal/delivery/http"
	"github.com/quickbite/order_fulfillment/pkg/logger"
)

type App struct {
	log        logger.Logger
	httpServer *http.Server
	port       int
}

func NewApp(log logger.Logger, handler *order_http.Handler, port int) *App {
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: handler.InitRoutes(),
	}

	return &App{
		log:        log,
		httpServer: httpServer,
		port:       port,
	}
}

func (a *App) RunWithPanic() {
	if err := a.Run(); err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("failed to run http server: %v", err))
	}
}

func (a *App) Run() error {
	const op = "httpapp.Run"

	a.log.Info(op, "port", a.port)

	return a.httpServer.ListenAndServe()
}

func (a *App) Shutdown(ctx context.Context) error {
	const op = "httpapp.Shutdown"

	a.log.Info(op)

	return a.httpServer.Shutdown(ctx)
}
