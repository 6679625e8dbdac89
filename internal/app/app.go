package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	httpapp "github.com/quickbite/order_fulfillment/internal/app/http"
	"github.com/quickbite/order_fulfillment/internal/cache_impl"
	"github.com/quickbite/order_fulfillment/internal/config"
	order_http "github.com/quickbite/order_fulfillment/internal/delivery/http"
	cancelHandler "github.com/quickbite/order_fulfillment/internal/delivery/http/order/cancel"
	createHandler "github.com/quickbite/order_fulfillment/internal/delivery/http/order/create"
	getHandler "github.com/quickbite/order_fulfillment/internal/delivery/http/order/get"
	statusHandler "github.com/quickbite/order_fulfillment/internal/delivery/http/order/status"
	"github.com/quickbite/order_fulfillment/internal/domain/models"
	"github.com/quickbite/order_fulfillment/internal/repository"
	cancelService "github.com/quickbite/order_fulfillment/internal/services/order/cancel"
	createService "github.com/quickbite/order_fulfillment/internal/services/order/create"
	getService "github.com/quickbite/order_fulfillment/internal/services/order/get"
	statusService "github.com/quickbite/order_fulfillment/internal/services/order/status"
	"github.com/quickbite/order_fulfillment/pkg/databases/postgres"
	"github.com/quickbite/order_fulfillment/pkg/logger"
)

const (
	orderCacheSize = 128
	orderCacheTTL  = 15 * time.Second
)

// App wires the command/query surface: thin writers that honor the
// one-transaction contract and readers over the read model.
type App struct {
	HTTPServer *httpapp.App

	log logger.Logger
	db  *postgres.PgDB
}

func NewApp(ctx context.Context, log logger.Logger, cfg *config.Config, dsn string) (*App, error) {
	db, err := postgres.NewPostgresDB(ctx, log, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	repo := repository.NewRepository(log, db.GetDB())

	cache := setupCache(log)

	createSvc := createService.New(log, repo.Order)
	getSvc := getService.New(log, cache, repo.ReadModel, repo.Order)
	cancelSvc := cancelService.New(log, repo.Order)
	statusSvc := statusService.New(log, repo.Order)

	handler := order_http.NewHandler(
		log,
		createHandler.NewHandler(log, createSvc),
		getHandler.NewHandler(log, getSvc),
		cancelHandler.NewHandler(log, cancelSvc),
		statusHandler.NewHandler(log, statusSvc),
	)

	return &App{
		HTTPServer: httpapp.NewApp(log, handler, cfg.HTTP.Port),
		log:        log,
		db:         db,
	}, nil
}

func (a *App) Stop(ctx context.Context) error {
	if err := a.HTTPServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	if err := a.db.Close(); err != nil {
		return fmt.Errorf("close postgres: %w", err)
	}

	a.log.Info("application stopped")

	return nil
}

func setupCache(log logger.Logger) *cache_impl.Cache[uuid.UUID, *models.OrderDetails] {
	lru := expirable.NewLRU[uuid.UUID, *models.OrderDetails](orderCacheSize, nil, orderCacheTTL)

	return cache_impl.NewCache[uuid.UUID, *models.OrderDetails](lru, log)
}
