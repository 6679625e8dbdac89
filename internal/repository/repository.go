package repository

import (
	"github.com/jmoiron/sqlx"
	"github.com/quickbite/order_fulfillment/internal/repository/order"
	"github.com/quickbite/order_fulfillment/internal/repository/outbox"
	"github.com/quickbite/order_fulfillment/internal/repository/readmodel"
	"github.com/quickbite/order_fulfillment/internal/repository/saga"
	"github.com/quickbite/order_fulfillment/pkg/logger"
)

type Repository struct {
	Order     *order.Repository
	Outbox    *outbox.Repository
	Saga      *saga.Repository
	ReadModel *readmodel.Repository
}

func NewRepository(log logger.Logger, db *sqlx.DB) *Repository {
	return &Repository{
		Order:     order.NewRepository(log, db),
		Outbox:    outbox.New(log, db),
		Saga:      saga.New(log, db),
		ReadModel: readmodel.New(log, db),
	}
}
