package readmodel

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/quickbite/order_fulfillment/internal/domain/models"
	internalErrors "github.com/quickbite/order_fulfillment/internal/lib/errors"
	"github.com/quickbite/order_fulfillment/pkg/logger"
)

// Repository owns the denormalized read copy. All writes are idempotent
// so redelivered events leave rows unchanged.
type Repository struct {
	log logger.Logger
	db  *sqlx.DB
}

func New(log logger.Logger, db *sqlx.DB) *Repository {
	return &Repository{
		log: log,
		db:  db,
	}
}

// UpsertOrder creates the read row if absent and no-ops on conflict, so a
// redelivered ORDER_CREATED never resets later status updates.
func (rr *Repository) UpsertOrder(ctx context.Context, order models.OrderRead) error {
	const op = "repository.readmodel.UpsertOrder"

	const query = `
					INSERT INTO "orders_read" (id, customer_id, status, total_amount, item_count, created_at, updated_at)
						VALUES ($1, $2, $3, $4, $5, $6, $7)
						ON CONFLICT (id) DO NOTHING
					`

	if _, err := rr.db.ExecContext(ctx, query,
		order.ID, order.CustomerID, order.Status, order.TotalAmount,
		order.ItemCount, order.CreatedAt, order.UpdatedAt,
	); err != nil {
		rr.log.Error(op, "error", err.Error())
		return fmt.Errorf("%s: execute statement: %w", op, err)
	}

	return nil
}

func (rr *Repository) UpsertItem(ctx context.Context, item models.OrderItemRead) error {
	const op = "repository.readmodel.UpsertItem"

	const query = `
					INSERT INTO "order_items_read" (order_id, product_id, name, price, quantity, subtotal)
						VALUES ($1, $2, $3, $4, $5, $6)
						ON CONFLICT (order_id, product_id) DO NOTHING
					`

	if _, err := rr.db.ExecContext(ctx, query,
		item.OrderID, item.ProductID, item.Name, item.Price, item.Quantity, item.Subtotal,
	); err != nil {
		rr.log.Error(op, "error", err.Error())
		return fmt.Errorf("%s: execute statement: %w", op, err)
	}

	return nil
}

func (rr *Repository) SetStatus(ctx context.Context, orderID uuid.UUID, status models.OrderStatus, updatedAt time.Time) error {
	const op = "repository.readmodel.SetStatus"

	const query = `UPDATE "orders_read" SET status = $1, updated_at = $2 WHERE id = $3`

	if _, err := rr.db.ExecContext(ctx, query, status, updatedAt, orderID); err != nil {
		rr.log.Error(op, "error", err.Error())
		return fmt.Errorf("%s: execute statement: %w", op, err)
	}

	return nil
}

func (rr *Repository) Order(ctx context.Context, orderID uuid.UUID) (*models.OrderRead, []models.OrderItemRead, error) {
	const op = "repository.readmodel.Order"

	const orderQuery = `
						SELECT id, customer_id, status, total_amount, item_count, created_at, updated_at
							FROM "orders_read"
							WHERE id = $1
						`

	var order models.OrderRead
	if err := rr.db.QueryRowxContext(ctx, orderQuery, orderID).StructScan(&order); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, internalErrors.ErrOrderNotFound
		}
		rr.log.Error(op, "error", err.Error())
		return nil, nil, fmt.Errorf("%s: scan order: %w", op, err)
	}

	const itemsQuery = `
						SELECT order_id, product_id, name, price, quantity, subtotal
							FROM "order_items_read"
							WHERE order_id = $1
							ORDER BY product_id
						`

	rows, err := rr.db.QueryxContext(ctx, itemsQuery, orderID)
	if err != nil {
		rr.log.Error(op, "error", err.Error())
		return nil, nil, fmt.Errorf("%s: execute statement: %w", op, err)
	}
	defer rows.Close()

	var items []models.OrderItemRead
	for rows.Next() {
		var item models.OrderItemRead
		if err = rows.StructScan(&item); err != nil {
			rr.log.Error(op, "error", err.Error())
			return nil, nil, fmt.Errorf("%s: scan item: %w", op, err)
		}
		items = append(items, item)
	}

	return &order, items, rows.Err()
}

func (rr *Repository) Orders(ctx context.Context) ([]models.OrderRead, error) {
	const op = "repository.readmodel.Orders"

	const query = `
					SELECT id, customer_id, status, total_amount, item_count, created_at, updated_at
						FROM "orders_read"
						ORDER BY created_at DESC
					`

	rows, err := rr.db.QueryxContext(ctx, query)
	if err != nil {
		rr.log.Error(op, "error", err.Error())
		return nil, fmt.Errorf("%s: execute statement: %w", op, err)
	}
	defer rows.Close()

	var orders []models.OrderRead
	for rows.Next() {
		var order models.OrderRead
		if err = rows.StructScan(&order); err != nil {
			rr.log.Error(op, "error", err.Error())
			return nil, fmt.Errorf("%s: scan order: %w", op, err)
		}
		orders = append(orders, order)
	}

	return orders, rows.Err()
}
