package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/quickbite/order_fulfillment/internal/domain/models"
	internalErrors "github.com/quickbite/order_fulfillment/internal/lib/errors"
	"github.com/quickbite/order_fulfillment/pkg/logger"
)

// Repository owns the order write model. Every mutation commits the
// write-model update, the event-log append and the outbox append in one
// transaction, so the outbox publisher never sees an event whose state
// change did not durably commit.
type Repository struct {
	log logger.Logger
	db  *sqlx.DB
}

func NewRepository(log logger.Logger, db *sqlx.DB) *Repository {
	return &Repository{
		log: log,
		db:  db,
	}
}

func (or *Repository) Create(ctx context.Context, order *models.Order) (orderID uuid.UUID, err error) {
	const op = "repository.order.Create"

	tx, err := or.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: begin transaction: %w", op, err)
	}

	defer func() {
		if err != nil {
			if rollBackErr := tx.Rollback(); rollBackErr != nil {
				or.log.Error(op, "error", rollBackErr.Error())
				err = errors.Join(err, rollBackErr)
			}
		}
	}()

	orderID = uuid.New()
	order.ID = orderID
	order.Status = models.OrderStatusPending
	order.Version = 1

	const orderQuery = `INSERT INTO "orders" (id, customer_id, status, total_amount) VALUES ($1, $2, $3, $4)`

	if _, err = tx.ExecContext(ctx, orderQuery, orderID, order.CustomerID, order.Status, order.TotalAmount); err != nil {
		or.log.Error(op, "error", err.Error())
		return uuid.Nil, fmt.Errorf("%s: order execute statement: %w", op, err)
	}

	const itemsQuery = `INSERT INTO "order_items" (order_id, product_id, name, price, quantity) VALUES %s`
	var values []interface{}
	var placeholders []string

	for i := range order.Items {
		order.Items[i].OrderID = orderID
		item := order.Items[i]

		values = append(values, orderID, item.ProductID, item.Name, item.Price, item.Quantity)

		argID := i * 5
		placeholders = append(placeholders,
			fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)", argID+1, argID+2, argID+3, argID+4, argID+5))
	}

	fullQuery := fmt.Sprintf(itemsQuery, strings.Join(placeholders, ","))

	if _, err = tx.ExecContext(ctx, fullQuery, values...); err != nil {
		or.log.Error(op, "error", err.Error())
		return uuid.Nil, fmt.Errorf("%s: order_items execute statement: %w", op, err)
	}

	event, err := models.NewEvent(models.EventOrderCreated, orderID, models.OrderCreatedPayload{
		CustomerID:  order.CustomerID,
		TotalAmount: order.TotalAmount,
		Items:       order.Items,
	}, 1, uuid.Nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: build event: %w", op, err)
	}

	if err = appendEvent(ctx, tx, event); err != nil {
		or.log.Error(op, "error", err.Error())
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		or.log.Error(op, "error", err.Error())
		return uuid.Nil, fmt.Errorf("%s: commit transaction: %w", op, err)
	}

	return orderID, nil
}

// UpdateStatus performs the manual transition path. Terminal orders are
// rejected, as are transitions off the happy path.
func (or *Repository) UpdateStatus(ctx context.Context, orderID uuid.UUID, newStatus models.OrderStatus) (err error) {
	const op = "repository.order.UpdateStatus"

	tx, err := or.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("%s: begin transaction: %w", op, err)
	}

	defer func() {
		if err != nil {
			if rollBackErr := tx.Rollback(); rollBackErr != nil {
				err = errors.Join(err, rollBackErr)
			}
		}
	}()

	currentStatus, err := lockedStatus(ctx, tx, orderID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if models.IsTerminal(currentStatus) {
		return fmt.Errorf("%s: %w", op, internalErrors.ErrOrderTerminal)
	}

	if !models.CanTransition(currentStatus, newStatus) {
		return fmt.Errorf("%s: %s -> %s: %w", op, currentStatus, newStatus, internalErrors.ErrInvalidStatusTransition)
	}

	const updateQuery = `UPDATE "orders" SET status = $1, updated_at = now() WHERE id = $2`

	if _, err = tx.ExecContext(ctx, updateQuery, newStatus, orderID); err != nil {
		or.log.Error(op, "error", err.Error())
		return fmt.Errorf("%s: execute statement: %w", op, err)
	}

	version, err := nextVersion(ctx, tx, orderID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	event, err := models.NewEvent(models.EventOrderStatusUpdate, orderID, models.OrderStatusUpdatedPayload{
		PreviousStatus: currentStatus,
		NewStatus:      newStatus,
	}, version, uuid.Nil)
	if err != nil {
		return fmt.Errorf("%s: build event: %w", op, err)
	}

	if err = appendEvent(ctx, tx, event); err != nil {
		or.log.Error(op, "error", err.Error())
		return fmt.Errorf("%s: %w", op, err)
	}

	return tx.Commit()
}

// Cancel is the user-facing cancellation path.
func (or *Repository) Cancel(ctx context.Context, orderID uuid.UUID, reason string) (err error) {
	const op = "repository.order.Cancel"

	tx, err := or.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("%s: begin transaction: %w", op, err)
	}

	defer func() {
		if err != nil {
			if rollBackErr := tx.Rollback(); rollBackErr != nil {
				err = errors.Join(err, rollBackErr)
			}
		}
	}()

	currentStatus, err := lockedStatus(ctx, tx, orderID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	switch currentStatus {
	case models.OrderStatusCancelled:
		return fmt.Errorf("%s: %w", op, internalErrors.ErrOrderAlreadyCanceled)
	case models.OrderStatusDelivered:
		return fmt.Errorf("%s: %w", op, internalErrors.ErrOrderAlreadyDelivered)
	}

	const cancelQuery = `UPDATE "orders" SET status = $1, updated_at = now() WHERE id = $2`

	if _, err = tx.ExecContext(ctx, cancelQuery, models.OrderStatusCancelled, orderID); err != nil {
		or.log.Error(op, "error", err.Error())
		return fmt.Errorf("%s: execute statement: %w", op, err)
	}

	version, err := nextVersion(ctx, tx, orderID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	event, err := models.NewEvent(models.EventOrderCancelled, orderID, models.OrderCancelledPayload{
		Reason: reason,
	}, version, uuid.Nil)
	if err != nil {
		return fmt.Errorf("%s: build event: %w", op, err)
	}

	if err = appendEvent(ctx, tx, event); err != nil {
		or.log.Error(op, "error", err.Error())
		return fmt.Errorf("%s: %w", op, err)
	}

	return tx.Commit()
}

// SetStatus writes an intermediate fulfillment status without appending
// an event. The saga's own emissions carry the corresponding signal.
// Terminal rows are excluded in the predicate: a concurrent customer
// cancel must not be overwritten by a late saga write.
func (or *Repository) SetStatus(ctx context.Context, orderID uuid.UUID, status models.OrderStatus) error {
	const op = "repository.order.SetStatus"

	const query = `UPDATE "orders" SET status = $1, updated_at = now() WHERE id = $2 AND status NOT IN ($3, $4)`

	if _, err := or.db.ExecContext(ctx, query,
		status, orderID, models.OrderStatusDelivered, models.OrderStatusCancelled,
	); err != nil {
		or.log.Error(op, "error", err.Error())
		return fmt.Errorf("%s: execute statement: %w", op, err)
	}

	return nil
}

func (or *Repository) Order(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	const op = "repository.order.Order"

	const orderQuery = `SELECT o.id, o.customer_id, o.status, o.total_amount FROM "orders" o WHERE o.id = $1`

	var order models.Order
	row := or.db.QueryRowxContext(ctx, orderQuery, orderID)
	if err := row.Scan(&order.ID, &order.CustomerID, &order.Status, &order.TotalAmount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, internalErrors.ErrOrderNotFound
		}
		or.log.Error(op, "error", err.Error())
		return nil, fmt.Errorf("%s: scan order: %w", op, err)
	}

	const itemsQuery = `
						SELECT oi.order_id, oi.product_id, oi.name, oi.price, oi.quantity
							FROM "order_items" oi
							WHERE oi.order_id = $1
						`

	rows, err := or.db.QueryxContext(ctx, itemsQuery, orderID)
	if err != nil {
		or.log.Error(op, "error", err.Error())
		return nil, fmt.Errorf("%s: execute statement: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.OrderItem
		if err = rows.Scan(&item.OrderID, &item.ProductID, &item.Name, &item.Price, &item.Quantity); err != nil {
			or.log.Error(op, "error", err.Error())
			return nil, fmt.Errorf("%s: scan order_items: %w", op, err)
		}
		order.Items = append(order.Items, item)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return &order, nil
}

func (or *Repository) Status(ctx context.Context, orderID uuid.UUID) (models.OrderStatus, error) {
	const op = "repository.order.Status"

	const query = `SELECT o.status FROM "orders" o WHERE o.id = $1`

	var status models.OrderStatus
	if err := or.db.QueryRowxContext(ctx, query, orderID).Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", internalErrors.ErrOrderNotFound
		}
		or.log.Error(op, "error", err.Error())
		return "", fmt.Errorf("%s: scan status: %w", op, err)
	}

	return status, nil
}

// Events returns the full ordered history for one order.
func (or *Repository) Events(ctx context.Context, orderID uuid.UUID) ([]models.Event, error) {
	const op = "repository.order.Events"

	const query = `
					SELECT id, order_id, correlation_id, type, payload, version, created_at
						FROM "order_events"
						WHERE order_id = $1
						ORDER BY version ASC
					`

	rows, err := or.db.QueryxContext(ctx, query, orderID)
	if err != nil {
		or.log.Error(op, "error", err.Error())
		return nil, fmt.Errorf("%s: execute statement: %w", op, err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var event models.Event
		if err = rows.Scan(
			&event.EventID,
			&event.OrderID,
			&event.CorrelationID,
			&event.Type,
			&event.Payload,
			&event.Version,
			&event.Timestamp,
		); err != nil {
			or.log.Error(op, "error", err.Error())
			return nil, fmt.Errorf("%s: scan event: %w", op, err)
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

// lockedStatus reads the current status FOR UPDATE so concurrent writers
// for the same order serialize on the row.
func lockedStatus(ctx context.Context, tx *sqlx.Tx, orderID uuid.UUID) (models.OrderStatus, error) {
	const query = `SELECT status FROM "orders" WHERE id = $1 FOR UPDATE`

	var status models.OrderStatus
	if err := tx.QueryRowxContext(ctx, query, orderID).Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", internalErrors.ErrOrderNotFound
		}
		return "", fmt.Errorf("lock order row: %w", err)
	}

	return status, nil
}

func nextVersion(ctx context.Context, tx *sqlx.Tx, orderID uuid.UUID) (int, error) {
	const query = `SELECT COALESCE(MAX(version), 0) FROM "order_events" WHERE order_id = $1`

	var current int
	if err := tx.QueryRowxContext(ctx, query, orderID).Scan(&current); err != nil {
		return 0, fmt.Errorf("next event version: %w", err)
	}

	return current + 1, nil
}

// appendEvent writes the event-log row and the matching outbox row inside
// the caller's transaction. The outbox payload is the full envelope.
func appendEvent(ctx context.Context, tx *sqlx.Tx, event models.Event) error {
	const eventQuery = `
						INSERT INTO "order_events" (id, order_id, correlation_id, type, payload, version, created_at)
							VALUES ($1, $2, $3, $4, $5, $6, $7)
						`

	if _, err := tx.ExecContext(ctx, eventQuery,
		event.EventID,
		event.OrderID,
		event.CorrelationID,
		event.Type,
		event.Payload,
		event.Version,
		event.Timestamp,
	); err != nil {
		return fmt.Errorf("event insert: %w", err)
	}

	envelope, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	const outboxQuery = `INSERT INTO "outbox" (id, order_id, event_type, payload) VALUES ($1, $2, $3, $4)`

	if _, err := tx.ExecContext(ctx, outboxQuery, uuid.New(), event.OrderID, event.Type, envelope); err != nil {
		return fmt.Errorf("outbox insert: %w", err)
	}

	return nil
}
