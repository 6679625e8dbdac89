package saga

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/quickbite/order_fulfillment/internal/domain/models"
	"github.com/quickbite/order_fulfillment/pkg/logger"
)

// Repository persists the per-order saga instances. The instance row is
// the serialization point for that order's fulfillment steps.
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

func (sr *Repository) Get(ctx context.Context, orderID uuid.UUID) (*models.SagaInstance, error) {
	const op = "repository.saga.Get"

	const query = `
					SELECT order_id, current_step, status, last_event_id, created_at, updated_at
						FROM "saga_instances"
						WHERE order_id = $1
					`

	var instance models.SagaInstance
	if err := sr.db.QueryRowxContext(ctx, query, orderID).StructScan(&instance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		sr.log.Error(op, "error", err.Error())
		return nil, fmt.Errorf("%s: scan saga instance: %w", op, err)
	}

	return &instance, nil
}

// Upsert creates the instance on the first orchestration-triggering event
// or rewinds an existing one to PAYMENT_PROCESSING on redelivery.
func (sr *Repository) Upsert(ctx context.Context, orderID, lastEventID uuid.UUID) error {
	const op = "repository.saga.Upsert"

	const query = `
					INSERT INTO "saga_instances" (order_id, current_step, status, last_event_id)
						VALUES ($1, $2, $3, $4)
						ON CONFLICT (order_id) DO UPDATE
							SET current_step = EXCLUDED.current_step,
								last_event_id = EXCLUDED.last_event_id,
								updated_at = now()
					`

	if _, err := sr.db.ExecContext(ctx, query,
		orderID, models.SagaStepPaymentProcessing, models.SagaStatusRunning, lastEventID,
	); err != nil {
		sr.log.Error(op, "error", err.Error())
		return fmt.Errorf("%s: execute statement: %w", op, err)
	}

	return nil
}

func (sr *Repository) SetStep(ctx context.Context, orderID uuid.UUID, step models.SagaStep, lastEventID uuid.UUID) error {
	const op = "repository.saga.SetStep"

	const query = `
					UPDATE "saga_instances"
						SET current_step = $1, last_event_id = $2, updated_at = now()
						WHERE order_id = $3
					`

	if _, err := sr.db.ExecContext(ctx, query, step, lastEventID, orderID); err != nil {
		sr.log.Error(op, "error", err.Error())
		return fmt.Errorf("%s: execute statement: %w", op, err)
	}

	return nil
}

// Complete marks the saga's terminal success and moves the order to
// PREPARING in the same transaction.
func (sr *Repository) Complete(ctx context.Context, orderID, lastEventID uuid.UUID) (err error) {
	const op = "repository.saga.Complete"

	tx, err := sr.db.BeginTxx(ctx, nil)
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

	const sagaQuery = `
						UPDATE "saga_instances"
							SET current_step = $1, status = $2, last_event_id = $3, updated_at = now()
							WHERE order_id = $4
						`

	if _, err = tx.ExecContext(ctx, sagaQuery,
		models.SagaStepCompleted, models.SagaStatusCompleted, lastEventID, orderID,
	); err != nil {
		sr.log.Error(op, "error", err.Error())
		return fmt.Errorf("%s: saga execute statement: %w", op, err)
	}

	const orderQuery = `UPDATE "orders" SET status = $1, updated_at = now() WHERE id = $2`

	if _, err = tx.ExecContext(ctx, orderQuery, models.OrderStatusPreparing, orderID); err != nil {
		sr.log.Error(op, "error", err.Error())
		return fmt.Errorf("%s: order execute statement: %w", op, err)
	}

	return tx.Commit()
}

// Compensate is the compensating transaction: order to CANCELLED, an
// ORDER_CANCELLED event with the triggering reason, the matching outbox
// row, and the saga marked FAILED, all atomically.
func (sr *Repository) Compensate(ctx context.Context, orderID, correlationID uuid.UUID, reason string) (err error) {
	const op = "repository.saga.Compensate"

	tx, err := sr.db.BeginTxx(ctx, nil)
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

	const cancelQuery = `UPDATE "orders" SET status = $1, updated_at = now() WHERE id = $2`

	if _, err = tx.ExecContext(ctx, cancelQuery, models.OrderStatusCancelled, orderID); err != nil {
		sr.log.Error(op, "error", err.Error())
		return fmt.Errorf("%s: order execute statement: %w", op, err)
	}

	const versionQuery = `SELECT COALESCE(MAX(version), 0) FROM "order_events" WHERE order_id = $1`

	var currentVersion int
	if err = tx.QueryRowxContext(ctx, versionQuery, orderID).Scan(&currentVersion); err != nil {
		sr.log.Error(op, "error", err.Error())
		return fmt.Errorf("%s: next event version: %w", op, err)
	}

	event, err := models.NewEvent(models.EventOrderCancelled, orderID, models.OrderCancelledPayload{
		Reason: reason,
	}, currentVersion+1, correlationID)
	if err != nil {
		return fmt.Errorf("%s: build event: %w", op, err)
	}

	const eventQuery = `
						INSERT INTO "order_events" (id, order_id, correlation_id, type, payload, version, created_at)
							VALUES ($1, $2, $3, $4, $5, $6, $7)
						`

	if _, err = tx.ExecContext(ctx, eventQuery,
		event.EventID,
		event.OrderID,
		event.CorrelationID,
		event.Type,
		event.Payload,
		event.Version,
		event.Timestamp,
	); err != nil {
		sr.log.Error(op, "error", err.Error())
		return fmt.Errorf("%s: event insert: %w", op, err)
	}

	envelope, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%s: marshal envelope: %w", op, err)
	}

	const outboxQuery = `INSERT INTO "outbox" (id, order_id, event_type, payload) VALUES ($1, $2, $3, $4)`

	if _, err = tx.ExecContext(ctx, outboxQuery, uuid.New(), orderID, event.Type, envelope); err != nil {
		sr.log.Error(op, "error", err.Error())
		return fmt.Errorf("%s: outbox insert: %w", op, err)
	}

	const sagaQuery = `
						UPDATE "saga_instances"
							SET current_step = $1, status = $2, updated_at = now()
							WHERE order_id = $3
						`

	if _, err = tx.ExecContext(ctx, sagaQuery, models.SagaStepFailed, models.SagaStatusFailed, orderID); err != nil {
		sr.log.Error(op, "error", err.Error())
		return fmt.Errorf("%s: saga execute statement: %w", op, err)
	}

	return tx.Commit()
}
