package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/quickbite/order_fulfillment/internal/domain/models"
	"github.com/quickbite/order_fulfillment/pkg/logger"
)

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

// PublishPending claims a batch of unpublished rows, hands them to send,
// and marks the whole batch published only if send succeeded, all inside
// one transaction. SKIP LOCKED keeps concurrent publisher instances from
// double-claiming rows; a failed send rolls the claim back so the batch
// retries on the next tick. Returns the number of rows published.
func (or *Repository) PublishPending(
	ctx context.Context,
	limit int,
	send func(messages []models.OutboxMessage) error,
) (published int, err error) {
	const op = "repository.outbox.PublishPending"

	tx, err := or.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: begin transaction: %w", op, err)
	}

	defer func() {
		if err != nil {
			if rollBackErr := tx.Rollback(); rollBackErr != nil {
				or.log.Error(op, "error", rollBackErr.Error())
				err = errors.Join(err, rollBackErr)
			}
		}
	}()

	messages, err := fetchUnpublished(ctx, tx, limit)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if len(messages) == 0 {
		return 0, tx.Commit()
	}

	// A crash between a successful send and the commit below republishes
	// the whole batch: delivery is at-least-once and consumers must
	// de-duplicate.
	if err = send(messages); err != nil {
		return 0, fmt.Errorf("%s: send batch: %w", op, err)
	}

	ids := make([]uuid.UUID, 0, len(messages))
	for _, msg := range messages {
		ids = append(ids, msg.ID)
	}

	if err = markPublished(ctx, tx, ids); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: commit transaction: %w", op, err)
	}

	return len(messages), nil
}

func fetchUnpublished(ctx context.Context, tx *sqlx.Tx, limit int) ([]models.OutboxMessage, error) {
	const query = `
					SELECT id, order_id, event_type, payload, published, created_at, published_at
						FROM "outbox"
						WHERE published = FALSE
						ORDER BY created_at ASC
						LIMIT $1
						FOR UPDATE SKIP LOCKED
					`

	rows, err := tx.QueryxContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("execute statement: %w", err)
	}
	defer rows.Close()

	var messages []models.OutboxMessage
	for rows.Next() {
		var msg models.OutboxMessage
		if err = rows.StructScan(&msg); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

func markPublished(ctx context.Context, tx *sqlx.Tx, ids []uuid.UUID) error {
	const query = `UPDATE "outbox" SET published = TRUE, published_at = $1 WHERE id = ANY($2)`

	if _, err := tx.ExecContext(ctx, query, time.Now().UTC(), pq.Array(ids)); err != nil {
		return fmt.Errorf("mark published: %w", err)
	}

	return nil
}
