package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OutboxMessage is a pending-events row. A row exists iff the write-model
// transition and the event-log row were committed in the same transaction.
type OutboxMessage struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	OrderID     uuid.UUID       `json:"order_id" db:"order_id"`
	EventType   EventType       `json:"event_type" db:"event_type"`
	Payload     json.RawMessage `json:"payload" db:"payload"`
	Published   bool            `json:"published" db:"published"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	PublishedAt *time.Time      `json:"published_at" db:"published_at"`
}
