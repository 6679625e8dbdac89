package models

import (
	"time"

	"github.com/google/uuid"
)

type SagaStep string

const (
	SagaStepPaymentProcessing SagaStep = "PAYMENT_PROCESSING"
	SagaStepInventoryPending  SagaStep = "INVENTORY_PENDING"
	SagaStepCompleted         SagaStep = "COMPLETED"
	SagaStepCompensating      SagaStep = "COMPENSATING"
	SagaStepFailed            SagaStep = "FAILED"
)

type SagaStatus string

const (
	SagaStatusRunning   SagaStatus = "RUNNING"
	SagaStatusCompleted SagaStatus = "COMPLETED"
	SagaStatusFailed    SagaStatus = "FAILED"
)

// SagaInstance is the per-order fulfillment state machine row, 1:1 with
// the order. LastEventID is the idempotency token: a redelivery carrying
// the same event id is dropped before any side effect runs.
type SagaInstance struct {
	OrderID     uuid.UUID  `db:"order_id"`
	CurrentStep SagaStep   `db:"current_step"`
	Status      SagaStatus `db:"status"`
	LastEventID uuid.UUID  `db:"last_event_id"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}
