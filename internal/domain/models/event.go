package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventOrderCreated      EventType = "ORDER_CREATED"
	EventOrderStatusUpdate EventType = "ORDER_STATUS_UPDATED"
	EventOrderCancelled    EventType = "ORDER_CANCELLED"
	EventPaymentConfirmed  EventType = "PAYMENT_CONFIRMED"
	EventPaymentFailed     EventType = "PAYMENT_FAILED"
	EventInventoryReserved EventType = "INVENTORY_RESERVED"
	EventInventoryFailed   EventType = "INVENTORY_FAILED"
)

// Event is the envelope every producer writes and every consumer reads.
// CorrelationID groups all events from one causal chain.
type Event struct {
	EventID       uuid.UUID       `json:"eventId"`
	OrderID       uuid.UUID       `json:"orderId"`
	CorrelationID uuid.UUID       `json:"correlationId"`
	Timestamp     time.Time       `json:"timestamp"`
	Type          EventType       `json:"type"`
	Version       int             `json:"version"`
	Payload       json.RawMessage `json:"payload"`
}

type OrderCreatedPayload struct {
	CustomerID  uuid.UUID   `json:"customerId"`
	TotalAmount int64       `json:"totalAmount"`
	Items       []OrderItem `json:"items"`
}

type OrderStatusUpdatedPayload struct {
	PreviousStatus OrderStatus `json:"previousStatus"`
	NewStatus      OrderStatus `json:"newStatus"`
}

type OrderCancelledPayload struct {
	Reason string `json:"reason,omitempty"`
}

type PaymentConfirmedPayload struct {
	TransactionID uuid.UUID `json:"transactionId"`
	Amount        int64     `json:"amount"`
}

type PaymentFailedPayload struct {
	Reason string `json:"reason"`
}

type InventoryReservedPayload struct {
	ReservationID uuid.UUID `json:"reservationId"`
}

type InventoryFailedPayload struct {
	Reason string `json:"reason"`
}

// NewEvent builds an envelope with a fresh event id. A zero correlationID
// starts a new causal chain.
func NewEvent(
	eventType EventType,
	orderID uuid.UUID,
	payload any,
	version int,
	correlationID uuid.UUID,
) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	if correlationID == uuid.Nil {
		correlationID = uuid.New()
	}

	return Event{
		EventID:       uuid.New(),
		OrderID:       orderID,
		CorrelationID: correlationID,
		Timestamp:     time.Now().UTC(),
		Type:          eventType,
		Version:       version,
		Payload:       raw,
	}, nil
}

// ApplyEvent is the pure fold deriving order state from the event history.
// Unknown event types leave the state untouched, so consumers stay
// forward-compatible. INVENTORY_FAILED folds to CANCELLED to agree with
// the read-model mapping: the saga cancels such orders anyway.
func ApplyEvent(state Order, event Event) Order {
	switch event.Type {
	case EventOrderCreated:
		var p OrderCreatedPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			return state
		}

		items := make([]OrderItem, len(p.Items))
		copy(items, p.Items)
		for i := range items {
			items[i].OrderID = event.OrderID
		}

		return Order{
			ID:          event.OrderID,
			CustomerID:  p.CustomerID,
			Status:      OrderStatusPending,
			TotalAmount: p.TotalAmount,
			Version:     event.Version,
			Items:       items,
		}
	case EventOrderStatusUpdate:
		var p OrderStatusUpdatedPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			return state
		}

		state.Status = p.NewStatus
		state.Version = event.Version
		return state
	case EventOrderCancelled, EventPaymentFailed, EventInventoryFailed:
		state.Status = OrderStatusCancelled
		state.Version = event.Version
		return state
	case EventPaymentConfirmed:
		state.Status = OrderStatusPaymentConfirmed
		state.Version = event.Version
		return state
	case EventInventoryReserved:
		state.Status = OrderStatusPreparing
		state.Version = event.Version
		return state
	default:
		return state
	}
}

// Rehydrate folds the full ordered history from an empty state.
func Rehydrate(events []Event) Order {
	var state Order
	for _, event := range events {
		state = ApplyEvent(state, event)
	}
	return state
}
