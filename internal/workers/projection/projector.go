package projection

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/quickbite/order_fulfillment/internal/domain/models"
	"github.com/quickbite/order_fulfillment/pkg/logger"
)

type readModelRepository interface {
	UpsertOrder(ctx context.Context, order models.OrderRead) error
	UpsertItem(ctx context.Context, item models.OrderItemRead) error
	SetStatus(ctx context.Context, orderID uuid.UUID, status models.OrderStatus, updatedAt time.Time) error
}

// Projector maintains the denormalized read copy. Every write is
// idempotent, so the projection is safe under at-least-once redelivery
// and can be rebuilt from empty by replaying the log from its start.
type Projector struct {
	log  logger.Logger
	repo readModelRepository
}

func NewProjector(log logger.Logger, repo readModelRepository) *Projector {
	return &Projector{
		log:  log,
		repo: repo,
	}
}

func (p *Projector) HandleMessage(ctx context.Context, msg *sarama.ConsumerMessage) {
	const op = "workers.projection.HandleMessage"

	var event models.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		p.log.Error(op, "error", "failed to parse message: "+err.Error())
		return
	}

	if err := p.handleEvent(ctx, event); err != nil {
		p.log.Error(op, "event_id", event.EventID.String(), "error", err.Error())
		return
	}

	p.log.Debug(op, "event_id", event.EventID.String(), "type", string(event.Type),
		"order_id", event.OrderID.String())
}

func (p *Projector) handleEvent(ctx context.Context, event models.Event) error {
	const op = "workers.projection.handleEvent"

	switch event.Type {
	case models.EventOrderCreated:
		return p.projectCreated(ctx, event)
	case models.EventOrderStatusUpdate, models.EventOrderCancelled,
		models.EventPaymentConfirmed, models.EventPaymentFailed,
		models.EventInventoryReserved, models.EventInventoryFailed:
		status, ok := targetStatus(event)
		if !ok {
			return nil
		}
		return p.repo.SetStatus(ctx, event.OrderID, status, event.Timestamp)
	default:
		// Unknown types are skipped so the projector stays
		// forward-compatible with future event types.
		p.log.Warn(op, "type", string(event.Type), "order_id", event.OrderID.String(),
			"msg", "unknown event type, skipping")
		return nil
	}
}

func (p *Projector) projectCreated(ctx context.Context, event models.Event) error {
	const op = "workers.projection.projectCreated"

	var payload models.OrderCreatedPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("%s: unmarshal payload: %w", op, err)
	}

	if err := p.repo.UpsertOrder(ctx, models.OrderRead{
		ID:          event.OrderID,
		CustomerID:  payload.CustomerID,
		Status:      models.OrderStatusPending,
		TotalAmount: payload.TotalAmount,
		ItemCount:   len(payload.Items),
		CreatedAt:   event.Timestamp,
		UpdatedAt:   event.Timestamp,
	}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for _, item := range payload.Items {
		if err := p.repo.UpsertItem(ctx, models.OrderItemRead{
			OrderID:   event.OrderID,
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
			Subtotal:  item.Price * int64(item.Quantity),
		}); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	return nil
}

// targetStatus is the fixed event-type to read-status table. Failed
// payment and failed inventory both surface as CANCELLED.
func targetStatus(event models.Event) (models.OrderStatus, bool) {
	switch event.Type {
	case models.EventOrderStatusUpdate:
		var payload models.OrderStatusUpdatedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return "", false
		}
		return payload.NewStatus, payload.NewStatus != ""
	case models.EventOrderCancelled, models.EventPaymentFailed, models.EventInventoryFailed:
		return models.OrderStatusCancelled, true
	case models.EventPaymentConfirmed:
		return models.OrderStatusPaymentConfirmed, true
	case models.EventInventoryReserved:
		return models.OrderStatusPreparing, true
	default:
		return "", false
	}
}
