package saga

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/quickbite/order_fulfillment/internal/domain/models"
	"github.com/quickbite/order_fulfillment/pkg/logger"
)

const (
	reasonPaymentFailed   = "Payment failed"
	reasonInventoryFailed = "Inventory reservation failed"
)

type sagaRepository interface {
	Get(ctx context.Context, orderID uuid.UUID) (*models.SagaInstance, error)
	Upsert(ctx context.Context, orderID, lastEventID uuid.UUID) error
	SetStep(ctx context.Context, orderID uuid.UUID, step models.SagaStep, lastEventID uuid.UUID) error
	Complete(ctx context.Context, orderID, lastEventID uuid.UUID) error
	Compensate(ctx context.Context, orderID, correlationID uuid.UUID, reason string) error
}

type orderStatusSetter interface {
	SetStatus(ctx context.Context, orderID uuid.UUID, status models.OrderStatus) error
}

type messageSender interface {
	SendMessage(msg *sarama.ProducerMessage) (partition int32, offset int64, err error)
}

// Orchestrator drives the per-order fulfillment state machine:
// payment, then inventory, or a compensating cancellation.
type Orchestrator struct {
	log      logger.Logger
	producer messageSender

	sagas     sagaRepository
	orders    orderStatusSetter
	payments  PaymentProcessor
	inventory InventoryReserver

	sagaTopic       string
	eventsTopic     string
	deadLetterTopic string
}

func NewOrchestrator(
	log logger.Logger,
	producer messageSender,
	sagas sagaRepository,
	orders orderStatusSetter,
	payments PaymentProcessor,
	inventory InventoryReserver,
	sagaTopic string,
	eventsTopic string,
	deadLetterTopic string,
) *Orchestrator {
	return &Orchestrator{
		log:             log,
		producer:        producer,
		sagas:           sagas,
		orders:          orders,
		payments:        payments,
		inventory:       inventory,
		sagaTopic:       sagaTopic,
		eventsTopic:     eventsTopic,
		deadLetterTopic: deadLetterTopic,
	}
}

// HandleMessage processes one claimed message. Malformed payloads are
// dropped; a failing handler forwards the raw message to the dead-letter
// topic so one poisoned message never stalls the consumer.
func (o *Orchestrator) HandleMessage(ctx context.Context, msg *sarama.ConsumerMessage) {
	const op = "workers.saga.HandleMessage"

	var event models.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		o.log.Error(op, "error", "failed to parse message: "+err.Error())
		return
	}

	if err := o.handleEvent(ctx, event); err != nil {
		o.log.Error(op, "event_id", event.EventID.String(), "error", err.Error())
		o.forwardToDeadLetter(msg, err)
	}
}

func (o *Orchestrator) handleEvent(ctx context.Context, event models.Event) error {
	const op = "workers.saga.handleEvent"

	instance, err := o.sagas.Get(ctx, event.OrderID)
	if err != nil {
		return fmt.Errorf("%s: get saga instance: %w", op, err)
	}

	if instance != nil && instance.LastEventID == event.EventID {
		o.log.Info(op, "event_id", event.EventID.String(), "order_id", event.OrderID.String(),
			"msg", "duplicate saga event, skipping")
		return nil
	}

	switch event.Type {
	case models.EventOrderCreated:
		return o.startSaga(ctx, event)
	case models.EventPaymentConfirmed:
		return o.onPaymentConfirmed(ctx, event)
	case models.EventInventoryReserved:
		return o.completeSaga(ctx, event)
	case models.EventPaymentFailed:
		return o.compensate(ctx, event, reasonPaymentFailed)
	case models.EventInventoryFailed:
		return o.compensate(ctx, event, reasonInventoryFailed)
	default:
		o.log.Debug(op, "type", string(event.Type), "order_id", event.OrderID.String(),
			"msg", "event type not orchestrated")
		return nil
	}
}

func (o *Orchestrator) startSaga(ctx context.Context, event models.Event) error {
	const op = "workers.saga.startSaga"

	if err := o.sagas.Upsert(ctx, event.OrderID, event.EventID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := o.orders.SetStatus(ctx, event.OrderID, models.OrderStatusPaymentProcessing); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	result, err := o.payments.Process(ctx, event.OrderID)
	if err != nil {
		return fmt.Errorf("%s: payment step: %w", op, err)
	}

	if result.Confirmed {
		err = o.emit(event.OrderID, event.CorrelationID, models.EventPaymentConfirmed,
			models.PaymentConfirmedPayload{TransactionID: result.TransactionID})
	} else {
		err = o.emit(event.OrderID, event.CorrelationID, models.EventPaymentFailed,
			models.PaymentFailedPayload{Reason: result.Reason})
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	o.log.Info(op, "order_id", event.OrderID.String(), "confirmed", result.Confirmed)

	return nil
}

func (o *Orchestrator) onPaymentConfirmed(ctx context.Context, event models.Event) error {
	const op = "workers.saga.onPaymentConfirmed"

	if err := o.sagas.SetStep(ctx, event.OrderID, models.SagaStepInventoryPending, event.EventID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := o.orders.SetStatus(ctx, event.OrderID, models.OrderStatusPaymentConfirmed); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	result, err := o.inventory.Reserve(ctx, event.OrderID)
	if err != nil {
		return fmt.Errorf("%s: inventory step: %w", op, err)
	}

	if result.Reserved {
		err = o.emit(event.OrderID, event.CorrelationID, models.EventInventoryReserved,
			models.InventoryReservedPayload{ReservationID: result.ReservationID})
	} else {
		err = o.emit(event.OrderID, event.CorrelationID, models.EventInventoryFailed,
			models.InventoryFailedPayload{Reason: result.Reason})
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	o.log.Info(op, "order_id", event.OrderID.String(), "reserved", result.Reserved)

	return nil
}

// completeSaga is the saga's terminal success: later lifecycle stages
// (READY, DELIVERED) are driven by a manual actor, outside the saga.
func (o *Orchestrator) completeSaga(ctx context.Context, event models.Event) error {
	const op = "workers.saga.completeSaga"

	if err := o.sagas.Complete(ctx, event.OrderID, event.EventID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	o.log.Info(op, "order_id", event.OrderID.String(), "msg", "saga completed, order preparing")

	return nil
}

func (o *Orchestrator) compensate(ctx context.Context, event models.Event, reason string) error {
	const op = "workers.saga.compensate"

	if err := o.sagas.SetStep(ctx, event.OrderID, models.SagaStepCompensating, event.EventID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := o.sagas.Compensate(ctx, event.OrderID, event.CorrelationID, reason); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	o.log.Info(op, "order_id", event.OrderID.String(), "reason", reason,
		"msg", "compensating transaction applied, order cancelled")

	return nil
}

// emit publishes an orchestration outcome to the saga topic and mirrors
// it onto the events topic for the projector.
func (o *Orchestrator) emit(orderID, correlationID uuid.UUID, eventType models.EventType, payload any) error {
	event, err := models.NewEvent(eventType, orderID, payload, 0, correlationID)
	if err != nil {
		return fmt.Errorf("build event: %w", err)
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	for _, topic := range []string{o.sagaTopic, o.eventsTopic} {
		if _, _, err = o.producer.SendMessage(&sarama.ProducerMessage{
			Topic: topic,
			Key:   sarama.StringEncoder(orderID.String()),
			Value: sarama.ByteEncoder(value),
		}); err != nil {
			return fmt.Errorf("send %s to %s: %w", eventType, topic, err)
		}
	}

	return nil
}

type deadLetterEnvelope struct {
	Event json.RawMessage `json:"event"`
	Error string          `json:"error"`
}

func (o *Orchestrator) forwardToDeadLetter(msg *sarama.ConsumerMessage, handleErr error) {
	const op = "workers.saga.forwardToDeadLetter"

	value, err := json.Marshal(deadLetterEnvelope{
		Event: msg.Value,
		Error: handleErr.Error(),
	})
	if err != nil {
		o.log.Error(op, "error", err.Error())
		return
	}

	if _, _, err = o.producer.SendMessage(&sarama.ProducerMessage{
		Topic: o.deadLetterTopic,
		Key:   sarama.ByteEncoder(msg.Key),
		Value: sarama.ByteEncoder(value),
	}); err != nil {
		o.log.Error(op, "error", err.Error())
	}
}
