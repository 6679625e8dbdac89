package saga

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/quickbite/order_fulfillment/internal/domain/models"
	"github.com/quickbite/order_fulfillment/pkg/logger"
)

type fakeSagaRepo struct {
	instance *models.SagaInstance

	upserted    []uuid.UUID
	steps       []models.SagaStep
	completed   []uuid.UUID
	compensated []string

	err error
}

func (r *fakeSagaRepo) Get(_ context.Context, _ uuid.UUID) (*models.SagaInstance, error) {
	return r.instance, nil
}

func (r *fakeSagaRepo) Upsert(_ context.Context, orderID, lastEventID uuid.UUID) error {
	if r.err != nil {
		return r.err
	}
	r.upserted = append(r.upserted, orderID)
	r.record(orderID, models.SagaStepPaymentProcessing, models.SagaStatusRunning, lastEventID)
	return nil
}

func (r *fakeSagaRepo) SetStep(_ context.Context, orderID uuid.UUID, step models.SagaStep, lastEventID uuid.UUID) error {
	if r.err != nil {
		return r.err
	}
	r.steps = append(r.steps, step)
	r.record(orderID, step, models.SagaStatusRunning, lastEventID)
	return nil
}

func (r *fakeSagaRepo) Complete(_ context.Context, orderID, lastEventID uuid.UUID) error {
	if r.err != nil {
		return r.err
	}
	r.completed = append(r.completed, orderID)
	r.record(orderID, models.SagaStepCompleted, models.SagaStatusCompleted, lastEventID)
	return nil
}

// record mirrors the saga_instances row so redelivered events hit the
// same lastEventID check the real repository feeds.
func (r *fakeSagaRepo) record(orderID uuid.UUID, step models.SagaStep, status models.SagaStatus, lastEventID uuid.UUID) {
	r.instance = &models.SagaInstance{
		OrderID:     orderID,
		CurrentStep: step,
		Status:      status,
		LastEventID: lastEventID,
	}
}

func (r *fakeSagaRepo) Compensate(_ context.Context, _, _ uuid.UUID, reason string) error {
	if r.err != nil {
		return r.err
	}
	r.compensated = append(r.compensated, reason)
	return nil
}

type fakeOrderRepo struct {
	statuses []models.OrderStatus
}

func (r *fakeOrderRepo) SetStatus(_ context.Context, _ uuid.UUID, status models.OrderStatus) error {
	r.statuses = append(r.statuses, status)
	return nil
}

type recordingProducer struct {
	sent []*sarama.ProducerMessage
}

func (p *recordingProducer) SendMessage(msg *sarama.ProducerMessage) (int32, int64, error) {
	p.sent = append(p.sent, msg)
	return 0, 0, nil
}

type stubPayments struct {
	result PaymentResult
	err    error
}

func (s stubPayments) Process(_ context.Context, _ uuid.UUID) (PaymentResult, error) {
	return s.result, s.err
}

type stubInventory struct {
	result InventoryResult
	err    error
}

func (s stubInventory) Reserve(_ context.Context, _ uuid.UUID) (InventoryResult, error) {
	return s.result, s.err
}

type orchestratorEnv struct {
	orchestrator *Orchestrator
	sagas        *fakeSagaRepo
	orders       *fakeOrderRepo
	producer     *recordingProducer
}

func newOrchestratorEnv(payments PaymentProcessor, inventory InventoryReserver) *orchestratorEnv {
	sagas := &fakeSagaRepo{}
	orders := &fakeOrderRepo{}
	producer := &recordingProducer{}

	return &orchestratorEnv{
		orchestrator: NewOrchestrator(
			logger.NewSlogLogger(logger.EnvLocal),
			producer, sagas, orders, payments, inventory,
			"orders.saga", "orders.events", "orders.deadletter",
		),
		sagas:    sagas,
		orders:   orders,
		producer: producer,
	}
}

func consumerMessage(t *testing.T, event models.Event) *sarama.ConsumerMessage {
	t.Helper()

	value, err := json.Marshal(event)
	require.NoError(t, err)

	return &sarama.ConsumerMessage{
		Topic: "orders.saga",
		Key:   []byte(event.OrderID.String()),
		Value: value,
	}
}

// sentEvents decodes every message the producer saw for the given topic.
func sentEvents(t *testing.T, producer *recordingProducer, topic string) []models.Event {
	t.Helper()

	var events []models.Event
	for _, msg := range producer.sent {
		if msg.Topic != topic {
			continue
		}

		raw, err := msg.Value.Encode()
		require.NoError(t, err)

		var event models.Event
		require.NoError(t, json.Unmarshal(raw, &event))
		events = append(events, event)
	}

	return events
}

func TestStartSagaPaymentConfirmed(t *testing.T) {
	env := newOrchestratorEnv(
		stubPayments{result: PaymentResult{Confirmed: true, TransactionID: uuid.New()}},
		stubInventory{},
	)

	orderID := uuid.New()
	event, err := models.NewEvent(models.EventOrderCreated, orderID,
		models.OrderCreatedPayload{CustomerID: uuid.New(), TotalAmount: 50}, 1, uuid.Nil)
	require.NoError(t, err)

	env.orchestrator.HandleMessage(context.Background(), consumerMessage(t, event))

	require.Equal(t, []uuid.UUID{orderID}, env.sagas.upserted)
	require.Equal(t, []models.OrderStatus{models.OrderStatusPaymentProcessing}, env.orders.statuses)

	for _, topic := range []string{"orders.saga", "orders.events"} {
		emitted := sentEvents(t, env.producer, topic)
		require.Len(t, emitted, 1)
		require.Equal(t, models.EventPaymentConfirmed, emitted[0].Type)
		require.Equal(t, orderID, emitted[0].OrderID)
		require.Equal(t, event.CorrelationID, emitted[0].CorrelationID)
	}
}

func TestStartSagaPaymentDeclined(t *testing.T) {
	env := newOrchestratorEnv(
		stubPayments{result: PaymentResult{Reason: "Payment gateway declined"}},
		stubInventory{},
	)

	orderID := uuid.New()
	event, err := models.NewEvent(models.EventOrderCreated, orderID,
		models.OrderCreatedPayload{CustomerID: uuid.New(), TotalAmount: 50}, 1, uuid.Nil)
	require.NoError(t, err)

	env.orchestrator.HandleMessage(context.Background(), consumerMessage(t, event))

	emitted := sentEvents(t, env.producer, "orders.saga")
	require.Len(t, emitted, 1)
	require.Equal(t, models.EventPaymentFailed, emitted[0].Type)

	var payload models.PaymentFailedPayload
	require.NoError(t, json.Unmarshal(emitted[0].Payload, &payload))
	require.Equal(t, "Payment gateway declined", payload.Reason)
}

func TestOnPaymentConfirmedReservesInventory(t *testing.T) {
	env := newOrchestratorEnv(
		stubPayments{},
		stubInventory{result: InventoryResult{Reserved: true, ReservationID: uuid.New()}},
	)

	orderID := uuid.New()
	event, err := models.NewEvent(models.EventPaymentConfirmed, orderID,
		models.PaymentConfirmedPayload{TransactionID: uuid.New()}, 0, uuid.New())
	require.NoError(t, err)

	env.orchestrator.HandleMessage(context.Background(), consumerMessage(t, event))

	require.Equal(t, []models.SagaStep{models.SagaStepInventoryPending}, env.sagas.steps)
	require.Equal(t, []models.OrderStatus{models.OrderStatusPaymentConfirmed}, env.orders.statuses)

	emitted := sentEvents(t, env.producer, "orders.saga")
	require.Len(t, emitted, 1)
	require.Equal(t, models.EventInventoryReserved, emitted[0].Type)
}

func TestInventoryReservedCompletesSaga(t *testing.T) {
	env := newOrchestratorEnv(stubPayments{}, stubInventory{})

	orderID := uuid.New()
	event, err := models.NewEvent(models.EventInventoryReserved, orderID,
		models.InventoryReservedPayload{ReservationID: uuid.New()}, 0, uuid.New())
	require.NoError(t, err)

	env.orchestrator.HandleMessage(context.Background(), consumerMessage(t, event))

	require.Equal(t, []uuid.UUID{orderID}, env.sagas.completed)
	require.Empty(t, env.producer.sent)
}

func TestCompensationReasons(t *testing.T) {
	tCases := []struct {
		name      string
		eventType models.EventType
		payload   any
		expReason string
	}{
		{
			name:      "payment_failed",
			eventType: models.EventPaymentFailed,
			payload:   models.PaymentFailedPayload{Reason: "Insufficient funds"},
			expReason: "Payment failed",
		},
		{
			name:      "inventory_failed",
			eventType: models.EventInventoryFailed,
			payload:   models.InventoryFailedPayload{Reason: "Insufficient stock"},
			expReason: "Inventory reservation failed",
		},
	}

	for _, tCase := range tCases {
		t.Run(tCase.name, func(t *testing.T) {
			env := newOrchestratorEnv(stubPayments{}, stubInventory{})

			event, err := models.NewEvent(tCase.eventType, uuid.New(), tCase.payload, 0, uuid.New())
			require.NoError(t, err)

			env.orchestrator.HandleMessage(context.Background(), consumerMessage(t, event))

			require.Equal(t, []models.SagaStep{models.SagaStepCompensating}, env.sagas.steps)
			require.Equal(t, []string{tCase.expReason}, env.sagas.compensated)
		})
	}
}

// TestFulfillmentChainCompletes drives a freshly created order through
// the whole orchestration by redelivering every emitted event, mirrored
// copies included, back into the handler: payment, then inventory, then
// saga completion with the order moved to PREPARING.
func TestFulfillmentChainCompletes(t *testing.T) {
	env := newOrchestratorEnv(
		stubPayments{result: PaymentResult{Confirmed: true, TransactionID: uuid.New()}},
		stubInventory{result: InventoryResult{Reserved: true, ReservationID: uuid.New()}},
	)

	orderID := uuid.New()
	created, err := models.NewEvent(models.EventOrderCreated, orderID,
		models.OrderCreatedPayload{CustomerID: uuid.New(), TotalAmount: 50}, 1, uuid.Nil)
	require.NoError(t, err)

	env.orchestrator.HandleMessage(context.Background(), consumerMessage(t, created))

	// The producer log doubles as the delivery queue; handling one
	// message may append more, and len is re-read every iteration.
	for i := 0; i < len(env.producer.sent); i++ {
		emitted := env.producer.sent[i]

		key, encErr := emitted.Key.Encode()
		require.NoError(t, encErr)
		value, encErr := emitted.Value.Encode()
		require.NoError(t, encErr)

		env.orchestrator.HandleMessage(context.Background(), &sarama.ConsumerMessage{
			Topic: emitted.Topic,
			Key:   key,
			Value: value,
		})
	}

	require.Equal(t, []uuid.UUID{orderID}, env.sagas.upserted)
	require.Equal(t, []models.SagaStep{models.SagaStepInventoryPending}, env.sagas.steps)
	require.Equal(t, []uuid.UUID{orderID}, env.sagas.completed)
	require.Empty(t, env.sagas.compensated)

	require.Equal(t,
		[]models.OrderStatus{models.OrderStatusPaymentProcessing, models.OrderStatusPaymentConfirmed},
		env.orders.statuses,
	)
	require.Equal(t, models.SagaStatusCompleted, env.sagas.instance.Status)

	// PAYMENT_CONFIRMED and INVENTORY_RESERVED, each mirrored to the
	// events topic; the mirrored copies were deduplicated, not reprocessed.
	require.Len(t, env.producer.sent, 4)
	for _, topic := range []string{"orders.saga", "orders.events"} {
		emitted := sentEvents(t, env.producer, topic)
		require.Len(t, emitted, 2)
		require.Equal(t, models.EventPaymentConfirmed, emitted[0].Type)
		require.Equal(t, models.EventInventoryReserved, emitted[1].Type)
		require.Equal(t, created.CorrelationID, emitted[0].CorrelationID)
		require.Equal(t, created.CorrelationID, emitted[1].CorrelationID)
	}
}

// The compensation path must also compose: a declined payment redelivered
// through the handler ends with the saga FAILED and no inventory step.
func TestFulfillmentChainCompensates(t *testing.T) {
	env := newOrchestratorEnv(
		stubPayments{result: PaymentResult{Reason: "Payment gateway declined"}},
		stubInventory{result: InventoryResult{Reserved: true, ReservationID: uuid.New()}},
	)

	orderID := uuid.New()
	created, err := models.NewEvent(models.EventOrderCreated, orderID,
		models.OrderCreatedPayload{CustomerID: uuid.New(), TotalAmount: 50}, 1, uuid.Nil)
	require.NoError(t, err)

	env.orchestrator.HandleMessage(context.Background(), consumerMessage(t, created))

	for i := 0; i < len(env.producer.sent); i++ {
		emitted := env.producer.sent[i]

		key, encErr := emitted.Key.Encode()
		require.NoError(t, encErr)
		value, encErr := emitted.Value.Encode()
		require.NoError(t, encErr)

		env.orchestrator.HandleMessage(context.Background(), &sarama.ConsumerMessage{
			Topic: emitted.Topic,
			Key:   key,
			Value: value,
		})
	}

	require.Equal(t, []models.SagaStep{models.SagaStepCompensating}, env.sagas.steps)
	require.Equal(t, []string{reasonPaymentFailed}, env.sagas.compensated)
	require.Empty(t, env.sagas.completed)
	require.Equal(t, []models.OrderStatus{models.OrderStatusPaymentProcessing}, env.orders.statuses)

	emitted := sentEvents(t, env.producer, "orders.saga")
	require.Len(t, emitted, 1)
	require.Equal(t, models.EventPaymentFailed, emitted[0].Type)
}

func TestDuplicateEventIsSkipped(t *testing.T) {
	env := newOrchestratorEnv(stubPayments{}, stubInventory{})

	orderID := uuid.New()
	event, err := models.NewEvent(models.EventPaymentFailed, orderID,
		models.PaymentFailedPayload{Reason: "Insufficient funds"}, 0, uuid.New())
	require.NoError(t, err)

	env.sagas.instance = &models.SagaInstance{
		OrderID:     orderID,
		CurrentStep: models.SagaStepPaymentProcessing,
		Status:      models.SagaStatusRunning,
		LastEventID: event.EventID,
	}

	env.orchestrator.HandleMessage(context.Background(), consumerMessage(t, event))

	require.Empty(t, env.sagas.steps)
	require.Empty(t, env.sagas.compensated)
	require.Empty(t, env.producer.sent)
}

func TestMalformedMessageIsDropped(t *testing.T) {
	env := newOrchestratorEnv(stubPayments{}, stubInventory{})

	env.orchestrator.HandleMessage(context.Background(), &sarama.ConsumerMessage{
		Topic: "orders.saga",
		Value: []byte("not json"),
	})

	require.Empty(t, env.sagas.upserted)
	require.Empty(t, env.producer.sent)
}

func TestHandlerErrorGoesToDeadLetter(t *testing.T) {
	env := newOrchestratorEnv(stubPayments{}, stubInventory{})
	env.sagas.err = errors.New("saga store unavailable")

	orderID := uuid.New()
	event, err := models.NewEvent(models.EventOrderCreated, orderID,
		models.OrderCreatedPayload{CustomerID: uuid.New(), TotalAmount: 50}, 1, uuid.Nil)
	require.NoError(t, err)

	msg := consumerMessage(t, event)
	env.orchestrator.HandleMessage(context.Background(), msg)

	require.Len(t, env.producer.sent, 1)
	require.Equal(t, "orders.deadletter", env.producer.sent[0].Topic)

	raw, encErr := env.producer.sent[0].Value.Encode()
	require.NoError(t, encErr)

	var envelope struct {
		Event json.RawMessage `json:"event"`
		Error string          `json:"error"`
	}
	require.NoError(t, json.Unmarshal(raw, &envelope))
	require.Contains(t, envelope.Error, "saga store unavailable")
	require.JSONEq(t, string(msg.Value), string(envelope.Event))
}
