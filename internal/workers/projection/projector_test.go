package projection

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/quickbite/order_fulfillment/internal/domain/models"
	"github.com/quickbite/order_fulfillment/pkg/logger"
)

type statusChange struct {
	orderID uuid.UUID
	status  models.OrderStatus
}

type fakeReadModelRepo struct {
	orders   map[uuid.UUID]models.OrderRead
	items    []models.OrderItemRead
	statuses []statusChange
}

func newFakeReadModelRepo() *fakeReadModelRepo {
	return &fakeReadModelRepo{orders: make(map[uuid.UUID]models.OrderRead)}
}

func (r *fakeReadModelRepo) UpsertOrder(_ context.Context, order models.OrderRead) error {
	// ON CONFLICT DO NOTHING semantics: the first write wins.
	if _, ok := r.orders[order.ID]; !ok {
		r.orders[order.ID] = order
	}
	return nil
}

func (r *fakeReadModelRepo) UpsertItem(_ context.Context, item models.OrderItemRead) error {
	for _, existing := range r.items {
		if existing.OrderID == item.OrderID && existing.ProductID == item.ProductID {
			return nil
		}
	}
	r.items = append(r.items, item)
	return nil
}

func (r *fakeReadModelRepo) SetStatus(_ context.Context, orderID uuid.UUID, status models.OrderStatus, _ time.Time) error {
	r.statuses = append(r.statuses, statusChange{orderID: orderID, status: status})
	return nil
}

func projectorEnv() (*Projector, *fakeReadModelRepo) {
	repo := newFakeReadModelRepo()
	return NewProjector(logger.NewSlogLogger(logger.EnvLocal), repo), repo
}

func eventMessage(t *testing.T, event models.Event) *sarama.ConsumerMessage {
	t.Helper()

	value, err := json.Marshal(event)
	require.NoError(t, err)

	return &sarama.ConsumerMessage{
		Topic: "orders.events",
		Key:   []byte(event.OrderID.String()),
		Value: value,
	}
}

func TestProjectOrderCreated(t *testing.T) {
	projector, repo := projectorEnv()

	orderID := uuid.New()
	customerID := uuid.New()
	productID := uuid.New()

	event, err := models.NewEvent(models.EventOrderCreated, orderID, models.OrderCreatedPayload{
		CustomerID:  customerID,
		TotalAmount: 50,
		Items: []models.OrderItem{
			{ProductID: productID, Name: "Burger", Price: 25, Quantity: 2},
		},
	}, 1, uuid.Nil)
	require.NoError(t, err)

	projector.HandleMessage(context.Background(), eventMessage(t, event))

	order, ok := repo.orders[orderID]
	require.True(t, ok)
	require.Equal(t, customerID, order.CustomerID)
	require.Equal(t, models.OrderStatusPending, order.Status)
	require.Equal(t, int64(50), order.TotalAmount)
	require.Equal(t, 1, order.ItemCount)

	require.Len(t, repo.items, 1)
	require.Equal(t, int64(50), repo.items[0].Subtotal)
}

func TestProjectOrderCreatedRedeliveryIsIdempotent(t *testing.T) {
	projector, repo := projectorEnv()

	event, err := models.NewEvent(models.EventOrderCreated, uuid.New(), models.OrderCreatedPayload{
		CustomerID:  uuid.New(),
		TotalAmount: 50,
		Items: []models.OrderItem{
			{ProductID: uuid.New(), Name: "Burger", Price: 25, Quantity: 2},
		},
	}, 1, uuid.Nil)
	require.NoError(t, err)

	msg := eventMessage(t, event)
	projector.HandleMessage(context.Background(), msg)
	projector.HandleMessage(context.Background(), msg)

	require.Len(t, repo.orders, 1)
	require.Len(t, repo.items, 1)
}

func TestProjectStatusEvents(t *testing.T) {
	tCases := []struct {
		name      string
		eventType models.EventType
		payload   any
		expStatus models.OrderStatus
	}{
		{
			name:      "status_updated",
			eventType: models.EventOrderStatusUpdate,
			payload:   models.OrderStatusUpdatedPayload{PreviousStatus: models.OrderStatusPreparing, NewStatus: models.OrderStatusReady},
			expStatus: models.OrderStatusReady,
		},
		{
			name:      "cancelled",
			eventType: models.EventOrderCancelled,
			payload:   models.OrderCancelledPayload{Reason: "Cancelled by customer"},
			expStatus: models.OrderStatusCancelled,
		},
		{
			name:      "payment_confirmed",
			eventType: models.EventPaymentConfirmed,
			payload:   models.PaymentConfirmedPayload{TransactionID: uuid.New()},
			expStatus: models.OrderStatusPaymentConfirmed,
		},
		{
			name:      "payment_failed",
			eventType: models.EventPaymentFailed,
			payload:   models.PaymentFailedPayload{Reason: "Insufficient funds"},
			expStatus: models.OrderStatusCancelled,
		},
		{
			name:      "inventory_reserved",
			eventType: models.EventInventoryReserved,
			payload:   models.InventoryReservedPayload{ReservationID: uuid.New()},
			expStatus: models.OrderStatusPreparing,
		},
		{
			name:      "inventory_failed",
			eventType: models.EventInventoryFailed,
			payload:   models.InventoryFailedPayload{Reason: "Insufficient stock"},
			expStatus: models.OrderStatusCancelled,
		},
	}

	for _, tCase := range tCases {
		t.Run(tCase.name, func(t *testing.T) {
			projector, repo := projectorEnv()

			orderID := uuid.New()
			event, err := models.NewEvent(tCase.eventType, orderID, tCase.payload, 2, uuid.New())
			require.NoError(t, err)

			projector.HandleMessage(context.Background(), eventMessage(t, event))

			require.Equal(t, []statusChange{{orderID: orderID, status: tCase.expStatus}}, repo.statuses)
		})
	}
}

func TestProjectUnknownTypeIsSkipped(t *testing.T) {
	projector, repo := projectorEnv()

	event, err := models.NewEvent(models.EventType("LOYALTY_POINTS_GRANTED"), uuid.New(),
		map[string]int{"points": 5}, 3, uuid.New())
	require.NoError(t, err)

	projector.HandleMessage(context.Background(), eventMessage(t, event))

	require.Empty(t, repo.orders)
	require.Empty(t, repo.statuses)
}

func TestProjectMalformedMessageIsDropped(t *testing.T) {
	projector, repo := projectorEnv()

	projector.HandleMessage(context.Background(), &sarama.ConsumerMessage{
		Topic: "orders.events",
		Value: []byte("{broken"),
	})

	require.Empty(t, repo.orders)
	require.Empty(t, repo.statuses)
}
