package get

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/quickbite/order_fulfillment/internal/cache_impl"
	"github.com/quickbite/order_fulfillment/internal/domain/models"
	"github.com/quickbite/order_fulfillment/pkg/logger"
)

type readModelGetter interface {
	Order(ctx context.Context, orderID uuid.UUID) (*models.OrderRead, []models.OrderItemRead, error)
	Orders(ctx context.Context) ([]models.OrderRead, error)
}

type eventsGetter interface {
	Events(ctx context.Context, orderID uuid.UUID) ([]models.Event, error)
}

// Service answers queries from the eventually consistent read copy; the
// timeline comes from the event log itself.
type Service struct {
	log   logger.Logger
	cache cache_impl.CacheI[uuid.UUID, *models.OrderDetails]

	readModel readModelGetter
	events    eventsGetter
}

func New(
	log logger.Logger,
	cache cache_impl.CacheI[uuid.UUID, *models.OrderDetails],
	readModel readModelGetter,
	events eventsGetter,
) *Service {
	return &Service{
		log:       log,
		cache:     cache,
		readModel: readModel,
		events:    events,
	}
}

func (s *Service) Order(ctx context.Context, orderID uuid.UUID) (*models.OrderDetails, error) {
	const op = "services.order.get.Order"

	if details, ok := s.cache.Get(orderID); ok && details != nil {
		// Terminal orders cannot change anymore, so the cached copy is
		// final. Everything else may still move and is re-read.
		if models.IsTerminal(details.Order.Status) {
			return details, nil
		}
	}

	order, items, err := s.readModel.Order(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	timeline, err := s.events.Events(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	details := &models.OrderDetails{
		Order:    *order,
		Items:    items,
		Timeline: timeline,
	}

	_ = s.cache.Add(orderID, details)

	return details, nil
}

func (s *Service) Orders(ctx context.Context) ([]models.OrderRead, error) {
	const op = "services.order.get.Orders"

	orders, err := s.readModel.Orders(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return orders, nil
}
