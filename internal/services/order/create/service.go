package create

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/quickbite/order_fulfillment/internal/domain/models"
	"github.com/quickbite/order_fulfillment/pkg/logger"
)

type orderCreator interface {
	Create(ctx context.Context, order *models.Order) (uuid.UUID, error)
}

type Service struct {
	log logger.Logger

	orderCreator orderCreator
}

func New(log logger.Logger, orderCreator orderCreator) *Service {
	return &Service{
		log:          log,
		orderCreator: orderCreator,
	}
}

// Create performs the first write of the fulfillment chain: the order
// row, the ORDER_CREATED event and the outbox row commit atomically in
// the repository. Everything after that is asynchronous.
func (s *Service) Create(ctx context.Context, order *models.Order) (string, error) {
	const op = "services.order.create.Create"

	var total int64
	for _, item := range order.Items {
		total += item.Price * int64(item.Quantity)
	}
	order.TotalAmount = total

	orderID, err := s.orderCreator.Create(ctx, order)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	s.log.InfoContext(ctx, op, "order_id", orderID.String(), "total_amount", total)

	return orderID.String(), nil
}
