package cancel

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/quickbite/order_fulfillment/pkg/logger"
)

const customerCancelReason = "Cancelled by customer"

type orderCanceler interface {
	Cancel(ctx context.Context, orderID uuid.UUID, reason string) error
}

type Service struct {
	log logger.Logger

	orderCanceler orderCanceler
}

func New(log logger.Logger, orderCanceler orderCanceler) *Service {
	return &Service{
		log:           log,
		orderCanceler: orderCanceler,
	}
}

func (s *Service) Cancel(ctx context.Context, orderID uuid.UUID) error {
	const op = "services.order.cancel.Cancel"

	if err := s.orderCanceler.Cancel(ctx, orderID, customerCancelReason); err != nil {
		s.log.Error(op, "order_id", orderID.String(), "error", err.Error())
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.InfoContext(ctx, op, "order_id", orderID.String())

	return nil
}
