package status

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/quickbite/order_fulfillment/internal/domain/models"
	internalErrors "github.com/quickbite/order_fulfillment/internal/lib/errors"
	"github.com/quickbite/order_fulfillment/pkg/logger"
)

type orderStatusUpdater interface {
	UpdateStatus(ctx context.Context, orderID uuid.UUID, newStatus models.OrderStatus) error
}

// Service is the manual transition path used by staff tooling: PREPARING
// to READY to DELIVERED. The repository rejects terminal orders and
// off-path transitions.
type Service struct {
	log logger.Logger

	orderStatusUpdater orderStatusUpdater
}

func New(log logger.Logger, orderStatusUpdater orderStatusUpdater) *Service {
	return &Service{
		log:                log,
		orderStatusUpdater: orderStatusUpdater,
	}
}

func (s *Service) UpdateStatus(ctx context.Context, orderID uuid.UUID, newStatus models.OrderStatus) error {
	const op = "services.order.status.UpdateStatus"

	if !newStatus.Valid() {
		return fmt.Errorf("%s: %q: %w", op, newStatus, internalErrors.ErrInvalidStatusTransition)
	}

	if err := s.orderStatusUpdater.UpdateStatus(ctx, orderID, newStatus); err != nil {
		s.log.Error(op, "order_id", orderID.String(), "error", err.Error())
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.InfoContext(ctx, op, "order_id", orderID.String(), "new_status", string(newStatus))

	return nil
}
