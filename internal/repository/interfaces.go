package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/quickbite/order_fulfillment/internal/domain/models"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mock_repository.go -package=mocks

// OrderCreator is the write-side capability the create service consumes.
type OrderCreator interface {
	Create(ctx context.Context, order *models.Order) (uuid.UUID, error)
}
