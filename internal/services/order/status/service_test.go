package status

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/quickbite/order_fulfillment/internal/domain/models"
	internalErrors "github.com/quickbite/order_fulfillment/internal/lib/errors"
	"github.com/quickbite/order_fulfillment/pkg/logger"
)

type fakeUpdater struct {
	calls []models.OrderStatus
	err   error
}

func (u *fakeUpdater) UpdateStatus(_ context.Context, _ uuid.UUID, newStatus models.OrderStatus) error {
	if u.err != nil {
		return u.err
	}
	u.calls = append(u.calls, newStatus)
	return nil
}

func TestUpdateStatus(t *testing.T) {
	updater := &fakeUpdater{}
	svc := New(logger.NewSlogLogger(logger.EnvLocal), updater)

	err := svc.UpdateStatus(context.Background(), uuid.New(), models.OrderStatusReady)
	require.NoError(t, err)
	require.Equal(t, []models.OrderStatus{models.OrderStatusReady}, updater.calls)
}

func TestUpdateStatusUnknownStatus(t *testing.T) {
	updater := &fakeUpdater{}
	svc := New(logger.NewSlogLogger(logger.EnvLocal), updater)

	err := svc.UpdateStatus(context.Background(), uuid.New(), models.OrderStatus("SHIPPED"))
	require.ErrorIs(t, err, internalErrors.ErrInvalidStatusTransition)
	require.Empty(t, updater.calls)
}

func TestUpdateStatusRepositoryError(t *testing.T) {
	updater := &fakeUpdater{err: internalErrors.ErrOrderTerminal}
	svc := New(logger.NewSlogLogger(logger.EnvLocal), updater)

	err := svc.UpdateStatus(context.Background(), uuid.New(), models.OrderStatusCancelled)
	require.ErrorIs(t, err, internalErrors.ErrOrderTerminal)
	require.False(t, errors.Is(err, internalErrors.ErrOrderNotFound))
}
