package saga

import (
	"context"
	"math/rand"
	"sync"

	"github.com/google/uuid"
)

type PaymentResult struct {
	Confirmed     bool
	TransactionID uuid.UUID
	Reason        string
}

// PaymentProcessor is the payment step capability. Exactly one of the two
// outcomes is produced: confirmed with a transaction id, or failed with a
// reason.
type PaymentProcessor interface {
	Process(ctx context.Context, orderID uuid.UUID) (PaymentResult, error)
}

type InventoryResult struct {
	Reserved      bool
	ReservationID uuid.UUID
	Reason        string
}

type InventoryReserver interface {
	Reserve(ctx context.Context, orderID uuid.UUID) (InventoryResult, error)
}

// SimulatedPaymentProcessor declines a configurable fraction of payments.
// The consumer group runs one handler goroutine per claimed partition, so
// the rng is guarded.
type SimulatedPaymentProcessor struct {
	failureRate float64

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewSimulatedPaymentProcessor(failureRate float64, seed int64) *SimulatedPaymentProcessor {
	return &SimulatedPaymentProcessor{
		failureRate: failureRate,
		rnd:         rand.New(rand.NewSource(seed)),
	}
}

func (sp *SimulatedPaymentProcessor) Process(_ context.Context, _ uuid.UUID) (PaymentResult, error) {
	sp.mu.Lock()
	sample := sp.rnd.Float64()
	sp.mu.Unlock()

	if sample < sp.failureRate {
		return PaymentResult{Reason: "Payment gateway declined"}, nil
	}

	return PaymentResult{Confirmed: true, TransactionID: uuid.New()}, nil
}

type SimulatedInventoryReserver struct {
	failureRate float64

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewSimulatedInventoryReserver(failureRate float64, seed int64) *SimulatedInventoryReserver {
	return &SimulatedInventoryReserver{
		failureRate: failureRate,
		rnd:         rand.New(rand.NewSource(seed)),
	}
}

func (si *SimulatedInventoryReserver) Reserve(_ context.Context, _ uuid.UUID) (InventoryResult, error) {
	si.mu.Lock()
	sample := si.rnd.Float64()
	si.mu.Unlock()

	if sample < si.failureRate {
		return InventoryResult{Reason: "Insufficient stock"}, nil
	}

	return InventoryResult{Reserved: true, ReservationID: uuid.New()}, nil
}
