package models

import "github.com/google/uuid"

type OrderStatus string

const (
	OrderStatusPending           OrderStatus = "PENDING"
	OrderStatusPaymentProcessing OrderStatus = "PAYMENT_PROCESSING"
	OrderStatusPaymentConfirmed  OrderStatus = "PAYMENT_CONFIRMED"
	OrderStatusPreparing         OrderStatus = "PREPARING"
	OrderStatusReady             OrderStatus = "READY"
	OrderStatusDelivered         OrderStatus = "DELIVERED"
	OrderStatusCancelled         OrderStatus = "CANCELLED"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaymentProcessing, OrderStatusPaymentConfirmed,
		OrderStatusPreparing, OrderStatusReady, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is valid from s.
func IsTerminal(s OrderStatus) bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// validNextStatuses is the single ordered happy path; CANCELLED is
// reachable from any non-terminal state.
var validNextStatuses = map[OrderStatus][]OrderStatus{
	OrderStatusPending:           {OrderStatusPaymentProcessing, OrderStatusCancelled},
	OrderStatusPaymentProcessing: {OrderStatusPaymentConfirmed, OrderStatusCancelled},
	OrderStatusPaymentConfirmed:  {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing:         {OrderStatusReady, OrderStatusCancelled},
	OrderStatusReady:             {OrderStatusDelivered, OrderStatusCancelled},
}

func CanTransition(from, to OrderStatus) bool {
	for _, next := range validNextStatuses[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Order struct {
	ID          uuid.UUID   `json:"orderId"`
	CustomerID  uuid.UUID   `json:"customerId"`
	Status      OrderStatus `json:"status"`
	TotalAmount int64       `json:"totalAmount"`
	Version     int         `json:"version"`
	Items       []OrderItem `json:"items"`
}

type OrderItem struct {
	OrderID   uuid.UUID `json:"orderId"`
	ProductID uuid.UUID `json:"productId"`
	Name      string    `json:"name"`
	Price     int64     `json:"price"`
	Quantity  int       `json:"quantity"`
}
