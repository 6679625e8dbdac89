package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderRead is the denormalized, query-optimized copy of an order. It is
// eventually consistent and rebuildable by replaying the event log.
type OrderRead struct {
	ID          uuid.UUID   `json:"orderId" db:"id"`
	CustomerID  uuid.UUID   `json:"customerId" db:"customer_id"`
	Status      OrderStatus `json:"status" db:"status"`
	TotalAmount int64       `json:"totalAmount" db:"total_amount"`
	ItemCount   int         `json:"itemCount" db:"item_count"`
	CreatedAt   time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time   `json:"updatedAt" db:"updated_at"`
}

// OrderDetails is what the query surface returns for a single order: the
// read row, its items and the event timeline.
type OrderDetails struct {
	Order    OrderRead       `json:"order"`
	Items    []OrderItemRead `json:"items"`
	Timeline []Event         `json:"timeline"`
}

type OrderItemRead struct {
	OrderID   uuid.UUID `json:"orderId" db:"order_id"`
	ProductID uuid.UUID `json:"productId" db:"product_id"`
	Name      string    `json:"name" db:"name"`
	Price     int64     `json:"price" db:"price"`
	Quantity  int       `json:"quantity" db:"quantity"`
	Subtotal  int64     `json:"subtotal" db:"subtotal"`
}
