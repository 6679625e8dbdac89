package create

import (
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/quickbite/order_fulfillment/internal/domain/models"
)

var requestValidator = validator.New()

type CreateOrderRequest struct {
	CustomerID string `json:"customerId" validate:"required,uuid"`
	Items      []Item `json:"items" validate:"required,min=1,dive"`
}

type Item struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Name      string `json:"name" validate:"required"`
	Price     int64  `json:"price" validate:"gt=0"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

func (req *CreateOrderRequest) validate() error {
	return requestValidator.Struct(req)
}

func (req *CreateOrderRequest) toDTO() models.Order {
	items := make([]models.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, models.OrderItem{
			ProductID: uuid.MustParse(item.ProductID),
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}

	return models.Order{
		CustomerID: uuid.MustParse(req.CustomerID),
		Status:     models.OrderStatusPending,
		Items:      items,
	}
}
