package status

import (
	"github.com/go-playground/validator/v10"
	"github.com/quickbite/order_fulfillment/internal/domain/models"
)

var requestValidator = validator.New()

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (req *UpdateStatusRequest) validate() error {
	return requestValidator.Struct(req)
}

func (req *UpdateStatusRequest) toStatus() models.OrderStatus {
	return models.OrderStatus(req.Status)
}
