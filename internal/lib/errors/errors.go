package errors

import "errors"

var (
	ErrOrderNotFound           = errors.New("order not found")
	ErrOrderAlreadyCanceled    = errors.New("order already cancelled")
	ErrOrderAlreadyDelivered   = errors.New("order already delivered")
	ErrOrderTerminal           = errors.New("order is in a terminal status")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)
