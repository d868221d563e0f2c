package errors

import "errors"

var (
	ErrUnknownCategory   = errors.New("unknown category")
	ErrInvalidCategory   = errors.New("filename does not match any category")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrDeliveryFailed    = errors.New("delivery failed")
	ErrInvoiceProvider   = errors.New("invoice provider error")
	ErrIdentityNotFound  = errors.New("identity not found")
	ErrItemNotFound      = errors.New("item not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInternal          = errors.New("internal error")
)
