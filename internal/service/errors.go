package service

import (
	"errors"

	"github.com/flicky/go-storefront-api/internal/apperr"
)

var (
	ErrMissingOrderFields  = apperr.Validation("Please fill in all required fields")
	ErrNoFieldsToUpdate    = apperr.Validation("No fields to update")
	ErrOrderNotFound       = apperr.NotFound("Order not found")
	ErrOrderDetailNotFound = apperr.NotFound("No details found")
	ErrProductNotFound     = apperr.NotFound("Product not found")
	ErrSizeNotFound        = apperr.NotFound("Size not available for product")
	ErrInsufficientStock   = apperr.New(apperr.KindInsufficientStock, "Not enough stock available")
	ErrOrderComplete       = apperr.Conflict("Order already completed")

	ErrPaymentFieldsMissing = apperr.Validation("Payment amount and method are required.")
	ErrPaymentStatusMissing = apperr.Validation("Payment status is required.")
	ErrPaymentNotFound      = apperr.NotFound("Payment not found.")

	ErrInvalidProcessorEvent = apperr.Validation("Event id and payment id are required.")

	// Payments can only be opened against an existing, open order. Both
	// failures share one message.
	ErrPaymentOrderMissing = apperr.NotFound("Order not found or already completed.")
	ErrPaymentOrderClosed  = apperr.Conflict("Order not found or already completed.")
	ErrPaymentNotPending   = apperr.Conflict("Payment is not pending.")
	ErrCheckoutUnavailable = apperr.New(apperr.KindUnavailable, "Payment processor is not configured.")
	ErrCheckoutFailed      = apperr.New(apperr.KindUpstream, "Error creating checkout session.")

	ErrInvalidProduct   = apperr.Validation("Invalid product data")
	ErrProductInUse     = apperr.Conflict("Product is referenced by orders")
	ErrInvalidCategory  = apperr.Validation("Category name is required")
	ErrCategoryNotFound = apperr.NotFound("Category not found")
	ErrCategoryExists   = apperr.Conflict("Category already exists")

	ErrUserAlreadyExists  = apperr.Conflict("Email already in use")
	ErrInvalidCredentials = apperr.New(apperr.KindUnauthorized, "Invalid email or password")
)

// internal passes classified errors through and hides everything else
// behind message.
func internal(err error, message string) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Internal(message, err)
}
