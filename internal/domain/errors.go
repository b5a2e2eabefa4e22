package domain

import "errors"

var (
	// Client input errors.
	ErrProductIDsRequired  = errors.New("product ids are required")
	ErrNoProductsFound     = errors.New("no products found")
	ErrOrderKeyRequired    = errors.New("order id is required")
	ErrInvalidOrderKey     = errors.New("invalid order key")
	ErrProductNameRequired = errors.New("product name is required")
	ErrProductPriceInvalid = errors.New("product price must be non-negative")

	ErrOrderNotFound   = errors.New("order not found")
	ErrProductNotFound = errors.New("product not found")

	// ErrProductExists is returned by the store when a product with the
	// requested id is already in the catalog.
	ErrProductExists = errors.New("product already exists")

	// Dependency errors.
	ErrPersistence       = errors.New("persistence failure")
	ErrBrokerUnavailable = errors.New("broker unavailable")

	// ErrDuplicateIdempotencyKey is returned by the store when another order
	// already claimed the idempotency key.
	ErrDuplicateIdempotencyKey = errors.New("idempotency key already used")
)

// IsClientError reports whether err stems from caller input rather than a
// failing dependency.
func IsClientError(err error) bool {
	return errors.Is(err, ErrProductIDsRequired) ||
		errors.Is(err, ErrNoProductsFound) ||
		errors.Is(err, ErrOrderKeyRequired) ||
		errors.Is(err, ErrProductNameRequired) ||
		errors.Is(err, ErrProductPriceInvalid)
}
