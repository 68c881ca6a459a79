package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors reported synchronously by the core, without a network call.
var (
	ErrKeyNotFound             = errors.New("key not found")
	ErrStorageUnavailable      = errors.New("durable storage unavailable")
	ErrInvalidQuantity         = errors.New("quantity must be at least 1")
	ErrQuantityLimitExceeded   = errors.New("quantity exceeds maximum limit")
	ErrDiscountRequiresAuth    = errors.New("discount codes require an authenticated session")
	ErrFreeShippingUnavailable = errors.New("free shipping requires a higher subtotal")
	ErrUnknownShippingTier     = errors.New("unknown shipping tier")
	ErrMutationInFlight        = errors.New("identical mutation already in flight")
	ErrLineNotFound            = errors.New("line item not found in cart")
)

// GatewayError is a structured failure from the remote cart endpoints.
// Message carries the server's human-readable explanation.
type GatewayError struct {
	StatusCode int
	Message    string
}

func (e *GatewayError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("remote cart error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("remote cart error (status %d)", e.StatusCode)
}

// IsTransport reports whether err is a transport-level failure talking to
// the remote cart (as opposed to a structured rejection).
func IsTransport(err error) bool {
	var ge *GatewayError
	return err != nil && !errors.As(err, &ge)
}
