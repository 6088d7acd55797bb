package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart           = errors.New("cart is empty, nothing to checkout")
	ErrCheckoutRejected    = errors.New("checkout rejected by commerce platform")
	ErrCheckoutUnavailable = errors.New("checkout service unavailable")
	ErrCheckoutInProgress  = errors.New("checkout already in progress")
	ErrIdempotencyConflict = errors.New("idempotency key belongs to another cart session")
	ErrIllegalTransition   = errors.New("illegal transition of checkout status")
	ErrInvalidAddress      = errors.New("invalid shipping address")
)

// RejectedError carries the first validation error the platform returned.
// It matches ErrCheckoutRejected with errors.Is.
type RejectedError struct {
	Code    string
	Field   []string
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("checkout rejected: %s", e.Message)
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrCheckoutRejected
}
