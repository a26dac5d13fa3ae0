package checkout

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCart rejects order creation with no line items.
	ErrEmptyCart = errors.New("checkout: order has no line items")
	// ErrTotalMismatch rejects a declared total above the recomputed
	// line-item subtotal.
	ErrTotalMismatch = errors.New("checkout: declared total exceeds line-item subtotal")
)

// ProductNotFoundError means a requested product exists in neither pool.
// The whole request fails; no partial orders.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("checkout: product not found: %s", e.ProductID)
}

// InsufficientStockError names the product that could not cover the
// requested quantity, whether discovered at validation or at write time.
type InsufficientStockError struct {
	ProductName string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("checkout: insufficient stock for %q", e.ProductName)
}

// EligibilityError carries the safe-selling violation reason, which names
// the allowed postal codes and the submitted one.
type EligibilityError struct {
	Reason string
}

func (e *EligibilityError) Error() string {
	return "checkout: " + e.Reason
}
