package domain

import (
	"errors"
	"fmt"
)

// ErrReferenceNotFound is wrapped by every "does not exist" error so callers can match any
// missing reference with a single errors.Is check.
var ErrReferenceNotFound = errors.New("reference not found")

var (
	ErrTableNotFound     = fmt.Errorf("order table: %w", ErrReferenceNotFound)
	ErrOrderNotFound     = fmt.Errorf("order: %w", ErrReferenceNotFound)
	ErrGroupNotFound     = fmt.Errorf("table group: %w", ErrReferenceNotFound)
	ErrMenuGroupNotFound = fmt.Errorf("menu group: %w", ErrReferenceNotFound)
)

var (
	ErrTableEmpty         = errors.New("order table is empty")
	ErrTableGrouped       = errors.New("order table belongs to a table group")
	ErrTableNotAvailable  = errors.New("order table is not available for grouping")
	ErrActiveOrder        = errors.New("order table hosts a cooking or meal order")
	ErrIllegalTransition  = errors.New("illegal order status transition")
	ErrNegativeGuestCount = errors.New("number of guests cannot be negative")
	ErrInvalidStatus      = errors.New("invalid order status")
	ErrNoLineItems        = errors.New("order requires at least one line item")
	ErrInvalidQuantity    = errors.New("line item quantity must be at least 1")
	ErrGroupTooSmall      = errors.New("table group requires at least two order tables")
	ErrInvalidPrice       = errors.New("invalid price")
	ErrInvalidName        = errors.New("name is required")
)
