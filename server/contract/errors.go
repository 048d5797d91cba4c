package contract

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by components behind the dispatcher boundary.
var (
	ErrNotFound    = errors.New("not found")
	ErrLockTimeout = errors.New("stock lock acquisition timed out")
)

// ErrorKind is the closed error vocabulary crossing the tool-call boundary.
// Nothing else (driver messages, table names, DSNs) may cross it.
type ErrorKind string

const (
	KindUnknownTool       ErrorKind = "unknown_tool"
	KindInvalidArguments  ErrorKind = "invalid_arguments"
	KindInvalidOrder      ErrorKind = "invalid_order"
	KindNotFound          ErrorKind = "not_found"
	KindInsufficientStock ErrorKind = "insufficient_stock"
	KindTransactionFailed ErrorKind = "transaction_failed"
	KindInternal          ErrorKind = "internal_error"
)

// Error is a boundary error: a kind from the closed vocabulary plus a
// caller-safe message. ProductID is set for stock-related rejections.
type Error struct {
	Kind      ErrorKind `json:"kind"`
	Message   string    `json:"message"`
	ProductID string    `json:"product_id,omitempty"`
}

func (e *Error) Error() string {
	if e.ProductID != "" {
		return fmt.Sprintf("%s: %s (product_id=%s)", e.Kind, e.Message, e.ProductID)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Retryable reports whether the caller may retry the identical request.
// Validation and stock rejections are terminal until the request changes.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTransactionFailed, KindInternal:
		return true
	default:
		return false
	}
}

// NewError builds a boundary error with a formatted message.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewStockError builds a stock rejection pinned to one product.
func NewStockError(kind ErrorKind, productID, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), ProductID: productID}
}

// AsBoundaryError extracts a boundary error from an error chain.
func AsBoundaryError(err error) (*Error, bool) {
	var be *Error
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
