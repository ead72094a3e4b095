package model

import (
	"errors"
	"fmt"
)

// Sentinel errors of the fulfillment core. Match with errors.Is; the typed
// *Error below wraps one of these together with the affected order.
var (
	ErrOrderNotFound           = errors.New("order not found")
	ErrProductNotFound         = errors.New("product not found")
	ErrVariantNotFound         = errors.New("variant not found")
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrManualOrExternalProduct = errors.New("product requires manual or external fulfillment")
	ErrTokenUnparseable        = errors.New("reference token unparseable")
	ErrIndexOutOfRange         = errors.New("line item index out of range")
	ErrTransactionConflict     = errors.New("transaction conflict")
	ErrExternalServiceFailure  = errors.New("external service failure")
)

// ErrorCode categorizes core errors for CLI and log output.
type ErrorCode string

const (
	CodeOrderNotFound       ErrorCode = "ORDER_NOT_FOUND"
	CodeProductNotFound     ErrorCode = "PRODUCT_NOT_FOUND"
	CodeVariantNotFound     ErrorCode = "VARIANT_NOT_FOUND"
	CodeTokenUnparseable    ErrorCode = "TOKEN_UNPARSEABLE"
	CodeIndexOutOfRange     ErrorCode = "INDEX_OUT_OF_RANGE"
	CodeTransactionConflict ErrorCode = "TRANSACTION_CONFLICT"
	CodeExternalService     ErrorCode = "EXTERNAL_SERVICE_FAILURE"
)

var codeSentinels = map[ErrorCode]error{
	CodeOrderNotFound:       ErrOrderNotFound,
	CodeProductNotFound:     ErrProductNotFound,
	CodeVariantNotFound:     ErrVariantNotFound,
	CodeTokenUnparseable:    ErrTokenUnparseable,
	CodeIndexOutOfRange:     ErrIndexOutOfRange,
	CodeTransactionConflict: ErrTransactionConflict,
	CodeExternalService:     ErrExternalServiceFailure,
}

// Error is a structural failure that aborts a whole operation.
type Error struct {
	Code    ErrorCode
	Message string

	// OrderID identifies the affected order, when known.
	OrderID string

	// Index is the affected line item, or -1.
	Index int

	// Err is an optional underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	switch {
	case e.OrderID != "" && e.Index >= 0:
		msg = fmt.Sprintf("%s (order=%s, index=%d)", msg, e.OrderID, e.Index)
	case e.OrderID != "":
		msg = fmt.Sprintf("%s (order=%s)", msg, e.OrderID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes the cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel associated with the error code.
func (e *Error) Is(target error) bool {
	s, ok := codeSentinels[e.Code]
	return ok && s == target
}

// NewOrderNotFound reports a missing order document.
func NewOrderNotFound(orderID string) *Error {
	return &Error{Code: CodeOrderNotFound, Message: "order does not exist", OrderID: orderID, Index: -1}
}

// NewProductNotFound reports a missing product document.
func NewProductNotFound(productID string) *Error {
	return &Error{Code: CodeProductNotFound, Message: fmt.Sprintf("product %q does not exist", productID), Index: -1}
}

// NewIndexOutOfRange reports a line item index outside the order.
func NewIndexOutOfRange(orderID string, index, count int) *Error {
	return &Error{
		Code:    CodeIndexOutOfRange,
		Message: fmt.Sprintf("order has %d line items", count),
		OrderID: orderID,
		Index:   index,
	}
}

// NewTokenUnparseable reports a reply that carries no usable reference.
func NewTokenUnparseable(reason string) *Error {
	return &Error{Code: CodeTokenUnparseable, Message: reason, Index: -1}
}

// NewExternalServiceFailure wraps a failed call to the reseller API.
func NewExternalServiceFailure(orderID string, index int, err error) *Error {
	return &Error{
		Code:    CodeExternalService,
		Message: "reseller delivery failed",
		OrderID: orderID,
		Index:   index,
		Err:     err,
	}
}

// CodeOf extracts the ErrorCode of err, or "" when err is not a core error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	for code, sentinel := range codeSentinels {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return ""
}
