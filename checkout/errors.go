package checkout

import "fmt"

type Code string

const (
	CodeNotAuthenticated    Code = "NOT_AUTHENTICATED"
	CodeEmptyCart           Code = "EMPTY_CART"
	CodeInvalidAddress      Code = "INVALID_ADDRESS"
	CodeOutOfStock          Code = "OUT_OF_STOCK"
	CodeOrderCreationFailed Code = "ORDER_CREATION_FAILED"
	CodeNotFound            Code = "NOT_FOUND"
	CodeInvalidState        Code = "INVALID_STATE"
)

// Error is the machine-checkable failure returned by the checkout service.
// Items carries the offending line descriptions for OUT_OF_STOCK.
type Error struct {
	Code    Code     `json:"code"`
	Message string   `json:"message"`
	Items   []string `json:"items,omitempty"`
}

func (e *Error) Error() string {
	if len(e.Items) > 0 {
		return fmt.Sprintf("%s: %s %v", e.Code, e.Message, e.Items)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// AsError unwraps err into a checkout *Error, or wraps anything unexpected
// into a generic ORDER_CREATION_FAILED so internals never leak to callers.
func AsError(err error) *Error {
	if cerr, ok := err.(*Error); ok {
		return cerr
	}
	return newError(CodeOrderCreationFailed, "failed to create order, please try again")
}
