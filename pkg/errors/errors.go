// Package errors defines the error taxonomy the engine returns to its
// callers (spec.md §7). All errors are plain values; the core never
// recovers from or swallows an error internally.
package errors

import "fmt"

// Code identifies which member of the spec.md §7 taxonomy an error is.
type Code string

const (
	// InvalidOrder covers structural violations: missing price on a
	// Limit order, price present on a Market order, non-positive
	// quantity, or a duplicate live order_id.
	InvalidOrder Code = "INVALID_ORDER"
	// UnknownInstrument is returned when the target instrument is not
	// registered.
	UnknownInstrument Code = "UNKNOWN_INSTRUMENT"
	// UnknownOrder is returned when a cancel/modify target is not in
	// the order→instrument index.
	UnknownOrder Code = "UNKNOWN_ORDER"
	// MarketNotOpen is returned when market state is Halted or Closed
	// and the call would mutate orders.
	MarketNotOpen Code = "MARKET_NOT_OPEN"
	// AlreadyExists is an instrument-registry admin error.
	AlreadyExists Code = "ALREADY_EXISTS"
	// NotFound is an instrument-registry admin error.
	NotFound Code = "NOT_FOUND"
	// NotEmpty is returned by remove_instrument when resting orders
	// are still present on the instrument's book.
	NotEmpty Code = "NOT_EMPTY"
)

// EngineError is a structured error carrying a taxonomy Code and a
// human-readable message.
type EngineError struct {
	Code    Code
	Message string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// New builds an EngineError with the given code and message.
func New(code Code, message string) *EngineError {
	return &EngineError{Code: code, Message: message}
}

// Newf builds an EngineError with a formatted message.
func Newf(code Code, format string, args ...interface{}) *EngineError {
	return New(code, fmt.Sprintf(format, args...))
}

// Is reports whether err is an *EngineError carrying the given code.
func Is(err error, code Code) bool {
	ee, ok := err.(*EngineError)
	return ok && ee.Code == code
}

// CodeOf extracts the Code from err, or "" if err is not an *EngineError.
func CodeOf(err error) Code {
	if ee, ok := err.(*EngineError); ok {
		return ee.Code
	}
	return ""
}
