// Package domainerrors provides coded errors for the lifecycle engine.
//
// Services raise these synchronously; any coded error returned from inside a
// transaction boundary rolls the whole transaction back. The transport layer
// maps codes to HTTP statuses via ToHTTPStatus without inspecting messages.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error for callers and the transport layer.
type Code string

const (
	// CodeNotFound: a referenced player/club/contract/transfer does not exist.
	CodeNotFound Code = "not_found"
	// CodeValidation: malformed or missing required fields (bad date ordering,
	// missing salary, unrecognized transfer window).
	CodeValidation Code = "validation"
	// CodeInvariantViolation: a domain invariant would be broken (duplicate
	// active contract, squad cap exceeded, contract duration out of bounds).
	CodeInvariantViolation Code = "invariant_violation"
	// CodeInsufficientFunds: a budget reservation exceeds the available budget.
	CodeInsufficientFunds Code = "insufficient_funds"
	// CodeInvalidState: operation attempted on an entity not in the required
	// state (terminating a non-Active contract, completing a settled transfer).
	CodeInvalidState Code = "invalid_state"
	// CodeConflict: concurrent mutation conflict surfaced by the store.
	CodeConflict Code = "conflict"
	// CodeBadRequest: caller-supplied identifiers or parameters are unusable.
	CodeBadRequest Code = "bad_request"
	// CodeTimeout: the operation's context was cancelled or its deadline passed.
	CodeTimeout Code = "timeout"
	// CodeInternal: unexpected infrastructure failure.
	CodeInternal Code = "internal"
)

// Error is a coded domain error, optionally wrapping a cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a coded error with no cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. A nil err yields nil.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		if err == nil {
			return false
		}
	}
	return false
}

// Is delegates to errors.Is so coded errors compose with sentinel checks.
func Is(err, target error) bool { return errors.Is(err, target) }

// CodeOf returns the outermost code on err, or CodeInternal when uncoded.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a coded error to an HTTP status for the transport shell.
func ToHTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeValidation, CodeBadRequest:
		return http.StatusBadRequest
	case CodeInvariantViolation, CodeInvalidState, CodeConflict:
		return http.StatusConflict
	case CodeInsufficientFunds:
		return http.StatusUnprocessableEntity
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
