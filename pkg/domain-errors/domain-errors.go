package domainerrors

import "errors"

// Code represents a domain error category independent of transport layer.
// These codes describe what went wrong in business logic terms, not HTTP terms.
type Code string

const (
	CodeNotFound   Code = "not_found"
	CodeBadRequest Code = "bad_request"
	CodeValidation Code = "validation_failed"
	CodeInternal   Code = "internal_error"
	CodeTimeout    Code = "timeout"

	// CodeMalformedRecord marks persisted data that exists but cannot be
	// parsed or validated into a consent record. A fresh decision repairs
	// state, so it is always recoverable.
	CodeMalformedRecord Code = "malformed_record"

	// CodeStorageError marks a write or clear rejected by the persistence
	// medium (quota, disabled, security restriction).
	CodeStorageError Code = "storage_error"

	// CodeDispatchError marks a change-event notification that failed to
	// deliver. It never blocks or rolls back the underlying write.
	CodeDispatchError Code = "dispatch_error"

	// CodeLogicFault marks an unexpected internal invariant violation.
	// Retrying cannot help; callers must degrade immediately.
	CodeLogicFault Code = "logic_fault"
)

// Error wraps domain or infrastructure failures with a stable code.
// It is transport-agnostic and can be used across service, store, and other layers.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap creates a new domain error wrapping an existing error.
// If the wrapped error is already a domain error, the original code is preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Message: msg, Err: err}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// Escalate wraps an existing error under the given code even when the error
// already carries a domain code. Use it where a lower-layer code must not
// survive a boundary, such as escalating a validation failure to a fault.
func Escalate(err error, code Code, msg string) error {
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode checks if an error is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf extracts the domain code from an error chain, defaulting to
// CodeInternal for errors that never passed through this package.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// IsFatal reports whether an error has no known remediation path. Only
// logic faults qualify; storage and parse failures can be repaired by a
// fresh user decision and stay recoverable.
func IsFatal(err error) bool {
	return HasCode(err, CodeLogicFault)
}
