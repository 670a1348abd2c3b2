// Package bridgeerr provides the bridge server's typed error taxonomy,
// mapping internal failures onto the wire error codes a client receives in
// an error frame.
package bridgeerr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is one of the wire error codes a client can receive in an error frame.
type Code string

const (
	// CodeNotFound means the referenced registry name, entity id, or
	// project id is absent from server state.
	CodeNotFound Code = "NOT_FOUND"
	// CodeAlreadyExists means a unique constraint on name, code, or key
	// was violated.
	CodeAlreadyExists Code = "ALREADY_EXISTS"
	// CodeOrphanBlocked means a delete was attempted with live references
	// and no migration target.
	CodeOrphanBlocked Code = "ORPHAN_BLOCKED"
	// CodeProtected means a destructive operation was attempted on a
	// protected registry entry.
	CodeProtected Code = "PROTECTED"
	// CodeInvalid means the request's shape is wrong or a required field
	// is missing.
	CodeInvalid Code = "INVALID"
	// CodeUnauthorized is reserved; not used by the core handlers.
	CodeUnauthorized Code = "UNAUTHORIZED"
	// CodeUnknownType means the router has no handler for the message type.
	CodeUnknownType Code = "UNKNOWN_TYPE"
	// CodeInternal covers any uncaught failure. The server logs the stack
	// trace but reveals only the error message to the client.
	CodeInternal Code = "INTERNAL"
)

func (c Code) httpStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyExists, CodeOrphanBlocked, CodeProtected:
		return http.StatusConflict
	case CodeInvalid, CodeUnknownType:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// BridgeError is a structured error carrying a wire code, a client-facing
// message, optional details, and the underlying cause.
type BridgeError struct {
	Code       Code
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	Err        error
}

// Error implements the error interface.
func (e *BridgeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *BridgeError) Unwrap() error {
	return e.Err
}

// WithDetails attaches a key/value pair to the error's details map.
func (e *BridgeError) WithDetails(key string, value interface{}) *BridgeError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a BridgeError with no underlying cause.
func New(code Code, message string) *BridgeError {
	return &BridgeError{Code: code, Message: message, HTTPStatus: code.httpStatus()}
}

// Wrap creates a BridgeError wrapping an underlying cause.
func Wrap(code Code, message string, err error) *BridgeError {
	return &BridgeError{Code: code, Message: message, HTTPStatus: code.httpStatus(), Err: err}
}

// NotFound builds a NOT_FOUND error for the given resource kind and identifier.
func NotFound(resource, id string) *BridgeError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource)).
		WithDetails("resource", resource).
		WithDetails("id", id)
}

// AlreadyExists builds an ALREADY_EXISTS error for the given resource kind
// and the identifier that collided.
func AlreadyExists(resource, id string) *BridgeError {
	return New(CodeAlreadyExists, fmt.Sprintf("%s already exists", resource)).
		WithDetails("resource", resource).
		WithDetails("id", id)
}

// OrphanBlocked builds an ORPHAN_BLOCKED error for a delete attempted
// against a registry entry with live references and no migration target.
func OrphanBlocked(resource, name string, refCount int) *BridgeError {
	return New(CodeOrphanBlocked, fmt.Sprintf("%s %q has %d live reference(s)", resource, name, refCount)).
		WithDetails("resource", resource).
		WithDetails("name", name).
		WithDetails("ref_count", refCount)
}

// Protected builds a PROTECTED error for a destructive operation attempted
// on a protected registry entry.
func Protected(resource, name string) *BridgeError {
	return New(CodeProtected, fmt.Sprintf("%s %q is protected", resource, name)).
		WithDetails("resource", resource).
		WithDetails("name", name)
}

// Invalid builds an INVALID error describing the malformed field and reason.
func Invalid(field, reason string) *BridgeError {
	return New(CodeInvalid, reason).WithDetails("field", field)
}

// Unauthorized builds a reserved UNAUTHORIZED error.
func Unauthorized(message string) *BridgeError {
	return New(CodeUnauthorized, message)
}

// UnknownType builds an UNKNOWN_TYPE error for a message type the router
// has no handler for.
func UnknownType(msgType string) *BridgeError {
	return New(CodeUnknownType, fmt.Sprintf("no handler for message type %q", msgType)).
		WithDetails("type", msgType)
}

// Internal wraps an uncaught failure as an INTERNAL error.
func Internal(message string, err error) *BridgeError {
	return Wrap(CodeInternal, message, err)
}

// AsBridgeError extracts a *BridgeError from an error chain.
func AsBridgeError(err error) (*BridgeError, bool) {
	var be *BridgeError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

// CodeOf returns the wire code for an error, defaulting to INTERNAL for
// anything that isn't a *BridgeError.
func CodeOf(err error) Code {
	if be, ok := AsBridgeError(err); ok {
		return be.Code
	}
	return CodeInternal
}

// HTTPStatus returns the HTTP status code associated with an error, for the
// auxiliary HTTP surface's error responses.
func HTTPStatus(err error) int {
	if be, ok := AsBridgeError(err); ok {
		return be.HTTPStatus
	}
	return http.StatusInternalServerError
}
