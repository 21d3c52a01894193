package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error types reported in the "type" field of error responses
const (
	TypeValidation  = "validation"
	TypeAuth        = "auth"
	TypeNotFound    = "not_found"
	TypeRemote      = "remote"
	TypePersistence = "persistence"
)

type CustomError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Type    string          `json:"type"`
	Detail  json.RawMessage `json:"detail,omitempty"`
	Err     error           `json:"-"`
}

func (e *CustomError) Error() string {
	return fmt.Sprintf("%d: %s [type: %s]", e.Code, e.Message, e.Type)
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewValidationError reports missing or malformed caller input. The message is echoed to the caller.
func NewValidationError(format string, args ...interface{}) *CustomError {
	return &CustomError{
		Code:    http.StatusBadRequest,
		Message: fmt.Sprintf(format, args...),
		Type:    TypeValidation,
	}
}

// NewAuthError reports a missing, invalid or expired credential.
// The message must stay generic, callers never learn why authentication failed.
func NewAuthError(message string) *CustomError {
	return &CustomError{
		Code:    http.StatusUnauthorized,
		Message: message,
		Type:    TypeAuth,
	}
}

func NewNotFoundError(format string, args ...interface{}) *CustomError {
	return &CustomError{
		Code:    http.StatusNotFound,
		Message: fmt.Sprintf(format, args...),
		Type:    TypeNotFound,
	}
}

// NewRemoteError wraps an upstream API failure. The upstream body is kept verbatim in Detail.
func NewRemoteError(status int, body []byte) *CustomError {
	detail := json.RawMessage(body)
	if !json.Valid(body) {
		detail, _ = json.Marshal(string(body))
	}
	return &CustomError{
		Code:    http.StatusInternalServerError,
		Message: fmt.Sprintf("Remote API request failed with status %d", status),
		Type:    TypeRemote,
		Detail:  detail,
	}
}

// NewRemoteTransportError wraps a failure to reach the upstream API at all.
func NewRemoteTransportError(err error) *CustomError {
	detail, _ := json.Marshal(err.Error())
	return &CustomError{
		Code:    http.StatusInternalServerError,
		Message: "Remote API request failed",
		Type:    TypeRemote,
		Detail:  detail,
		Err:     err,
	}
}

// NewPersistenceError hides datastore failures behind a generic message.
func NewPersistenceError(err error) *CustomError {
	return &CustomError{
		Code:    http.StatusInternalServerError,
		Message: "Internal storage failure",
		Type:    TypePersistence,
		Err:     err,
	}
}

// IsType reports whether err is a CustomError of the given type
func IsType(err error, errorType string) bool {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Type == errorType
	}
	return false
}
