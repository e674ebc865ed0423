package hackloud

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/me/hackloud/pkg/model"
)

// Kind classifies a failure for propagation decisions.
type Kind string

const (
	KindAuth       Kind = "auth"       // invalid, expired or missing token
	KindValidation Kind = "validation" // input rejected by client or backend
	KindNotFound   Kind = "not_found"
	KindPreview    Kind = "preview" // preview could not be produced
	KindNetwork    Kind = "network" // transport failure, breaker open
	KindServer     Kind = "server"  // backend 5xx / throttling
)

var (
	// ErrNoToken indicates an operation needing a token was called without one.
	ErrNoToken = errors.New("token not available")

	// ErrTokenExpired indicates the token's own expiry has passed.
	ErrTokenExpired = errors.New("authentication token has expired")
)

// Error wraps a Hackloud API failure with operation context.
type Error struct {
	// Op is the client operation that failed.
	Op string

	// Kind is the taxonomy bucket of the failure.
	Kind Kind

	// Status is the HTTP status, zero for failures before a response.
	Status int

	// Code is the API error code, if the backend sent one.
	Code model.ErrorCode

	// Message is the human-readable error message.
	Message string

	// Fields holds per-field validation messages keyed by field name.
	Fields map[string]string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: [%d] %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error of the given kind.
func NewError(op string, kind Kind, message string) *Error {
	return &Error{Op: op, Kind: kind, Message: message}
}

// NewValidationError creates a client-side validation error carrying
// field-keyed messages.
func NewValidationError(op string, fields map[string]string) *Error {
	return &Error{Op: op, Kind: KindValidation, Message: "invalid input", Fields: fields}
}

// WrapError wraps err with operation context. Errors that already carry a
// Kind keep it; anything else is treated as a network failure.
func WrapError(op string, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return &Error{Op: op, Kind: e.Kind, Status: e.Status, Code: e.Code, Message: e.Message, Fields: e.Fields, Err: err}
	}
	kind := KindNetwork
	if errors.Is(err, ErrNoToken) || errors.Is(err, ErrTokenExpired) {
		kind = KindAuth
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// fromResponse builds an Error from an HTTP status and the optional API
// error in the envelope.
func fromResponse(op string, status int, apiErr *model.APIError) *Error {
	e := &Error{Op: op, Kind: kindForStatus(status), Status: status}
	if apiErr != nil {
		if status < 400 {
			e.Kind = kindForCode(apiErr.Code)
		}
		e.Code = apiErr.Code
		e.Message = apiErr.Message
		e.Fields = apiErr.FieldErrors()
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusTooManyRequests || status >= 500:
		return KindServer
	case status >= 400:
		return KindValidation
	default:
		return KindServer
	}
}

func kindForCode(code model.ErrorCode) Kind {
	switch code {
	case model.ErrUnauthorized, model.ErrForbidden:
		return KindAuth
	case model.ErrNotFound:
		return KindNotFound
	case model.ErrValidation, model.ErrConflict:
		return KindValidation
	default:
		return KindServer
	}
}

// KindOf returns the Kind of err, or "" when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsAuthError returns true if the error is an authentication/authorization error.
func IsAuthError(err error) bool {
	return KindOf(err) == KindAuth || errors.Is(err, ErrNoToken) || errors.Is(err, ErrTokenExpired)
}

// IsValidationError returns true if the input was rejected.
func IsValidationError(err error) bool {
	return KindOf(err) == KindValidation
}

// IsNotFoundError returns true if the error indicates a resource was not found.
func IsNotFoundError(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsPreviewError returns true if a preview could not be produced.
func IsPreviewError(err error) bool {
	return KindOf(err) == KindPreview
}

// IsNetworkError returns true for transport-level failures.
func IsNetworkError(err error) bool {
	return KindOf(err) == KindNetwork
}

// IsRetryable returns true if the error is likely transient and the request
// should be retried.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindNetwork, KindServer:
		return !errors.Is(err, errBreakerOpen)
	}
	return false
}

// FieldErrors returns the field-keyed validation messages carried by err.
func FieldErrors(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}

// Message returns the most user-presentable text for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
