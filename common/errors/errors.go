package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Kind classifies an application error independently of its transport status.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindConflict           Kind = "conflict"
	KindAuth               Kind = "auth"
	KindPrecondition       Kind = "precondition"
	KindFormat             Kind = "format"
	KindCredentialMismatch Kind = "credential_mismatch"
	KindInsufficientFunds  Kind = "insufficient_funds"
	KindBackendUnavailable Kind = "backend_unavailable"
	KindNotFound           Kind = "not_found"
	KindInternal           Kind = "internal"
)

// Error represents an application error
type Error struct {
	Code    int    `json:"code"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// JSON returns the error as a JSON string
func (e *Error) JSON() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// New creates a new Error with a kind derived from the status code.
func New(code int, message string, err error) *Error {
	return &Error{
		Code:    code,
		Kind:    kindForStatus(code),
		Message: message,
		Err:     err,
	}
}

func newKind(kind Kind, message string, err error) *Error {
	return &Error{
		Code:    StatusFor(kind),
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

func Validation(message string) *Error   { return newKind(KindValidation, message, nil) }
func Conflict(message string) *Error     { return newKind(KindConflict, message, nil) }
func Auth(message string) *Error         { return newKind(KindAuth, message, nil) }
func Precondition(message string) *Error { return newKind(KindPrecondition, message, nil) }
func Format(message string) *Error       { return newKind(KindFormat, message, nil) }
func NotFound(message string) *Error     { return newKind(KindNotFound, message, nil) }

func CredentialMismatch(message string) *Error {
	return newKind(KindCredentialMismatch, message, nil)
}

// InsufficientFunds is an outcome rather than a fault; callers redirect to top-up.
func InsufficientFunds(message string) *Error {
	return newKind(KindInsufficientFunds, message, nil)
}

func BackendUnavailable(message string, err error) *Error {
	return newKind(KindBackendUnavailable, message, err)
}

func Internal(message string, err error) *Error {
	return newKind(KindInternal, message, err)
}

// StatusFor maps a kind to the HTTP status it is reported with.
func StatusFor(kind Kind) int {
	switch kind {
	case KindValidation, KindFormat:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindAuth:
		return http.StatusUnauthorized
	case KindPrecondition:
		return http.StatusPreconditionFailed
	case KindCredentialMismatch:
		return http.StatusUnprocessableEntity
	case KindInsufficientFunds:
		return http.StatusPaymentRequired
	case KindBackendUnavailable:
		return http.StatusServiceUnavailable
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func kindForStatus(code int) Kind {
	switch code {
	case http.StatusBadRequest:
		return KindValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuth
	case http.StatusConflict:
		return KindConflict
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusPreconditionFailed:
		return KindPrecondition
	case http.StatusPaymentRequired:
		return KindInsufficientFunds
	case http.StatusServiceUnavailable:
		return KindBackendUnavailable
	default:
		return KindInternal
	}
}

// As extracts an *Error from an error chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf reports the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

var (
	ErrBadRequest         = New(http.StatusBadRequest, "Bad request", nil)
	ErrUnauthorized       = New(http.StatusUnauthorized, "Unauthorized", nil)
	ErrNotFound           = New(http.StatusNotFound, "Not found", nil)
	ErrInternalServer     = New(http.StatusInternalServerError, "Internal server error", nil)
	ErrServiceUnavailable = New(http.StatusServiceUnavailable, "Service unavailable", nil)
)

// Error middleware for Gin
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		appErr, ok := As(err)
		if !ok {
			appErr = Internal(ErrInternalServer.Message, err)
		}

		c.AbortWithStatusJSON(appErr.Code, appErr)
	}
}
