// Package errors defines the error kinds reported by the token broker.
//
// Completion handlers receive a *TokenError whose Kind is one of the sentinel
// values below, so callers can branch with errors.Is instead of matching text.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrLoginRequired   = errors.New("user login is required")
	ErrUserUnavailable = errors.New("user information is not available")
	ErrProtocol        = errors.New("authorization server returned an error")
	ErrStateMismatch   = errors.New("invalid state")
	ErrNonceMismatch   = errors.New("nonce mismatch")
	ErrTimeout         = errors.New("token renewal operation failed due to timeout")
	ErrDecodeFailure   = errors.New("token could not be decoded")
	ErrConfigInvalid   = errors.New("invalid configuration")
	ErrStore           = errors.New("token store failure")
)

// Error codes
const (
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeLoginRequired   = "LOGIN_REQUIRED"
	CodeUserUnavailable = "USER_UNAVAILABLE"
	CodeProtocol        = "PROTOCOL_ERROR"
	CodeStateMismatch   = "INVALID_STATE"
	CodeNonceMismatch   = "NONCE_MISMATCH"
	CodeTimeout         = "TIMEOUT"
	CodeDecodeFailure   = "DECODE_FAILURE"
	CodeConfigInvalid   = "CONFIG_ERROR"
	CodeStore           = "STORE_ERROR"
	CodeInternal        = "INTERNAL_ERROR"
)

var kindCodes = map[error]string{
	ErrInvalidArgument: CodeInvalidArgument,
	ErrLoginRequired:   CodeLoginRequired,
	ErrUserUnavailable: CodeUserUnavailable,
	ErrProtocol:        CodeProtocol,
	ErrStateMismatch:   CodeStateMismatch,
	ErrNonceMismatch:   CodeNonceMismatch,
	ErrTimeout:         CodeTimeout,
	ErrDecodeFailure:   CodeDecodeFailure,
	ErrConfigInvalid:   CodeConfigInvalid,
	ErrStore:           CodeStore,
}

// TokenError is the failure variant of a token or user result.
type TokenError struct {
	// Kind is one of the sentinel errors of this package.
	Kind error `json:"-"`

	// Code is the stable machine-readable code for Kind.
	Code string `json:"code"`

	// Message is the human-readable detail, usually the
	// authorization server's error_description.
	Message string `json:"message"`

	// Cause is the underlying error, if any.
	Cause error `json:"-"`
}

// Error implements the error interface.
func (e *TokenError) Error() string {
	msg := e.Message
	if msg == "" && e.Kind != nil {
		msg = e.Kind.Error()
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *TokenError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// New creates a TokenError of the given kind.
func New(kind error, message string) *TokenError {
	return &TokenError{Kind: kind, Code: codeFor(kind), Message: message}
}

// Newf creates a TokenError with a formatted message.
func Newf(kind error, format string, args ...any) *TokenError {
	return New(kind, fmt.Sprintf(format, args...))
}

// WithCause attaches the underlying error.
func (e *TokenError) WithCause(cause error) *TokenError {
	e.Cause = cause
	return e
}

func codeFor(kind error) string {
	if code, ok := kindCodes[kind]; ok {
		return code
	}
	return CodeInternal
}

// KindOf returns the sentinel kind carried by err, or nil.
func KindOf(err error) error {
	var te *TokenError
	if errors.As(err, &te) {
		return te.Kind
	}
	for kind := range kindCodes {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// CodeOf returns the error code for err, or CodeInternal for foreign errors
func CodeOf(err error) string {
	var te *TokenError
	if errors.As(err, &te) && te.Code != "" {
		return te.Code
	}
	return codeFor(KindOf(err))
}

// HTTPStatus maps an error kind to the status the host API answers with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case nil:
		if err == nil {
			return http.StatusOK
		}
		return http.StatusInternalServerError
	case ErrInvalidArgument:
		return http.StatusBadRequest
	case ErrLoginRequired, ErrUserUnavailable:
		return http.StatusUnauthorized
	case ErrStateMismatch, ErrNonceMismatch:
		return http.StatusForbidden
	case ErrTimeout:
		return http.StatusGatewayTimeout
	case ErrProtocol, ErrDecodeFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Is reports whether err matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}
