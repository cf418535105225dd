package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

const (
	CodeValidation            = "VALIDATION_FAILED"
	CodeNotFound              = "NOT_FOUND"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeConflict              = "CONFLICT"
	CodeInternal              = "INTERNAL_ERROR"
	CodeNoCredential          = "NO_CREDENTIAL"
	CodeExchangeFailed        = "EXCHANGE_FAILED"
	CodeAuthorizationRejected = "AUTHORIZATION_REJECTED"
	CodeNoCandidates          = "NO_CANDIDATES"
	CodeComparisonFailed      = "COMPARISON_FAILED"
	CodeCaptureInProgress     = "CAPTURE_IN_PROGRESS"
	CodeUpstream              = "UPSTREAM_ERROR"
	CodeTimeout               = "TIMEOUT"
)

// Sentinels shared across packages. Wrap them with %w and test with errors.Is.
var (
	ErrNoCredential          = NewDomainError(CodeNoCredential, "authentication required", http.StatusUnauthorized, nil)
	ErrExchangeFailed        = NewDomainError(CodeExchangeFailed, "face login exchange failed", http.StatusBadGateway, nil)
	ErrAuthorizationRejected = NewDomainError(CodeAuthorizationRejected, "credential rejected by server", http.StatusUnauthorized, nil)
	ErrNoCandidates          = NewDomainError(CodeNoCandidates, "no registered faces to compare against", http.StatusUnprocessableEntity, nil)
	ErrComparisonFailed      = NewDomainError(CodeComparisonFailed, "face comparison failed", http.StatusBadGateway, nil)
	ErrCaptureInProgress     = NewDomainError(CodeCaptureInProgress, "a capture is already being processed", http.StatusConflict, nil)
)

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

// NewUpstreamError describes a non-2xx answer from a remote collaborator.
// A 401 keeps the UNAUTHORIZED code so callers can classify it without
// inspecting the message.
func NewUpstreamError(status int, message string) error {
	code := CodeUpstream
	if status == http.StatusUnauthorized {
		code = CodeUnauthorized
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return &DomainError{
		Code:       code,
		Message:    fmt.Sprintf("HTTP %d: %s", status, message),
		HTTPStatus: status,
	}
}

// NewTimeout reports a request that ran out of time.
func NewTimeout(err error) error {
	return &DomainError{
		Code:       CodeTimeout,
		Message:    "request timed out",
		HTTPStatus: http.StatusGatewayTimeout,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
