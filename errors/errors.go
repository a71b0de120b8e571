// Package errors provides the structured error type used across prefkit.
// Errors carry a machine-readable code, an HTTP status for the API surface
// and a retryable flag consulted by resilience.Retry.
package errors

import (
	"fmt"
	"net/http"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// InvalidURI reports a string that cannot be turned into a file URI.
func InvalidURI(raw, reason string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidURI, Message: fmt.Sprintf("Invalid URI %q: %s", raw, reason),
		HTTPStatus: http.StatusBadRequest, Details: map[string]any{"uri": raw},
	}
}

// InvalidConfig reports settings that failed validation.
func InvalidConfig(reason string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidConfig, Message: reason,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// ParseFailed reports a configuration file whose content is not valid JSON(C).
// It is retryable since editors often write files in several steps.
func ParseFailed(path string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeParseFailed, Message: fmt.Sprintf("Unable to parse %s", path),
		HTTPStatus: http.StatusUnprocessableEntity, Retryable: true,
		Details: map[string]any{"path": path}, Cause: cause,
	}
}

// ReadFailed reports an IO error while loading a configuration file.
func ReadFailed(path string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeReadFailed, Message: fmt.Sprintf("Unable to read %s", path),
		HTTPStatus: http.StatusInternalServerError, Retryable: true,
		Details: map[string]any{"path": path}, Cause: cause,
	}
}

// WriteFailed reports an IO error while persisting a preference.
func WriteFailed(path string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeWriteFailed, Message: fmt.Sprintf("Unable to write %s", path),
		HTTPStatus: http.StatusInternalServerError,
		Details: map[string]any{"path": path}, Cause: cause,
	}
}

// ProviderCreateFailed reports a factory that could not build a provider for a key.
func ProviderCreateFailed(key string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeProviderCreate, Message: fmt.Sprintf("Unable to create provider for %s", key),
		HTTPStatus: http.StatusInternalServerError, Retryable: true,
		Details: map[string]any{"key": key}, Cause: cause,
	}
}

// NotReady reports an operation that ran before its component finished starting.
func NotReady(component string) *AppError {
	return &AppError{
		Code: ErrCodeNotReady, Message: fmt.Sprintf("The %s is not ready yet.", component),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"component": component},
	}
}

// Timeout creates a new AppError for an operation that timed out.
func Timeout(operation string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: "The operation took too long.",
		HTTPStatus: http.StatusGatewayTimeout, Retryable: true,
		Details: map[string]any{"operation": operation},
	}
}

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("The requested %s was not found.", resource),
		HTTPStatus: http.StatusNotFound, Details: details,
	}
}

// Rejected reports a write that no provider accepted.
func Rejected(name string) *AppError {
	return &AppError{
		Code: ErrCodeRejected, Message: fmt.Sprintf("No configuration accepted %s", name),
		HTTPStatus: http.StatusConflict, Details: map[string]any{"preference": name},
	}
}

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest, Details: details,
	}
}

// Internal creates a new AppError for an internal error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError, Cause: cause,
	}
}
