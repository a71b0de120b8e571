package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Input errors
const (
	ErrCodeInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrCodeInvalidURI    ErrorCode = "INVALID_URI"
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
)

// Configuration file errors
const (
	// ErrCodeParseFailed indicates a configuration file with malformed content.
	ErrCodeParseFailed ErrorCode = "PARSE_FAILED"
	// ErrCodeReadFailed indicates a configuration file could not be read.
	ErrCodeReadFailed ErrorCode = "READ_FAILED"
	// ErrCodeWriteFailed indicates a configuration file could not be written.
	ErrCodeWriteFailed ErrorCode = "WRITE_FAILED"
)

// Engine errors
const (
	ErrCodeProviderCreate ErrorCode = "PROVIDER_CREATE_FAILED"
	ErrCodeNotReady       ErrorCode = "NOT_READY"
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"
	ErrCodeRejected       ErrorCode = "REJECTED"
	ErrCodeTimeout        ErrorCode = "TIMEOUT"
	ErrCodeInternal       ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeParseFailed:    true,
	ErrCodeReadFailed:     true,
	ErrCodeProviderCreate: true,
	ErrCodeNotReady:       true,
	ErrCodeTimeout:        true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}

// IsRetryable reports whether err, or any error it wraps, is a retryable AppError.
func IsRetryable(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Retryable
	}
	return false
}
