// Package errors provides the unified error type for sttkit.
// It implements structured errors with machine-readable codes, HTTP status
// mapping and retryable detection.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation may succeed against another provider.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
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

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
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

// --- Input validation ---

// Configuration creates an error for a provider that has no usable credential.
func Configuration(provider, reason string) *AppError {
	return &AppError{
		Code: ErrCodeConfiguration, Message: fmt.Sprintf("Provider %s is not configured: %s", provider, reason),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: false,
		Details: map[string]any{"provider": provider},
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
		HTTPStatus: http.StatusNotFound, Retryable: false, Details: details,
	}
}

// UnsupportedFormat creates an error for an audio format a provider does not accept.
func UnsupportedFormat(format string, supported []string) *AppError {
	return &AppError{
		Code: ErrCodeUnsupportedFormat, Message: fmt.Sprintf("Audio format %q is not supported.", format),
		HTTPStatus: http.StatusUnsupportedMediaType, Retryable: false,
		Details: map[string]any{"format": format, "supported_formats": supported},
	}
}

// FileTooLarge creates an error for a file that exceeds a provider's size limit.
func FileTooLarge(size, limit int64) *AppError {
	return &AppError{
		Code: ErrCodeFileTooLarge, Message: fmt.Sprintf("File is %d bytes, the limit is %d bytes.", size, limit),
		HTTPStatus: http.StatusRequestEntityTooLarge, Retryable: false,
		Details: map[string]any{"file_size": size, "max_file_size": limit},
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
		HTTPStatus: http.StatusBadRequest, Retryable: false, Details: details,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		HTTPStatus: http.StatusBadRequest, Retryable: false,
	}
}

// --- Remote ---

// Unauthorized creates an error for a credential the provider rejected.
func Unauthorized(reason string) *AppError {
	if reason == "" {
		reason = "Authentication with the provider failed."
	}
	return &AppError{
		Code: ErrCodeUnauthorized, Message: reason,
		HTTPStatus: http.StatusBadGateway, Retryable: true,
	}
}

// PayloadTooLarge creates an error for an upload the provider rejected as oversized.
func PayloadTooLarge(reason string) *AppError {
	if reason == "" {
		reason = "The provider rejected the upload as too large."
	}
	return &AppError{
		Code: ErrCodePayloadTooLarge, Message: reason,
		HTTPStatus: http.StatusRequestEntityTooLarge, Retryable: true,
	}
}

// RateLimited creates a new AppError for a throttled request.
func RateLimited() *AppError {
	return &AppError{
		Code: ErrCodeRateLimited, Message: "Too many requests. Please wait a moment and try again.",
		HTTPStatus: http.StatusTooManyRequests, Retryable: true,
	}
}

// RemoteRequest creates an error for a request the provider rejected, carrying
// the vendor's detail message when present.
func RemoteRequest(detail string) *AppError {
	msg := "The provider rejected the request."
	if detail != "" {
		msg = detail
	}
	return &AppError{
		Code: ErrCodeRemoteRequest, Message: msg,
		HTTPStatus: http.StatusBadGateway, Retryable: true,
	}
}

// Transport creates an error for a network, timeout or server-side failure.
func Transport(operation string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeTransport, Message: fmt.Sprintf("Transport failure during %s.", operation),
		HTTPStatus: http.StatusBadGateway, Retryable: true,
		Details: map[string]any{"operation": operation}, Cause: cause,
	}
}

// --- Routing ---

// UnknownProvider creates an error for a provider name that is not registered.
func UnknownProvider(name string) *AppError {
	return &AppError{
		Code: ErrCodeUnknownProvider, Message: fmt.Sprintf("Unknown provider %q.", name),
		HTTPStatus: http.StatusBadRequest, Retryable: false,
		Details: map[string]any{"provider": name},
	}
}

// NoProviderAvailable creates an error for a registry with no credentialed provider.
func NoProviderAvailable() *AppError {
	return &AppError{
		Code: ErrCodeNoProviderAvailable, Message: "No transcription provider is available.",
		HTTPStatus: http.StatusServiceUnavailable, Retryable: false,
	}
}

// Internal creates a new AppError for an internal error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// Aggregate is implemented by errors that combine several failures but
// convert to a single AppError, such as the router's fallback error.
type Aggregate interface {
	error
	AppError() *AppError
}

// AsAppError converts an error to an AppError if possible. An Aggregate in
// the chain takes precedence over the AppErrors it wraps.
func AsAppError(err error) (*AppError, bool) {
	var agg Aggregate
	if stderrors.As(err, &agg) {
		if appErr := agg.AppError(); appErr != nil {
			return appErr, true
		}
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code AsAppError finds in err's chain, or
// ErrCodeInternal when there is none. A nil error has no code.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
