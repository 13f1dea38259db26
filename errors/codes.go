package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Input validation errors. These describe a request that is invalid for the
// provider it was sent to and are never retried.
const (
	// ErrCodeConfiguration indicates a provider is missing its credential or settings.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	// ErrCodeNotFound indicates the referenced file or resource does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeUnsupportedFormat indicates the audio format is not accepted by the provider.
	ErrCodeUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
	// ErrCodeFileTooLarge indicates the local size pre-check failed.
	ErrCodeFileTooLarge ErrorCode = "FILE_TOO_LARGE"
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Remote errors reported by, or on the way to, a provider.
const (
	// ErrCodeUnauthorized indicates the provider rejected the credential.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodePayloadTooLarge indicates the provider rejected the upload as oversized.
	ErrCodePayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE"
	// ErrCodeRateLimited indicates the provider throttled the request.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
	// ErrCodeRemoteRequest indicates the provider rejected the request for another reason.
	ErrCodeRemoteRequest ErrorCode = "REMOTE_REQUEST"
	// ErrCodeTransport indicates a network, timeout or server-side failure.
	ErrCodeTransport ErrorCode = "TRANSPORT"
)

// Routing errors.
const (
	// ErrCodeUnknownProvider indicates no provider is registered under the name.
	ErrCodeUnknownProvider ErrorCode = "UNKNOWN_PROVIDER"
	// ErrCodeNoProviderAvailable indicates no registered provider has credentials.
	ErrCodeNoProviderAvailable ErrorCode = "NO_PROVIDER_AVAILABLE"
	// ErrCodeFallbackExhausted indicates every attempted provider failed.
	ErrCodeFallbackExhausted ErrorCode = "FALLBACK_EXHAUSTED"
)

// Internal errors
const (
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeUnauthorized:    true,
	ErrCodePayloadTooLarge: true,
	ErrCodeRateLimited:     true,
	ErrCodeRemoteRequest:   true,
	ErrCodeTransport:       true,
}

var localCodes = map[ErrorCode]bool{
	ErrCodeConfiguration:     true,
	ErrCodeNotFound:          true,
	ErrCodeUnsupportedFormat: true,
	ErrCodeFileTooLarge:      true,
	ErrCodeInvalidInput:      true,
	ErrCodeUnknownProvider:   true,
}

// IsRetryableCode returns true if a failure with this code may succeed
// against a different provider.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}

// IsLocalCode returns true if the code describes an invalid request rather
// than an unhealthy provider.
func IsLocalCode(code ErrorCode) bool {
	return localCodes[code]
}
