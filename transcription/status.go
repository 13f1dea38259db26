package transcription

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/kbukum/sttkit/errors"
	"github.com/kbukum/sttkit/httpclient"
)

// StatusMapper converts a non-2xx vendor response into a classified error.
type StatusMapper func(status int, body []byte) *errors.AppError

// MapStatus is the shared status to error-kind mapping. detail is the
// vendor's own message, used for rejected requests.
func MapStatus(status int, detail string) *errors.AppError {
	var appErr *errors.AppError
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		appErr = errors.Unauthorized(detail)
	case status == http.StatusRequestEntityTooLarge:
		appErr = errors.PayloadTooLarge(detail)
	case status == http.StatusTooManyRequests:
		appErr = errors.RateLimited()
		if detail != "" {
			appErr = appErr.WithDetail("vendor_message", detail)
		}
	case status >= 400 && status < 500:
		appErr = errors.RemoteRequest(detail)
	default:
		appErr = errors.Transport("transcribe", nil)
		if detail != "" {
			appErr = appErr.WithDetail("vendor_message", detail)
		}
	}
	return appErr.WithDetail("http_status", status)
}

// Classify turns any failure from a transcription call into an *AppError.
// Errors that carry no code are treated as transport failures.
func Classify(err error) *errors.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Transport("transcribe (timeout)", err)
	}
	return errors.Transport("transcribe", err)
}

// IsFallbackEligible reports whether a failure describes the provider rather
// than the input, so another provider may succeed.
func IsFallbackEligible(err error) bool {
	if err == nil {
		return false
	}
	return errors.IsRetryableCode(Classify(err).Code)
}

// classifyHTTPError maps an httpclient failure. Responses go through the
// variant's mapper; everything without a response is a transport failure.
func classifyHTTPError(err error, mapStatus StatusMapper) *errors.AppError {
	if hErr, ok := httpclient.AsError(err); ok && hErr.StatusCode > 0 {
		return mapStatus(hErr.StatusCode, hErr.Body).WithCause(err)
	}
	if httpclient.IsTimeout(err) {
		return errors.Transport("transcribe (timeout)", err)
	}
	return errors.Transport("transcribe", err)
}

// DetailMessage extracts a vendor error message from a JSON body by trying
// each dotted path in turn (e.g. "error.message", "detail.message"). When
// no path matches, a short plain-text body is returned as-is.
func DetailMessage(body []byte, paths ...string) string {
	doc, ok := decodeObject(body)
	if ok {
		for _, path := range paths {
			if msg := lookupString(doc, strings.Split(path, ".")); msg != "" {
				return msg
			}
		}
		return ""
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 512 {
		text = text[:512]
	}
	return text
}
