package stateset

import (
	"encoding/json"
	"fmt"
	"time"
)

// ErrorKind identifies which variant of Error is active. The set is closed:
// every error returned by this SDK carries exactly one of these kinds.
type ErrorKind int

const (
	// KindNotFound indicates the requested resource does not exist (404).
	KindNotFound ErrorKind = iota
	// KindAuthentication indicates missing or invalid credentials (401).
	KindAuthentication
	// KindAuthorization indicates insufficient permissions (403).
	KindAuthorization
	// KindRateLimit indicates the server or the client-side limiter rejected
	// the request for exceeding the allowed rate (429).
	KindRateLimit
	// KindAPI is a generic API error for status codes without a dedicated kind.
	KindAPI
	// KindValidation indicates the request payload failed server validation (422).
	KindValidation
	// KindNetwork indicates a transport-level failure.
	KindNetwork
	// KindTimeout indicates the request exceeded its deadline.
	KindTimeout
	// KindConflict indicates a resource conflict (409).
	KindConflict
	// KindServiceUnavailable indicates the service is temporarily down (503),
	// or that the circuit breaker is open.
	KindServiceUnavailable
	// KindRetryExhausted wraps the last failure after all attempts were consumed.
	KindRetryExhausted
	// KindInvalidRequest indicates the request could not be constructed locally.
	KindInvalidRequest
	// KindQuotaExceeded indicates an account quota was exhausted.
	KindQuotaExceeded
	// KindOther covers errors that fit no other kind.
	KindOther
)

// String returns the kind name used in logs and metrics labels.
func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindAuthentication:
		return "Authentication"
	case KindAuthorization:
		return "Authorization"
	case KindRateLimit:
		return "RateLimit"
	case KindAPI:
		return "Api"
	case KindValidation:
		return "Validation"
	case KindNetwork:
		return "Network"
	case KindTimeout:
		return "Timeout"
	case KindConflict:
		return "Conflict"
	case KindServiceUnavailable:
		return "ServiceUnavailable"
	case KindRetryExhausted:
		return "RetryExhausted"
	case KindInvalidRequest:
		return "InvalidRequest"
	case KindQuotaExceeded:
		return "QuotaExceeded"
	case KindOther:
		return "Other"
	default:
		return "Unknown"
	}
}

// Error is the single error type returned by the SDK. Only the fields
// belonging to the active Kind are populated; IsRetryable, StatusCode and
// RetryAfter are pure functions of that payload.
type Error struct {
	Kind    ErrorKind
	Message string

	// API error payload.
	Code      int
	Details   json.RawMessage
	RequestID string

	// Validation payload: first element of the server's errors[] array.
	Field          string
	ValidationCode string

	// Network payload.
	IsTimeout bool
	CanRetry  bool

	// Timeout payload.
	Duration  time.Duration
	Operation string

	// QuotaExceeded payload.
	ResetTime time.Time

	// RetryExhausted payload.
	Attempts  int
	LastError error

	retryAfter time.Duration
}

// NotFound returns a resource-not-found error.
func NotFound() *Error {
	return &Error{Kind: KindNotFound}
}

// Authentication returns a credentials error.
func Authentication(message string) *Error {
	return &Error{Kind: KindAuthentication, Message: message}
}

// Authorization returns a permissions error.
func Authorization(message string) *Error {
	return &Error{Kind: KindAuthorization, Message: message}
}

// RateLimit returns a rate-limit error. A zero retryAfter means the server
// gave no hint.
func RateLimit(retryAfter time.Duration) *Error {
	return &Error{Kind: KindRateLimit, retryAfter: retryAfter}
}

// API returns a generic API error for the given status code.
func API(code int, message string) *Error {
	return &Error{Kind: KindAPI, Code: code, Message: message}
}

// APIWithDetails returns a generic API error carrying the raw error body
// and the request ID echoed by the server.
func APIWithDetails(code int, message string, details json.RawMessage, requestID string) *Error {
	return &Error{Kind: KindAPI, Code: code, Message: message, Details: details, RequestID: requestID}
}

// Validation returns a validation error for a single field.
func Validation(message, field, code string) *Error {
	return &Error{Kind: KindValidation, Message: message, Field: field, ValidationCode: code}
}

// Network returns a transport-level error. canRetry marks failures worth
// resubmitting, such as refused connections or reset streams.
func Network(message string, isTimeout, canRetry bool) *Error {
	return &Error{Kind: KindNetwork, Message: message, IsTimeout: isTimeout, CanRetry: canRetry}
}

// Timeout returns a deadline error for the named operation.
func Timeout(duration time.Duration, operation string) *Error {
	return &Error{Kind: KindTimeout, Duration: duration, Operation: operation}
}

// Conflict returns a resource-conflict error.
func Conflict(retryAfter time.Duration) *Error {
	return &Error{Kind: KindConflict, retryAfter: retryAfter}
}

// ServiceUnavailable returns a temporary-outage error. The executor also
// synthesizes this kind when the circuit breaker is open, carrying the
// breaker's recovery timeout as the retry hint.
func ServiceUnavailable(retryAfter time.Duration) *Error {
	return &Error{Kind: KindServiceUnavailable, retryAfter: retryAfter}
}

// RetryExhausted wraps the last failure after all attempts were used up.
func RetryExhausted(attempts int, operation string, last error) *Error {
	return &Error{Kind: KindRetryExhausted, Attempts: attempts, Operation: operation, LastError: last}
}

// InvalidRequest returns an error for requests that could not be built locally.
func InvalidRequest(message string) *Error {
	return &Error{Kind: KindInvalidRequest, Message: message}
}

// QuotaExceeded returns an account-quota error.
func QuotaExceeded(resetTime time.Time) *Error {
	return &Error{Kind: KindQuotaExceeded, ResetTime: resetTime}
}

// Other returns an uncategorized error.
func Other(message string) *Error {
	return &Error{Kind: KindOther, Message: message}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case KindNotFound:
		return "resource not found"
	case KindAuthentication:
		return fmt.Sprintf("authentication failed: %s", e.Message)
	case KindAuthorization:
		return fmt.Sprintf("authorization failed: %s", e.Message)
	case KindRateLimit:
		if e.retryAfter > 0 {
			return fmt.Sprintf("rate limit exceeded, retry after %v", e.retryAfter)
		}
		return "rate limit exceeded"
	case KindAPI:
		if e.RequestID != "" {
			return fmt.Sprintf("API error %d: %s (request_id: %s)", e.Code, e.Message, e.RequestID)
		}
		return fmt.Sprintf("API error %d: %s", e.Code, e.Message)
	case KindValidation:
		if e.Field != "" {
			return fmt.Sprintf("validation error on %s: %s", e.Field, e.Message)
		}
		return fmt.Sprintf("validation error: %s", e.Message)
	case KindNetwork:
		return fmt.Sprintf("network error: %s", e.Message)
	case KindTimeout:
		return fmt.Sprintf("%s timed out after %v", e.Operation, e.Duration)
	case KindConflict:
		if e.retryAfter > 0 {
			return fmt.Sprintf("resource conflict, retry after %v", e.retryAfter)
		}
		return "resource conflict"
	case KindServiceUnavailable:
		if e.retryAfter > 0 {
			return fmt.Sprintf("service unavailable, retry after %v", e.retryAfter)
		}
		return "service unavailable"
	case KindRetryExhausted:
		return fmt.Sprintf("%s failed after %d attempts: %v", e.Operation, e.Attempts, e.LastError)
	case KindInvalidRequest:
		return fmt.Sprintf("invalid request: %s", e.Message)
	case KindQuotaExceeded:
		return fmt.Sprintf("quota exceeded, resets at %s", e.ResetTime.Format(time.RFC3339))
	default:
		return e.Message
	}
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.LastError
}

// Is matches errors of the same kind, so callers can write
// errors.Is(err, stateset.NotFound()).
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// IsRetryable reports whether resubmitting the request may succeed.
// RateLimit, Conflict, ServiceUnavailable, Timeout, retryable Network errors
// and 5xx API errors qualify; everything else is a caller or input error.
func (e *Error) IsRetryable() bool {
	if e == nil {
		return false
	}
	switch e.Kind {
	case KindRateLimit, KindConflict, KindServiceUnavailable, KindTimeout:
		return true
	case KindNetwork:
		return e.CanRetry
	case KindAPI:
		return e.Code >= 500 && e.Code <= 599
	default:
		return false
	}
}

// StatusCode returns the HTTP status associated with the error, if any.
func (e *Error) StatusCode() (int, bool) {
	if e == nil {
		return 0, false
	}
	switch e.Kind {
	case KindNotFound:
		return 404, true
	case KindAuthentication:
		return 401, true
	case KindAuthorization:
		return 403, true
	case KindRateLimit, KindQuotaExceeded:
		return 429, true
	case KindValidation:
		return 422, true
	case KindConflict:
		return 409, true
	case KindServiceUnavailable:
		return 503, true
	case KindTimeout:
		return 408, true
	case KindAPI:
		return e.Code, true
	default:
		return 0, false
	}
}

// RetryAfter returns how long the caller should wait before resubmitting.
// It is set from the Retry-After header for RateLimit, Conflict and
// ServiceUnavailable errors; a bare Network error defaults to one second so
// retry loops never spin hot.
func (e *Error) RetryAfter() (time.Duration, bool) {
	if e == nil {
		return 0, false
	}
	switch e.Kind {
	case KindRateLimit, KindConflict, KindServiceUnavailable:
		if e.retryAfter > 0 {
			return e.retryAfter, true
		}
		return 0, false
	case KindNetwork:
		return time.Second, true
	default:
		return 0, false
	}
}
