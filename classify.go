package stateset

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// apiErrorEnvelope is the best-effort error body: {"message": "...", "code": "..."}.
type apiErrorEnvelope struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// validationEnvelope is the structured 422 body:
// {"errors": [{"field": "...", "message": "...", "code": "..."}]}.
type validationEnvelope struct {
	Errors []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"errors"`
}

// classifyTransportError maps a failure from the HTTP transport to one Error
// variant. Timeouts become Timeout, connection failures become retryable
// Network errors. Context cancellation is passed through untouched so the
// executor can exclude the attempt from breaker accounting.
func classifyTransportError(err error, timeout time.Duration, operation string) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout(timeout, operation)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Timeout(timeout, operation)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return Network("connection failed: "+opErr.Error(), false, true)
	}

	return Network(err.Error(), false, true)
}

// classifyResponse maps a completed non-2xx HTTP exchange to one Error
// variant, per the status table: 401, 403, 404, 409, 422, 429, 503 get
// dedicated kinds; everything else becomes a generic API error carrying the
// error body and the echoed X-Request-ID.
func classifyResponse(resp *http.Response, body []byte) *Error {
	status := resp.StatusCode
	retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
	requestID := resp.Header.Get("X-Request-ID")

	var envelope apiErrorEnvelope
	_ = json.Unmarshal(body, &envelope)

	switch status {
	case http.StatusUnauthorized:
		return Authentication("unauthorized, check your API credentials")
	case http.StatusForbidden:
		return Authorization("forbidden, insufficient permissions")
	case http.StatusNotFound:
		return NotFound()
	case http.StatusConflict:
		return Conflict(retryAfter)
	case http.StatusUnprocessableEntity:
		var v validationEnvelope
		if err := json.Unmarshal(body, &v); err == nil && len(v.Errors) > 0 {
			first := v.Errors[0]
			message := first.Message
			if message == "" {
				message = "validation failed"
			}
			return Validation(message, first.Field, first.Code)
		}
		message := envelope.Message
		if message == "" {
			message = "validation failed"
		}
		return Validation(message, "", "")
	case http.StatusTooManyRequests:
		if envelope.Code == "quota_exceeded" {
			return QuotaExceeded(time.Now().Add(retryAfter))
		}
		return RateLimit(retryAfter)
	case http.StatusServiceUnavailable:
		return ServiceUnavailable(retryAfter)
	default:
		message := envelope.Message
		if message == "" {
			message = strings.TrimSpace(string(body))
		}
		if message == "" {
			message = http.StatusText(status)
		}
		var details json.RawMessage
		if json.Valid(body) {
			details = json.RawMessage(body)
		}
		return APIWithDetails(status, message, details, requestID)
	}
}

// parseRetryAfter parses a Retry-After header in either delay-seconds or
// HTTP-date form. Values above one hour are capped; unparseable or missing
// values yield zero.
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds <= 0 {
			return 0
		}
		delay := time.Duration(seconds) * time.Second
		if delay > time.Hour {
			delay = time.Hour
		}
		return delay
	}

	if t, err := http.ParseTime(value); err == nil {
		delay := time.Until(t)
		if delay > 0 && delay <= time.Hour {
			return delay
		}
	}

	return 0
}
