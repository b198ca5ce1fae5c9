package stateset

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"
)

func response(status int, headers map[string]string) *http.Response {
	resp := &http.Response{StatusCode: status, Header: http.Header{}}
	for k, v := range headers {
		resp.Header.Set(k, v)
	}
	return resp
}

func TestClassifyResponseStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   ErrorKind
	}{
		{"401 authentication", 401, KindAuthentication},
		{"403 authorization", 403, KindAuthorization},
		{"404 not found", 404, KindNotFound},
		{"409 conflict", 409, KindConflict},
		{"422 validation", 422, KindValidation},
		{"429 rate limit", 429, KindRateLimit},
		{"503 service unavailable", 503, KindServiceUnavailable},
		{"500 generic api", 500, KindAPI},
		{"502 generic api", 502, KindAPI},
		{"400 generic api", 400, KindAPI},
		{"418 generic api", 418, KindAPI},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyResponse(response(tt.status, nil), nil)
			if got.Kind != tt.want {
				t.Errorf("status %d classified as %v, want %v", tt.status, got.Kind, tt.want)
			}
		})
	}
}

func TestClassifyResponseValidationBody(t *testing.T) {
	body := []byte(`{"errors":[{"field":"email","message":"is invalid","code":"format"},{"field":"name","message":"too long","code":"max_length"}]}`)
	got := classifyResponse(response(422, nil), body)

	if got.Kind != KindValidation {
		t.Fatalf("Kind = %v, want Validation", got.Kind)
	}
	if got.Field != "email" || got.Message != "is invalid" || got.ValidationCode != "format" {
		t.Errorf("got field=%q message=%q code=%q, want first element of errors array", got.Field, got.Message, got.ValidationCode)
	}
}

func TestClassifyResponseValidationFallback(t *testing.T) {
	got := classifyResponse(response(422, nil), []byte(`{"message":"nope"}`))
	if got.Kind != KindValidation || got.Message != "nope" {
		t.Errorf("got kind=%v message=%q, want Validation with envelope message", got.Kind, got.Message)
	}

	got = classifyResponse(response(422, nil), []byte(`not json`))
	if got.Kind != KindValidation || got.Message != "validation failed" {
		t.Errorf("got kind=%v message=%q, want generic validation message", got.Kind, got.Message)
	}
}

func TestClassifyResponseQuotaExceeded(t *testing.T) {
	body := []byte(`{"message":"monthly quota used up","code":"quota_exceeded"}`)
	before := time.Now()
	got := classifyResponse(response(429, map[string]string{"Retry-After": "3600"}), body)

	if got.Kind != KindQuotaExceeded {
		t.Fatalf("Kind = %v, want QuotaExceeded", got.Kind)
	}
	if got.ResetTime.Before(before.Add(59 * time.Minute)) {
		t.Errorf("ResetTime %v too early", got.ResetTime)
	}

	plain := classifyResponse(response(429, nil), []byte(`{"message":"slow down"}`))
	if plain.Kind != KindRateLimit {
		t.Errorf("429 without quota code classified as %v, want RateLimit", plain.Kind)
	}
}

func TestClassifyResponseRetryAfterHint(t *testing.T) {
	got := classifyResponse(response(429, map[string]string{"Retry-After": "7"}), nil)
	if d, ok := got.RetryAfter(); !ok || d != 7*time.Second {
		t.Errorf("RetryAfter = (%v, %v), want (7s, true)", d, ok)
	}

	got = classifyResponse(response(503, map[string]string{"Retry-After": "2"}), nil)
	if d, ok := got.RetryAfter(); !ok || d != 2*time.Second {
		t.Errorf("503 RetryAfter = (%v, %v), want (2s, true)", d, ok)
	}
}

func TestClassifyResponseAPIDetails(t *testing.T) {
	body := []byte(`{"message":"internal error","code":"internal"}`)
	got := classifyResponse(response(500, map[string]string{"X-Request-ID": "req_123"}), body)

	if got.Kind != KindAPI || got.Code != 500 {
		t.Fatalf("got kind=%v code=%d, want Api 500", got.Kind, got.Code)
	}
	if got.Message != "internal error" {
		t.Errorf("Message = %q, want envelope message", got.Message)
	}
	if got.RequestID != "req_123" {
		t.Errorf("RequestID = %q, want req_123", got.RequestID)
	}
	if string(got.Details) != string(body) {
		t.Errorf("Details = %s, want raw body", got.Details)
	}
}

func TestClassifyResponseAPIMessageFallbacks(t *testing.T) {
	got := classifyResponse(response(500, nil), []byte("  plain text  "))
	if got.Message != "plain text" {
		t.Errorf("Message = %q, want trimmed body", got.Message)
	}

	got = classifyResponse(response(500, nil), nil)
	if got.Message != "Internal Server Error" {
		t.Errorf("Message = %q, want status text", got.Message)
	}
}

type fakeNetError struct {
	timeout bool
}

func (e fakeNetError) Error() string   { return "fake net error" }
func (e fakeNetError) Timeout() bool   { return e.timeout }
func (e fakeNetError) Temporary() bool { return false }

func TestClassifyTransportError(t *testing.T) {
	timeout := 30 * time.Second

	got := classifyTransportError(context.DeadlineExceeded, timeout, "GET /v1/orders")
	if got.Kind != KindTimeout || got.Duration != timeout || got.Operation != "GET /v1/orders" {
		t.Errorf("deadline exceeded classified as %+v, want Timeout", got)
	}

	got = classifyTransportError(fakeNetError{timeout: true}, timeout, "op")
	if got.Kind != KindTimeout {
		t.Errorf("net timeout classified as %v, want Timeout", got.Kind)
	}

	dialErr := &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	got = classifyTransportError(dialErr, timeout, "op")
	if got.Kind != KindNetwork || !got.CanRetry {
		t.Errorf("dial failure classified as %+v, want retryable Network", got)
	}

	got = classifyTransportError(errors.New("stream reset"), timeout, "op")
	if got.Kind != KindNetwork || !got.CanRetry {
		t.Errorf("generic transport error classified as %+v, want retryable Network", got)
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"empty", "", 0},
		{"seconds", "5", 5 * time.Second},
		{"zero", "0", 0},
		{"negative", "-3", 0},
		{"capped at one hour", "7200", time.Hour},
		{"garbage", "soon", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseRetryAfter(tt.value); got != tt.want {
				t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}

	date := time.Now().Add(10 * time.Second).UTC().Format(http.TimeFormat)
	got := parseRetryAfter(date)
	if got <= 0 || got > 10*time.Second {
		t.Errorf("parseRetryAfter(http date) = %v, want ~10s", got)
	}

	past := time.Now().Add(-time.Minute).UTC().Format(http.TimeFormat)
	if got := parseRetryAfter(past); got != 0 {
		t.Errorf("parseRetryAfter(past date) = %v, want 0", got)
	}
}
