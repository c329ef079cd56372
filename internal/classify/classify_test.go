package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
	"time"
)

type fakeStatusError struct{ code int }

func (e *fakeStatusError) Error() string   { return fmt.Sprintf("HTTP %d", e.code) }
func (e *fakeStatusError) HTTPStatus() int { return e.code }

type fakeTimeoutError struct{}

func (fakeTimeoutError) Error() string   { return "i/o timeout" }
func (fakeTimeoutError) Timeout() bool   { return true }
func (fakeTimeoutError) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil stays nil", nil, KindUnknown},
		{"deadline exceeded", context.DeadlineExceeded, KindNetworkTimeout},
		{"wrapped deadline", fmt.Errorf("search: %w", context.DeadlineExceeded), KindNetworkTimeout},
		{"net timeout", fakeTimeoutError{}, KindNetworkTimeout},
		{"connection refused", syscall.ECONNREFUSED, KindNoConnection},
		{"dns failure", &net.DNSError{Err: "no such host", Name: "example.gov"}, KindNoConnection},
		{"http 401", &fakeStatusError{401}, KindUnauthorized},
		{"http 429", &fakeStatusError{429}, KindRateLimited},
		{"http 500", &fakeStatusError{500}, KindServerError},
		{"http 503", &fakeStatusError{503}, KindServerError},
		{"http 404 is unknown", &fakeStatusError{404}, KindUnknown},
		{"json syntax", &json.SyntaxError{}, KindDecoding},
		{"decode sentinel", fmt.Errorf("bad payload: %w", ErrDecode), KindDecoding},
		{"validation sentinel", fmt.Errorf("keyword required: %w", ErrValidation), KindValidation},
		{"plain error", errors.New("boom"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if tt.err == nil {
				if got != nil {
					t.Fatalf("Classify(nil) = %v, want nil", got)
				}
				return
			}
			if got.Kind != tt.want {
				t.Errorf("Classify(%v).Kind = %v, want %v", tt.err, got.Kind, tt.want)
			}
			if got.Cause == nil {
				t.Error("classified error lost its cause")
			}
		})
	}
}

func TestClassifyPreservesStatus(t *testing.T) {
	ce := Classify(&fakeStatusError{502})
	if ce.Status != 502 {
		t.Errorf("Status = %d, want 502", ce.Status)
	}
	if ce.Error() != "server_error (HTTP 502)" {
		t.Errorf("Error() = %q", ce.Error())
	}
}

func TestClassifyIdempotent(t *testing.T) {
	orig := &Error{Kind: KindRateLimited, Cause: errors.New("429")}
	wrapped := fmt.Errorf("check alerts: %w", orig)
	if got := Classify(wrapped); got != orig {
		t.Errorf("re-classifying returned a new error: %v", got)
	}
}

func TestRetryable(t *testing.T) {
	retryable := []Kind{KindNoConnection, KindNetworkTimeout, KindRateLimited, KindServerError}
	terminal := []Kind{KindUnauthorized, KindDecoding, KindValidation, KindUnknown}

	for _, k := range retryable {
		if !Retryable(k) {
			t.Errorf("Retryable(%v) = false, want true", k)
		}
	}
	for _, k := range terminal {
		if Retryable(k) {
			t.Errorf("Retryable(%v) = true, want false", k)
		}
	}
}

func TestPolicyShouldRetry(t *testing.T) {
	p := DefaultPolicy()
	transient := &Error{Kind: KindServerError, Status: 500}
	terminal := &Error{Kind: KindUnauthorized}

	if !p.ShouldRetry(transient, 1, 3) {
		t.Error("attempt 1/3 of server error should retry")
	}
	if p.ShouldRetry(transient, 3, 3) {
		t.Error("attempt 3/3 must not retry")
	}
	if p.ShouldRetry(terminal, 1, 3) {
		t.Error("unauthorized must never retry")
	}
	if p.ShouldRetry(nil, 1, 3) {
		t.Error("nil error must not retry")
	}
}

func TestPolicyDelay(t *testing.T) {
	p := Policy{BaseDelay: time.Second, RateLimitedBaseDelay: 5 * time.Second}

	if got := p.Delay(&Error{Kind: KindServerError}, 2); got != 2*time.Second {
		t.Errorf("Delay(server, 2) = %v, want 2s", got)
	}
	if got := p.Delay(&Error{Kind: KindRateLimited}, 1); got != 5*time.Second {
		t.Errorf("Delay(rate limited, 1) = %v, want 5s", got)
	}
	if got := p.Delay(&Error{Kind: KindNetworkTimeout}, 0); got != time.Second {
		t.Errorf("Delay clamps attempt to 1, got %v", got)
	}
}
