// Package classify maps raw failures from the network and persistence layers
// into a closed taxonomy used for retry and display decisions.
package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"time"
)

// Kind is the closed set of failure categories.
type Kind int

const (
	KindUnknown Kind = iota
	KindNoConnection
	KindNetworkTimeout
	KindRateLimited
	KindUnauthorized
	KindServerError
	KindDecoding
	KindValidation
)

// String returns the snake_case name of the kind, suitable for logs and JSON.
func (k Kind) String() string {
	switch k {
	case KindNoConnection:
		return "no_connection"
	case KindNetworkTimeout:
		return "network_timeout"
	case KindRateLimited:
		return "rate_limited"
	case KindUnauthorized:
		return "unauthorized"
	case KindServerError:
		return "server_error"
	case KindDecoding:
		return "decoding"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Sentinels callers can wrap to force a specific classification.
var (
	ErrDecode     = errors.New("decode failure")
	ErrValidation = errors.New("validation failure")
)

// Error is a classified failure. Immutable once created; the original cause
// is retained for logging only and must never be shown to the user.
type Error struct {
	Kind   Kind
	Status int // HTTP status for KindServerError, 0 otherwise
	Cause  error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (HTTP %d)", e.Kind, e.Status)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Message returns a short user-facing description of the failure.
func (e *Error) Message() string {
	switch e.Kind {
	case KindNoConnection:
		return "No internet connection. Showing cached results where available."
	case KindNetworkTimeout:
		return "The request timed out. Please try again."
	case KindRateLimited:
		return "Too many requests. Please wait a moment and try again."
	case KindUnauthorized:
		return "The API credential was rejected. Check your configuration."
	case KindServerError:
		return "The job service is having trouble. Please try again later."
	case KindDecoding:
		return "Received an unexpected response from the job service."
	case KindValidation:
		return "Please check your input and try again."
	default:
		return "Something went wrong. Please try again."
	}
}

// httpStatusError is implemented by transport errors that carry an HTTP
// status code (see usajobs.StatusError).
type httpStatusError interface {
	error
	HTTPStatus() int
}

// Classify translates a raw error into an *Error. A nil input returns nil;
// an already-classified error is returned unchanged.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}

	if errors.Is(err, ErrValidation) {
		return &Error{Kind: KindValidation, Cause: err}
	}
	if errors.Is(err, ErrDecode) {
		return &Error{Kind: KindDecoding, Cause: err}
	}

	var statusErr httpStatusError
	if errors.As(err, &statusErr) {
		switch code := statusErr.HTTPStatus(); {
		case code == 401:
			return &Error{Kind: KindUnauthorized, Cause: err}
		case code == 429:
			return &Error{Kind: KindRateLimited, Cause: err}
		case code >= 500:
			return &Error{Kind: KindServerError, Status: code, Cause: err}
		}
		return &Error{Kind: KindUnknown, Cause: err}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindNetworkTimeout, Cause: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindNetworkTimeout, Cause: err}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &Error{Kind: KindNoConnection, Cause: err}
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ENETUNREACH) || errors.Is(err, syscall.EHOSTUNREACH) {
		return &Error{Kind: KindNoConnection, Cause: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &Error{Kind: KindNoConnection, Cause: err}
	}
	// Some transports stringify connection failures before we see them.
	msg := err.Error()
	if strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "network is unreachable") {
		return &Error{Kind: KindNoConnection, Cause: err}
	}

	var synErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &synErr) || errors.As(err, &typeErr) {
		return &Error{Kind: KindDecoding, Cause: err}
	}

	return &Error{Kind: KindUnknown, Cause: err}
}

// Retryable reports whether a failure of this kind may succeed on retry.
// Unauthorized, Decoding and Validation fail fast: retrying would hammer a
// server that will keep rejecting the same request.
func Retryable(kind Kind) bool {
	switch kind {
	case KindNoConnection, KindNetworkTimeout, KindRateLimited, KindServerError:
		return true
	}
	return false
}

// Policy configures retry backoff delays.
type Policy struct {
	// BaseDelay is multiplied by the attempt number for most retryable kinds.
	BaseDelay time.Duration
	// RateLimitedBaseDelay replaces BaseDelay for KindRateLimited.
	RateLimitedBaseDelay time.Duration
}

// DefaultPolicy mirrors the delays observed in the mobile client.
func DefaultPolicy() Policy {
	return Policy{
		BaseDelay:            time.Second,
		RateLimitedBaseDelay: 5 * time.Second,
	}
}

// ShouldRetry reports whether another attempt should be made after err on
// the given 1-based attempt number.
func (p Policy) ShouldRetry(err *Error, attempt, maxAttempts int) bool {
	if err == nil {
		return false
	}
	return Retryable(err.Kind) && attempt < maxAttempts
}

// Delay returns how long to wait before re-attempting after err on the
// given 1-based attempt number.
func (p Policy) Delay(err *Error, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := p.BaseDelay
	if err != nil && err.Kind == KindRateLimited {
		base = p.RateLimitedBaseDelay
	}
	return base * time.Duration(attempt)
}
