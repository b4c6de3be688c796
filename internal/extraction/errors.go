package extraction

import (
	"errors"
	"fmt"
)

// ErrorKind classifies the failures an extraction call can report.
// A malformed response from a reachable service is not an error: it degrades
// to the rule-based result instead.
type ErrorKind string

const (
	// KindServiceNotConfigured means no session exists; the caller should
	// prompt for an API key rather than retry.
	KindServiceNotConfigured ErrorKind = "service_not_configured"

	// KindServiceCallFailed means the outbound call itself failed. Transient.
	KindServiceCallFailed ErrorKind = "service_call_failed"
)

// Error is the only error type returned by Engine extraction methods.
type Error struct {
	Kind ErrorKind
	Err  error
}

// Sentinels for errors.Is comparisons; matching is by Kind only.
var (
	ErrServiceNotConfigured = &Error{Kind: KindServiceNotConfigured}
	ErrServiceCallFailed    = &Error{Kind: KindServiceCallFailed}
)

func (e *Error) Error() string {
	switch e.Kind {
	case KindServiceNotConfigured:
		return "extraction service not configured: set an API key"
	case KindServiceCallFailed:
		if e.Err != nil {
			return fmt.Sprintf("failed to process voice input: %v", e.Err)
		}
		return "failed to process voice input"
	}
	if e.Err != nil {
		return fmt.Sprintf("extraction %s: %v", e.Kind, e.Err)
	}
	return "extraction " + string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Retryable reports whether repeating the same call may succeed.
func (e *Error) Retryable() bool {
	return e.Kind == KindServiceCallFailed
}

// KindOf returns the ErrorKind carried by err, if any.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsRetryable reports whether err is an extraction error worth retrying.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable()
}

func newError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}
