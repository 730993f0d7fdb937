// Package serrors provides semantic error kinds for the reseller core.
// Kinds classify failures by meaning (rate limited, auth failure, timeout)
// so orchestrators can pattern-match with errors.Is instead of branching on
// vendor-specific vocabulary.
package serrors

import (
	"errors"
	"fmt"
	"time"
)

// Kind is a marker interface implemented by all semantic error kinds created
// with NewKind. It allows distinguishing semantic kinds from ordinary errors.
type Kind interface {
	error
	isKind()
}

// kind is an unexported implementation of Kind used as a sentinel value for a
// semantic error category.
type kind struct{ s string }

func (k kind) Error() string { return k.s }
func (k kind) isKind()       {}

// NewKind creates a new semantic error kind (a sentinel) with the provided
// name/description. Kinds are comparable and can be used with errors.Is/As
// through the serrors.Error wrapper.
func NewKind(name string) Kind { return kind{s: name} }

// Registrar-facing kinds. Adapters map vendor error shapes into exactly one
// of these so callers never see vendor vocabulary.
var (
	// ErrConnectionFailure indicates the vendor API could not be reached.
	ErrConnectionFailure = NewKind("CONNECTION_FAILURE")
	// ErrAuthenticationFailure indicates the registrar rejected our credentials.
	ErrAuthenticationFailure = NewKind("AUTHENTICATION_FAILURE")
	// ErrRateLimited indicates too many requests; use RetryAfter for backoff.
	ErrRateLimited = NewKind("RATE_LIMITED")
	// ErrDomainNotFound indicates the registrar does not know the domain.
	ErrDomainNotFound = NewKind("DOMAIN_NOT_FOUND")
	// ErrInvalidData indicates the request was rejected as malformed; use
	// Details for field-level information.
	ErrInvalidData = NewKind("INVALID_DATA")
	// ErrTimeout indicates the vendor call exceeded its deadline. Callers
	// must treat this as a distinct, retryable failure, never as success.
	ErrTimeout = NewKind("TIMEOUT")
	// ErrOperationFailed indicates a generic vendor-reported failure.
	ErrOperationFailed = NewKind("OPERATION_FAILED")
)

// Factory-level kinds.
var (
	// ErrRegistrarNotFound indicates the requested registrar is not configured.
	ErrRegistrarNotFound = NewKind("REGISTRAR_NOT_FOUND")
	// ErrRegistrarInactive indicates the registrar exists but is disabled.
	ErrRegistrarInactive = NewKind("REGISTRAR_INACTIVE")
)

// Application kinds.
var (
	// ErrNotFound indicates the requested entity was not found locally.
	ErrNotFound = NewKind("NOT_FOUND")
	// ErrBadRequest indicates the caller sent invalid data; raised before
	// any network or ledger effect.
	ErrBadRequest = NewKind("BAD_REQUEST")
	// ErrConflict indicates a state conflict (e.g. domain already exists).
	ErrConflict = NewKind("CONFLICT")
	// ErrInsufficientFunds indicates a debit would drive the balance negative.
	ErrInsufficientFunds = NewKind("INSUFFICIENT_FUNDS")
	// ErrInternal indicates an internal error.
	ErrInternal = NewKind("INTERNAL")
)

// Error represents a semantic error carrying a kind (sentinel), an optional
// wrapped error, an optional message, and optional structured context
// (retry-after for rate limits, field details for validation failures).
// It fully supports errors.Is/errors.As and unwrapping.
//
// Matching semantics:
//   - errors.Is(err, target) will match if target matches either the kind
//     sentinel or the wrapped error.
//   - errors.As(err, target) will succeed for either the kind sentinel or the
//     wrapped error.
type Error struct {
	kind Kind  // semantic kind sentinel
	err  error // wrapped error (optional)
	msg  string

	retryAfter time.Duration
	details    map[string]string
}

// With constructs a new semantic error with the given kind and an arbitrary
// human-readable message. Use Wrap if you also want to wrap a concrete cause.
func With(k Kind, msgFmt string, args ...any) *Error {
	return &Error{kind: k, msg: fmt.Sprintf(msgFmt, args...)}
}

// Wrap constructs a new semantic error with the given kind, wraps the provided
// cause (err) and allows adding an arbitrary message.
func Wrap(k Kind, err error, msgFmt string, args ...any) *Error {
	return &Error{kind: k, err: err, msg: fmt.Sprintf(msgFmt, args...)}
}

// KindOnly creates a semantic error carrying only the kind without extra
// message or concrete cause.
func KindOnly(k Kind) *Error { return &Error{kind: k} }

// WithRetryAfter returns a copy of e annotated with the duration after which
// the caller may retry. Used with ErrRateLimited.
func (e *Error) WithRetryAfter(d time.Duration) *Error {
	cp := *e
	cp.retryAfter = d

	return &cp
}

// WithDetail returns a copy of e with a field-level detail attached. Used
// with ErrInvalidData.
func (e *Error) WithDetail(field, problem string) *Error {
	cp := *e
	cp.details = make(map[string]string, len(e.details)+1)
	for k, v := range e.details {
		cp.details[k] = v
	}
	cp.details[field] = problem

	return &cp
}

// RetryAfter returns the retry-after hint, or zero when none was set.
func (e *Error) RetryAfter() time.Duration { return e.retryAfter }

// Details returns the field-level details attached to this error (may be nil).
func (e *Error) Details() map[string]string { return e.details }

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e == nil:
		return "<nil>"
	case e.msg != "" && e.err != nil:
		return e.msg + ": " + e.err.Error()
	case e.msg != "":
		return e.msg
	case e.err != nil:
		return e.err.Error()
	default:
		if e.kind != nil {
			return e.kind.Error()
		}

		return "unknown error"
	}
}

// Unwrap returns the wrapped error, enabling errors.Unwrap/Is/As to traverse
// the underlying cause chain.
func (e *Error) Unwrap() error { return e.err }

// Is enables matching against either the semantic kind sentinel or the wrapped
// error in the chain. This ensures that errors.Is works for both.
func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return e == nil && target == nil
	}
	if e.kind != nil && errors.Is(e.kind, target) {
		return true
	}
	if e.err != nil && errors.Is(e.err, target) {
		return true
	}

	return false
}

// As enables type assertions against either the semantic kind sentinel or the
// wrapped error in the chain.
func (e *Error) As(target any) bool {
	if e == nil || target == nil {
		return false
	}
	if e.kind != nil && errors.As(e.kind, target) {
		return true
	}
	if e.err != nil && errors.As(e.err, target) {
		return true
	}

	return false
}

// Kind returns the semantic kind sentinel associated with this error, or nil.
func (e *Error) Kind() Kind { return e.kind }

// Message returns the arbitrary message attached to this error.
func (e *Error) Message() string { return e.msg }

// Cause returns the wrapped cause (may be nil).
func (e *Error) Cause() error { return e.err }

// RetryAfter extracts the retry-after hint from any error in the chain,
// returning zero when the error carries none.
func RetryAfter(err error) time.Duration {
	var se *Error
	if errors.As(err, &se) {
		return se.RetryAfter()
	}

	return 0
}
