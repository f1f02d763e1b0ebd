package faults

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure. Retryability is decided here, at the
// type level, so a caller can never accidentally retry a terminal condition.
type Kind int

const (
	KindUnknown Kind = iota
	// KindAuth means the upstream rejected our credential. Terminal.
	KindAuth
	// KindPermission means the credential lacks a required scope. Terminal.
	KindPermission
	// KindRateLimited means the upstream asked us to back off. Retryable
	// after the server-provided or computed wait.
	KindRateLimited
	// KindUpstreamServer covers 5xx and transient network failures. Retryable
	// with exponential backoff.
	KindUpstreamServer
	// KindMalformedItem marks a single undecodable entry inside an otherwise
	// valid page. Absorbed at item granularity, never fails the run.
	KindMalformedItem
	// KindMalformedResponse marks an undecodable page. Treated as a request
	// failure and retried like a server error.
	KindMalformedResponse
	// KindValidation marks bad pre-flight input (missing credential, bad
	// destination address). Terminal.
	KindValidation
	// KindPersistence marks a ledger transaction failure. Terminal for the
	// run; rollback leaves prior state intact.
	KindPersistence
	// KindPublish marks a serialize/encrypt/upload failure. Terminal.
	KindPublish
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindPermission:
		return "permission"
	case KindRateLimited:
		return "rate_limited"
	case KindUpstreamServer:
		return "upstream_server"
	case KindMalformedItem:
		return "malformed_item"
	case KindMalformedResponse:
		return "malformed_response"
	case KindValidation:
		return "validation"
	case KindPersistence:
		return "persistence"
	case KindPublish:
		return "publish"
	default:
		return "unknown"
	}
}

// Retryable reports whether another attempt at the same request may succeed.
func (k Kind) Retryable() bool {
	switch k {
	case KindRateLimited, KindUpstreamServer, KindMalformedResponse:
		return true
	default:
		return false
	}
}

type Error struct {
	Kind   Kind
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s (%d)", e.Kind, e.Status)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, status int, err error) *Error {
	return &Error{Kind: kind, Status: status, Err: err}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the failure kind from an error chain, KindUnknown if none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether err carries a retryable failure kind. Unknown
// errors are not retried.
func IsRetryable(err error) bool {
	return KindOf(err).Retryable()
}
