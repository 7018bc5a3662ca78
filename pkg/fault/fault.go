// Package fault defines the discriminated error kinds shared by the
// authorization engine and the credential lifecycle. Transport layers map a
// Kind to a status code exactly once (see HTTPStatus) instead of inspecting
// concrete error types at each call site.
package fault

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for transport mapping and metrics.
type Kind int

const (
	// KindInternal is the zero value: an unclassified failure.
	KindInternal Kind = iota
	// KindUnauthorized means no subject, or an invalid one, where one is required.
	KindUnauthorized
	// KindForbidden means the policy engine denied the action.
	KindForbidden
	// KindTokenExpired means a token that is valid in every other respect is past its expiry.
	KindTokenExpired
	// KindTokenInvalid covers bad signature, issuer/audience mismatch, malformed
	// structure, and unknown or already-revoked refresh tokens.
	KindTokenInvalid
	// KindNotFound means the resource does not exist.
	KindNotFound
	// KindRateLimited means the caller exceeded a request budget.
	KindRateLimited
	// KindDatabase means the storage collaborator was unreachable or failed.
	KindDatabase
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "UNAUTHORIZED"
	case KindForbidden:
		return "FORBIDDEN"
	case KindTokenExpired:
		return "TOKEN_EXPIRED"
	case KindTokenInvalid:
		return "TOKEN_INVALID"
	case KindNotFound:
		return "RESOURCE_NOT_FOUND"
	case KindRateLimited:
		return "RATE_LIMITED"
	case KindDatabase:
		return "DATABASE_ERROR"
	default:
		return "INTERNAL"
	}
}

// Error is a classified error. Op names the operation that failed
// ("token.Rotate", "authz.Resolve") for logs; it is never shown to clients.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error with a message.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap classifies an underlying error.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the Kind of err, or KindInternal when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps a kind to its HTTP status code. This is the single place
// transport status mapping happens.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindUnauthorized, KindTokenExpired, KindTokenInvalid:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindDatabase:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
