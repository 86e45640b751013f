package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a domain failure. Every kind is terminal to the
// calling request; none are retried by the core.
type ErrorKind string

const (
	KindValidation    ErrorKind = "VALIDATION"
	KindAuthorization ErrorKind = "AUTHORIZATION"
	KindState         ErrorKind = "STATE"
	KindConflict      ErrorKind = "CONFLICT"
	KindPolicy        ErrorKind = "POLICY"
)

// Error carries a taxonomy kind plus a human-readable reason.
type Error struct {
	Kind   ErrorKind
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func NewValidationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Reason: fmt.Sprintf(format, args...)}
}

func NewAuthorizationError(format string, args ...any) *Error {
	return &Error{Kind: KindAuthorization, Reason: fmt.Sprintf(format, args...)}
}

func NewStateError(format string, args ...any) *Error {
	return &Error{Kind: KindState, Reason: fmt.Sprintf(format, args...)}
}

func NewConflictError(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Reason: fmt.Sprintf(format, args...)}
}

func NewPolicyError(format string, args ...any) *Error {
	return &Error{Kind: KindPolicy, Reason: fmt.Sprintf(format, args...)}
}

// KindOf returns the taxonomy kind of err, or "" if err is not a domain error.
func KindOf(err error) ErrorKind {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return ""
}

func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

var (
	ErrPickupNotFound  = errors.New("pickup not found")
	ErrSupportNotFound = errors.New("support not found")
	ErrPostNotFound    = errors.New("post not found")
	ErrPartyNotFound   = errors.New("party not found")

	// ErrActivePickupExists is returned by the store when the partial unique
	// index on (post_id, non-terminal status) rejects an insert.
	ErrActivePickupExists = errors.New("an active pickup already exists for this post")

	// ErrActiveSupportExists is the support-side analog, keyed by
	// (initiative_id, giver_id).
	ErrActiveSupportExists = errors.New("an active support already exists for this giver and initiative")

	// ErrStatusConflict is returned when a compare-and-set status update
	// matches zero rows, meaning the record moved underneath the caller.
	ErrStatusConflict = errors.New("record status changed concurrently")
)
