/*
errors.go - Closed error-kind enumeration for the scheduling engine

PURPOSE:
  Every failure the engine reports carries exactly one ErrorKind. Callers
  branch on the kind (errors.Is against the kind sentinels, or KindOf)
  instead of parsing messages.

ERROR KINDS:
  NotFound         Unknown agent, inactive agent
  InvalidArgument  Bad group/shift/absence code, start after end, bad date
  Conflict         Reserved; upserts always succeed so nothing raises it today
  StorageFailure   The store could not read or commit; the transaction is
                   rolled back and the error propagated, never retried here

USAGE:
  if errors.Is(err, generic.ErrNotFound) {
      // 404
  }
  switch generic.KindOf(err) { ... }

SEE ALSO:
  - store.go: stores wrap driver failures with StorageFailure
  - api/handlers.go: maps kinds to HTTP status codes
*/
package generic

import (
	"errors"
	"fmt"
)

// ErrorKind classifies engine errors.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNotFound
	KindInvalidArgument
	KindConflict
	KindStorageFailure
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindConflict:
		return "conflict"
	case KindStorageFailure:
		return "storage_failure"
	default:
		return "unknown"
	}
}

// =============================================================================
// SENTINEL ERRORS - One per kind, use with errors.Is()
// =============================================================================

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConflict        = errors.New("conflict")
	ErrStorageFailure  = errors.New("storage failure")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindInvalidArgument:
		return ErrInvalidArgument
	case KindConflict:
		return ErrConflict
	case KindStorageFailure:
		return ErrStorageFailure
	default:
		return nil
	}
}

// =============================================================================
// STRUCTURED ERROR
// =============================================================================

// Error is the single error type returned across package boundaries.
type Error struct {
	Kind    ErrorKind
	Op      string // operation that failed, e.g. "book leave period"
	Message string
	Err     error // underlying cause, if any
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinel so errors.Is(err, ErrNotFound) works through
// any amount of fmt.Errorf wrapping.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

func NotFound(op, message string) error {
	return &Error{Kind: KindNotFound, Op: op, Message: message}
}

func InvalidArgument(op, message string) error {
	return &Error{Kind: KindInvalidArgument, Op: op, Message: message}
}

// StorageFailure wraps a driver error. Already-classified errors pass through
// untouched so a NotFound raised inside a transaction keeps its kind.
func StorageFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindStorageFailure, Op: op, Err: err}
}

// AgentNotFound is the common NotFound for agent lookups.
func AgentNotFound(op string, code AgentCode) error {
	return NotFound(op, fmt.Sprintf("agent %s not found", code))
}

// AgentInactive is reported when a mutating operation targets an exited agent.
func AgentInactive(op string, code AgentCode) error {
	return NotFound(op, fmt.Sprintf("agent %s not found or inactive", code))
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// KindOf returns the kind of err, KindUnknown for foreign errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidArgument) || errors.Is(err, ErrConflict)
}
