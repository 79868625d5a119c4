package serrors

import (
	"fmt"
	"strings"
)

// Base is the common shape for service errors so callers can map them to a
// transport status without string matching.
type Base struct {
	Code    string
	Message string
}

func (e *Base) Error() string {
	return e.Message
}

func NewError(code, message string) *Base {
	return &Base{Code: code, Message: message}
}

// ValidationError carries one or more input violations. Age-rule checks
// collect every violation before failing, so Violations may hold several.
type ValidationError struct {
	Base
	Violations []string
}

func NewValidationError(message string, violations ...string) *ValidationError {
	return &ValidationError{
		Base:       Base{Code: "VALIDATION", Message: message},
		Violations: violations,
	}
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Violations, "; "))
}

// StateConflictError signals an action against a request already in a
// terminal status.
type StateConflictError struct {
	Base
	Status string
}

func NewStateConflict(status string) *StateConflictError {
	return &StateConflictError{
		Base:   Base{Code: "STATE_CONFLICT", Message: fmt.Sprintf("request is already %s", status)},
		Status: status,
	}
}

// RateLimitError covers the verification abuse scopes. Scope is one of
// "destination", "token" or "attempts".
type RateLimitError struct {
	Base
	Scope string
}

func NewRateLimit(scope, message string) *RateLimitError {
	return &RateLimitError{
		Base:  Base{Code: "RATE_LIMIT", Message: message},
		Scope: scope,
	}
}

// NotFoundError is returned for unknown ids, codes and tokens. At the token
// lookup boundary it is deliberately indistinguishable from "expired".
type NotFoundError struct {
	Base
}

func NewNotFound(what string) *NotFoundError {
	return &NotFoundError{Base: Base{Code: "NOT_FOUND", Message: what + " not found"}}
}

// NotifierError wraps a delivery failure. It is logged and swallowed by
// callers; it must never unwind a state mutation that already committed.
type NotifierError struct {
	Base
	Cause error
}

func NewNotifierError(cause error) *NotifierError {
	return &NotifierError{
		Base:  Base{Code: "NOTIFIER", Message: "notification delivery failed"},
		Cause: cause,
	}
}

func (e *NotifierError) Unwrap() error {
	return e.Cause
}
