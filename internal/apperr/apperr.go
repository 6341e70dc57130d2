// Package apperr defines the error taxonomy surfaced by the core services.
// Every failed mutation reports one of these kinds synchronously; downstream
// notification/indexing failures are retried by the task queue and never
// converted into core errors.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a core error.
type Kind int

const (
	// KindValidation indicates malformed or inconsistent input
	// (duplicate sibling slug, inactive category, empty message).
	KindValidation Kind = iota + 1
	// KindPermission indicates the actor's role or ownership forbids the action.
	KindPermission
	// KindState indicates the requested transition is invalid from the current state.
	KindState
	// KindCycle indicates a tree mutation would create a cycle or self-parenting.
	KindCycle
	// KindNotFound indicates a referenced entity is absent.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindPermission:
		return "permission"
	case KindState:
		return "state"
	case KindCycle:
		return "cycle"
	case KindNotFound:
		return "not_found"
	}
	return "unknown"
}

// Error carries enough context (entity, id, attempted action, current state)
// for handlers to render a specific user-facing message.
type Error struct {
	Kind   Kind
	Entity string // "category", "listing", "inquiry", "user"
	ID     string // entity id, may be empty for create failures
	Action string // attempted action, e.g. "transition", "move"
	State  string // current state when relevant
	Reason string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error on %s", e.Kind, e.Entity)
	if e.ID != "" {
		msg += " " + e.ID
	}
	if e.Action != "" {
		msg += fmt.Sprintf(" (action: %s)", e.Action)
	}
	if e.State != "" {
		msg += fmt.Sprintf(" (state: %s)", e.State)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Validation builds a KindValidation error.
func Validation(entity, id, reason string) *Error {
	return &Error{Kind: KindValidation, Entity: entity, ID: id, Reason: reason}
}

// Permission builds a KindPermission error.
func Permission(entity, id, action, reason string) *Error {
	return &Error{Kind: KindPermission, Entity: entity, ID: id, Action: action, Reason: reason}
}

// State builds a KindState error recording the current state.
func State(entity, id, action, current, reason string) *Error {
	return &Error{Kind: KindState, Entity: entity, ID: id, Action: action, State: current, Reason: reason}
}

// Cycle builds a KindCycle error.
func Cycle(entity, id, reason string) *Error {
	return &Error{Kind: KindCycle, Entity: entity, ID: id, Action: "move", Reason: reason}
}

// NotFound builds a KindNotFound error.
func NotFound(entity, id string) *Error {
	return &Error{Kind: KindNotFound, Entity: entity, ID: id, Reason: "not found"}
}

// IsKind reports whether err (or anything it wraps) is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == k
}

// KindOf returns the kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return 0
}
