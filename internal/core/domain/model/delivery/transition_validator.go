package delivery

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidTransition classifies rejected transitions. Match it with errors.Is
	// and extract details with errors.As into *InvalidTransitionError.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrUnknownStatus classifies statuses outside the lifecycle set. It signals
	// corrupted data upstream and should be surfaced, not defaulted.
	ErrUnknownStatus = errors.New("unknown status")
)

// InvalidTransitionError carries what a client needs to render a precise message.
type InvalidTransitionError struct {
	CurrentStatus      Status
	AttemptedStatus    Status
	AllowedTransitions []Status
}

func (e *InvalidTransitionError) Error() string {
	allowed := make([]string, len(e.AllowedTransitions))
	for i, s := range e.AllowedTransitions {
		allowed[i] = s.String()
	}
	return fmt.Sprintf("%s: cannot change status from %s to %s (allowed: [%s])",
		ErrInvalidTransition, e.CurrentStatus, e.AttemptedStatus, strings.Join(allowed, ", "))
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// StatusRole names which side of a transition held the unknown status.
type StatusRole string

const (
	RoleCurrent StatusRole = "current"
	RoleTarget  StatusRole = "target"
)

// UnknownStatusError reports a status value outside the lifecycle set.
type UnknownStatusError struct {
	Status Status
	Role   StatusRole
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("%s: %s status %d is not recognized", ErrUnknownStatus, e.Role, int(e.Status))
}

func (e *UnknownStatusError) Unwrap() error {
	return ErrUnknownStatus
}

// TransitionOptions tunes a single validation. The zero value is the default
// policy: same-status submissions are accepted and the table is enforced.
type TransitionOptions struct {
	// DisallowSameStatus makes from == to go through the table like any other
	// transition, which rejects it because tables never contain self-edges.
	DisallowSameStatus bool

	// ForceOverride bypasses the table for administrative corrections. It never
	// bypasses the recognized-status checks.
	ForceOverride bool
}

// TransitionValidator decides whether a requested status change is legal.
// It is a pure function of its table and is safe for concurrent use.
type TransitionValidator struct {
	table TransitionTable
}

// NewTransitionValidator binds a validator to a constructed table.
func NewTransitionValidator(table TransitionTable) (TransitionValidator, error) {
	if err := table.Validate(); err != nil {
		return TransitionValidator{}, err
	}
	return TransitionValidator{table: table}, nil
}

// DefaultTransitionValidator uses DefaultTransitionTable.
func DefaultTransitionValidator() TransitionValidator {
	return TransitionValidator{table: DefaultTransitionTable()}
}

// Table returns the table this validator enforces.
func (v TransitionValidator) Table() TransitionTable {
	return v.table
}

// Validate returns nil to accept the transition from -> to.
//
// Checks run in this order:
//  1. from is not a recognized status: *UnknownStatusError (RoleCurrent)
//  2. to is not a recognized status: *UnknownStatusError (RoleTarget)
//  3. from == to and same-status is allowed: accept
//  4. ForceOverride: accept
//  5. to is in the table's allowed set for from: accept, otherwise *InvalidTransitionError
func (v TransitionValidator) Validate(from, to Status, opts TransitionOptions) error {
	if !from.IsValid() {
		return &UnknownStatusError{Status: from, Role: RoleCurrent}
	}
	if !to.IsValid() {
		return &UnknownStatusError{Status: to, Role: RoleTarget}
	}
	if from == to && !opts.DisallowSameStatus {
		return nil
	}
	if opts.ForceOverride {
		return nil
	}
	if v.table.Allows(from, to) {
		return nil
	}
	return &InvalidTransitionError{
		CurrentStatus:      from,
		AttemptedStatus:    to,
		AllowedTransitions: v.table.AllowedNext(from),
	}
}
