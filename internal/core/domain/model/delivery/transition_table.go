package delivery

import (
	"errors"
	"fmt"

	"lastmile/internal/pkg/errs"
	"lastmile/internal/pkg/guard"
)

// ErrTransitionTableIsNotConstructed is returned when a zero-value TransitionTable is used.
var ErrTransitionTableIsNotConstructed = errors.New(
	"TransitionTable must be created via NewTransitionTable or DefaultTransitionTable")

// TransitionTable is an immutable mapping from a status to the set of statuses
// it may move to. Terminal statuses always map to the empty set; this is
// enforced by NewTransitionTable rather than left to convention.
//
// A table is built once at startup and injected into the TransitionValidator,
// so alternative rule sets can be tested without touching global state.
type TransitionTable struct {
	next  map[Status]map[Status]struct{}
	guard guard.ConstructorGuard
}

// DefaultTransitionTable returns the authoritative lifecycle table:
//
//	PENDING          -> {ASSIGNED, CANCELLED}
//	ASSIGNED         -> {PICKED_UP, PENDING, CANCELLED}
//	PICKED_UP        -> {IN_TRANSIT, FAILED}
//	IN_TRANSIT       -> {OUT_FOR_DELIVERY, FAILED}
//	OUT_FOR_DELIVERY -> {DELIVERED, FAILED}
//	DELIVERED        -> {}
//	FAILED           -> {ASSIGNED, CANCELLED}
//	CANCELLED        -> {}
func DefaultTransitionTable() TransitionTable {
	table, err := NewTransitionTable(map[Status][]Status{
		StatusPending:        {StatusAssigned, StatusCancelled},
		StatusAssigned:       {StatusPickedUp, StatusPending, StatusCancelled},
		StatusPickedUp:       {StatusInTransit, StatusFailed},
		StatusInTransit:      {StatusOutForDelivery, StatusFailed},
		StatusOutForDelivery: {StatusDelivered, StatusFailed},
		StatusDelivered:      {},
		StatusFailed:         {StatusAssigned, StatusCancelled},
		StatusCancelled:      {},
	})
	if err != nil {
		panic(fmt.Sprintf("default transition table is inconsistent: %v", err))
	}
	return table
}

// NewTransitionTable copies rules into a frozen table.
//
// Returns an error when:
//   - a key or target is not a valid Status
//   - a terminal status (DELIVERED, CANCELLED) has any outgoing transition
//   - a status lists itself (same-status submissions are handled by the validator)
//
// Statuses missing from rules have no outgoing transitions.
func NewTransitionTable(rules map[Status][]Status) (TransitionTable, error) {
	next := make(map[Status]map[Status]struct{}, len(statusNames))
	for _, s := range AllStatuses() {
		next[s] = map[Status]struct{}{}
	}

	var problems []error
	for from, targets := range rules {
		if !from.IsValid() {
			problems = append(problems, errs.NewValueIsInvalidErrorWithCause(
				"transition table", fmt.Errorf("%d is not a valid source status", from)))
			continue
		}
		if from.IsTerminal() && len(targets) > 0 {
			problems = append(problems, errs.NewValueIsInvalidErrorWithCause(
				"transition table", fmt.Errorf("terminal status %s must not have outgoing transitions", from)))
			continue
		}
		for _, to := range targets {
			switch {
			case !to.IsValid():
				problems = append(problems, errs.NewValueIsInvalidErrorWithCause(
					"transition table", fmt.Errorf("%d is not a valid target status of %s", to, from)))
			case to == from:
				problems = append(problems, errs.NewValueIsInvalidErrorWithCause(
					"transition table", fmt.Errorf("%s must not list itself", from)))
			default:
				next[from][to] = struct{}{}
			}
		}
	}

	if err := errors.Join(problems...); err != nil {
		return TransitionTable{}, err
	}

	return TransitionTable{next: next, guard: guard.NewConstructorGuard()}, nil
}

// Validate returns ErrTransitionTableIsNotConstructed for zero values.
func (t TransitionTable) Validate() error {
	return t.guard.Validate(ErrTransitionTableIsNotConstructed)
}

// AllowedNext returns the statuses reachable from current in lifecycle order.
// The result is a fresh slice; unknown statuses yield an empty slice.
func (t TransitionTable) AllowedNext(current Status) []Status {
	allowed := make([]Status, 0, len(t.next[current]))
	for _, s := range AllStatuses() {
		if _, ok := t.next[current][s]; ok {
			allowed = append(allowed, s)
		}
	}
	return allowed
}

// Allows reports whether the table contains the edge from -> to.
func (t TransitionTable) Allows(from, to Status) bool {
	_, ok := t.next[from][to]
	return ok
}
