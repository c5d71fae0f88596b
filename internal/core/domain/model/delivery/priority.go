package delivery

import (
	"fmt"
	"strings"

	"lastmile/internal/pkg/errs"
)

// Priority is the urgency of a delivery.
type Priority int

const (
	PriorityUnknown Priority = iota
	PriorityLow
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

var priorityNames = map[Priority]string{
	PriorityLow:      "LOW",
	PriorityNormal:   "NORMAL",
	PriorityHigh:     "HIGH",
	PriorityCritical: "CRITICAL",
}

// AllPriorities returns the valid priorities from least to most urgent.
func AllPriorities() []Priority {
	return []Priority{PriorityLow, PriorityNormal, PriorityHigh, PriorityCritical}
}

// ParsePriority converts "LOW", "NORMAL", "HIGH" or "CRITICAL", case-insensitively.
func ParsePriority(s string) (Priority, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for p, n := range priorityNames {
		if n == name {
			return p, nil
		}
	}
	return PriorityUnknown, errs.NewValueIsInvalidErrorWithCause(
		"priority", fmt.Errorf("%q is not a valid priority", s))
}

func (p Priority) IsValid() bool {
	_, ok := priorityNames[p]
	return ok
}

func (p Priority) Validate() error {
	if !p.IsValid() {
		return errs.NewValueIsInvalidErrorWithCause("priority is invalid", fmt.Errorf("%d is not a valid priority", p))
	}
	return nil
}

func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return "UNKNOWN"
}

// Rank orders priorities for visiting: CRITICAL=0, HIGH=1, NORMAL=2, LOW=3.
// Unknown values rank after LOW.
func (p Priority) Rank() int {
	switch p { //nolint:exhaustive // unknown handled by default
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityNormal:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}
