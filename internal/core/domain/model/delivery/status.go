package delivery

import (
	"fmt"
	"strings"

	"lastmile/internal/pkg/errs"
)

// Status is the lifecycle state of a delivery.
type Status int

const (
	// StatusUnknown is the zero value and never a valid state.
	StatusUnknown Status = iota

	// StatusPending is the initial state: created, waiting for a driver.
	StatusPending

	// StatusAssigned means a driver (and optionally a vehicle) has been assigned.
	StatusAssigned

	// StatusPickedUp means the driver collected the parcel at the pickup point.
	StatusPickedUp

	// StatusInTransit means the parcel is moving between hubs or towards the area.
	StatusInTransit

	// StatusOutForDelivery means the parcel is on the final leg to the customer.
	StatusOutForDelivery

	// StatusDelivered is terminal: the customer received the parcel.
	StatusDelivered

	// StatusFailed means an attempt failed; the delivery may be retried or cancelled.
	StatusFailed

	// StatusCancelled is terminal: the delivery will not be completed.
	StatusCancelled
)

var statusNames = map[Status]string{
	StatusPending:        "PENDING",
	StatusAssigned:       "ASSIGNED",
	StatusPickedUp:       "PICKED_UP",
	StatusInTransit:      "IN_TRANSIT",
	StatusOutForDelivery: "OUT_FOR_DELIVERY",
	StatusDelivered:      "DELIVERED",
	StatusFailed:         "FAILED",
	StatusCancelled:      "CANCELLED",
}

// AllStatuses returns every valid status in lifecycle order.
func AllStatuses() []Status {
	return []Status{
		StatusPending,
		StatusAssigned,
		StatusPickedUp,
		StatusInTransit,
		StatusOutForDelivery,
		StatusDelivered,
		StatusFailed,
		StatusCancelled,
	}
}

// ActiveStatuses are the states in which a delivery occupies its driver.
func ActiveStatuses() []Status {
	return []Status{StatusAssigned, StatusPickedUp, StatusInTransit, StatusOutForDelivery}
}

// ParseStatus converts a wire or database name such as "OUT_FOR_DELIVERY".
// Matching is case-insensitive and surrounding spaces are ignored.
func ParseStatus(s string) (Status, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for status, n := range statusNames {
		if n == name {
			return status, nil
		}
	}
	return StatusUnknown, errs.NewValueIsInvalidErrorWithCause(
		"status", fmt.Errorf("%q is not a valid status", s))
}

// IsValid reports whether s is one of the eight lifecycle states.
func (s Status) IsValid() bool {
	_, ok := statusNames[s]
	return ok
}

// Validate returns a ValueIsInvalidError for unknown values, e.g. ones read
// from a corrupted row.
func (s Status) Validate() error {
	if !s.IsValid() {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%d is not a valid status", s))
	}
	return nil
}

// String returns the wire name, or "UNKNOWN" for invalid values.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// IsTerminal reports whether no transition may leave s.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// IsActive reports whether s is one of ActiveStatuses.
func (s Status) IsActive() bool {
	switch s { //nolint:exhaustive // only active states matter
	case StatusAssigned, StatusPickedUp, StatusInTransit, StatusOutForDelivery:
		return true
	default:
		return false
	}
}

// RequiresDriver reports whether a delivery in s must carry a driver id
// (ASSIGNED through DELIVERED).
func (s Status) RequiresDriver() bool {
	return s >= StatusAssigned && s <= StatusDelivered
}

// IsCollected reports whether the parcel has left the pickup point, so route
// planning should target the drop-off coordinates.
func (s Status) IsCollected() bool {
	return s >= StatusPickedUp && s <= StatusDelivered
}
