package services

import (
	"errors"
	"fmt"
	"strings"

	"lastmile/internal/core/domain/model/delivery"
	"lastmile/internal/core/domain/model/kernel"
	"lastmile/internal/pkg/errs"
)

// DefaultMaxDeliveryAttempts is how many failed attempts a delivery may
// accumulate before it can no longer be retried.
const DefaultMaxDeliveryAttempts = 3

// ErrConstraintViolation classifies a ConstraintResult with hard errors.
var ErrConstraintViolation = errors.New("delivery constraint violated")

// ConstraintResult separates blocking errors from informational warnings.
// Valid is true exactly when Errors is empty.
type ConstraintResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// Err returns nil for a valid result and *ConstraintViolationError otherwise.
func (r ConstraintResult) Err() error {
	if r.Valid {
		return nil
	}
	return &ConstraintViolationError{Errors: r.Errors, Warnings: r.Warnings}
}

func (r *ConstraintResult) fail(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Valid = false
}

func (r *ConstraintResult) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func newConstraintResult() ConstraintResult {
	return ConstraintResult{Valid: true, Errors: []string{}, Warnings: []string{}}
}

// ConstraintViolationError carries every hard error of a failed check.
type ConstraintViolationError struct {
	Errors   []string
	Warnings []string
}

func (e *ConstraintViolationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrConstraintViolation, strings.Join(e.Errors, "; "))
}

func (e *ConstraintViolationError) Unwrap() error {
	return ErrConstraintViolation
}

// DeliveryConstraintChecker holds the business rules that sit on top of the
// transition table: who may be assigned, what may be cancelled, how often a
// failed delivery may be retried. Every rule is evaluated independently so a
// result lists all problems at once.
type DeliveryConstraintChecker struct {
	maxAttempts int
}

// NewDeliveryConstraintChecker returns a checker allowing maxAttempts failed attempts.
func NewDeliveryConstraintChecker(maxAttempts int) (DeliveryConstraintChecker, error) {
	if maxAttempts < 1 {
		return DeliveryConstraintChecker{}, errs.NewValueIsOutOfRangeError("max delivery attempts", maxAttempts, 1, "+Inf")
	}
	return DeliveryConstraintChecker{maxAttempts: maxAttempts}, nil
}

// DefaultDeliveryConstraintChecker allows DefaultMaxDeliveryAttempts.
func DefaultDeliveryConstraintChecker() DeliveryConstraintChecker {
	return DeliveryConstraintChecker{maxAttempts: DefaultMaxDeliveryAttempts}
}

// CheckAssignable decides whether candidateDriverID may take d.
//
// Errors (block):
//   - d is not PENDING or ASSIGNED
//   - d is in a driver-required status but has no driver (data inconsistency)
//   - the candidate id is not constructed
//
// Warnings (never block):
//   - d already has a different driver
//   - d's time window overlaps the window of another active delivery of the candidate
//
// d itself is ignored if it appears in driverActiveDeliveries.
func (c DeliveryConstraintChecker) CheckAssignable(
	d *delivery.Delivery,
	candidateDriverID kernel.UUID,
	driverActiveDeliveries []*delivery.Delivery,
) ConstraintResult {
	result := newConstraintResult()
	if err := d.Validate(); err != nil {
		result.fail("%v", err)
		return result
	}

	if err := candidateDriverID.Validate(); err != nil {
		result.fail("candidate driver id is required")
	}

	status := d.Status()
	if status != delivery.StatusPending && status != delivery.StatusAssigned {
		result.fail("delivery %s is %s; only %s or %s deliveries can be assigned",
			d.TrackingCode(), status, delivery.StatusPending, delivery.StatusAssigned)
	}

	if status.RequiresDriver() && d.DriverID() == nil {
		result.fail("delivery %s is %s but has no driver", d.TrackingCode(), status)
	}

	if current := d.DriverID(); current != nil && !current.IsEqual(candidateDriverID) {
		result.warn("delivery %s is reassigned from driver %s to %s", d.TrackingCode(), current, candidateDriverID)
	}

	if window := d.TimeWindow(); window != nil {
		for _, other := range driverActiveDeliveries {
			if other == nil || other.IsEqual(d) || !other.Status().IsActive() || other.TimeWindow() == nil {
				continue
			}
			if window.Overlaps(*other.TimeWindow()) {
				result.warn("time window %s overlaps delivery %s (%s)",
					window, other.TrackingCode(), other.TimeWindow())
			}
		}
	}

	return result
}

// CheckCancellable decides whether d may be cancelled.
//
// DELIVERED and CANCELLED deliveries cannot be cancelled. OUT_FOR_DELIVERY
// is blocked too: the driver must be contacted instead. Every other status
// passes here; the transition table still decides whether the change itself
// is allowed.
func (c DeliveryConstraintChecker) CheckCancellable(d *delivery.Delivery) ConstraintResult {
	result := newConstraintResult()
	if err := d.Validate(); err != nil {
		result.fail("%v", err)
		return result
	}

	switch d.Status() { //nolint:exhaustive // other statuses may be cancelled
	case delivery.StatusDelivered, delivery.StatusCancelled:
		result.fail("delivery %s is already %s", d.TrackingCode(), d.Status())
	case delivery.StatusOutForDelivery:
		result.fail("delivery %s is out for delivery; coordinate with the driver directly instead of cancelling",
			d.TrackingCode())
	}

	return result
}

// CheckRetryable decides whether a FAILED delivery may be attempted again.
func (c DeliveryConstraintChecker) CheckRetryable(d *delivery.Delivery) ConstraintResult {
	result := newConstraintResult()
	if err := d.Validate(); err != nil {
		result.fail("%v", err)
		return result
	}

	if d.Status() != delivery.StatusFailed {
		result.fail("delivery %s is %s; only %s deliveries are retried", d.TrackingCode(), d.Status(), delivery.StatusFailed)
	}
	if d.FailedAttempts() >= c.maxAttempts {
		result.fail("delivery %s reached the limit of %d failed attempts", d.TrackingCode(), c.maxAttempts)
	}

	return result
}

// CheckStatusChange applies the rules that guard a plain status change
// (not an assignment or cancellation):
//   - a target status that requires a driver needs one already assigned
//   - FAILED -> ASSIGNED is a retry and must pass CheckRetryable
//   - CANCELLED must pass CheckCancellable
func (c DeliveryConstraintChecker) CheckStatusChange(d *delivery.Delivery, to delivery.Status) ConstraintResult {
	result := newConstraintResult()
	if err := d.Validate(); err != nil {
		result.fail("%v", err)
		return result
	}

	if to != d.Status() && to.RequiresDriver() && d.DriverID() == nil {
		result.fail("delivery %s needs a driver before it can become %s", d.TrackingCode(), to)
	}

	var nested ConstraintResult
	switch {
	case d.Status() == delivery.StatusFailed && to == delivery.StatusAssigned:
		nested = c.CheckRetryable(d)
	case to == delivery.StatusCancelled && d.Status() != to:
		nested = c.CheckCancellable(d)
	default:
		return result
	}

	for _, e := range nested.Errors {
		result.fail("%s", e)
	}
	result.Warnings = append(result.Warnings, nested.Warnings...)
	return result
}
