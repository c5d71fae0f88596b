package commands

import (
	"errors"
	"strings"

	"lastmile/internal/core/domain/model/kernel"
	"lastmile/internal/pkg/errs"
	"lastmile/internal/pkg/guard"
)

var ErrAssignDriverCommandIsNotConstructed = errors.New(
	"AssignDriverCommand must be created via NewAssignDriverCommand constructor",
)

// AssignDriverCommand assigns (or reassigns) a driver and an optional vehicle.
//
// Example:
//
//	vehicle := kernel.NewUUID()
//	cmd, err := NewAssignDriverCommand(deliveryID, driverID, &vehicle, "dispatcher-7", "closest driver")
type AssignDriverCommand struct {
	deliveryID kernel.UUID
	driverID   kernel.UUID
	vehicleID  *kernel.UUID
	actor      string
	reason     string

	guard guard.ConstructorGuard
}

func NewAssignDriverCommand(
	deliveryID, driverID kernel.UUID,
	vehicleID *kernel.UUID,
	actor, reason string,
) (AssignDriverCommand, error) {
	var validationErrs []error
	if err := deliveryID.Validate(); err != nil {
		validationErrs = append(validationErrs, errs.NewValueIsRequiredErrorWithCause("delivery id", err))
	}
	if err := driverID.Validate(); err != nil {
		validationErrs = append(validationErrs, errs.NewValueIsRequiredErrorWithCause("driver id", err))
	}
	if vehicleID != nil {
		if err := vehicleID.Validate(); err != nil {
			validationErrs = append(validationErrs, errs.NewValueIsInvalidErrorWithCause("vehicle id", err))
		}
	}
	validationErrs = append(validationErrs, validateReason(reason))
	if err := errors.Join(validationErrs...); err != nil {
		return AssignDriverCommand{}, err
	}

	var vehicle *kernel.UUID
	if vehicleID != nil {
		v := *vehicleID
		vehicle = &v
	}

	return AssignDriverCommand{
		deliveryID: deliveryID,
		driverID:   driverID,
		vehicleID:  vehicle,
		actor:      strings.TrimSpace(actor),
		reason:     strings.TrimSpace(reason),
		guard:      guard.NewConstructorGuard(),
	}, nil
}

func (c *AssignDriverCommand) Validate() error {
	return c.guard.Validate(ErrAssignDriverCommandIsNotConstructed)
}

func (c *AssignDriverCommand) DeliveryID() kernel.UUID {
	return c.deliveryID
}

func (c *AssignDriverCommand) DriverID() kernel.UUID {
	return c.driverID
}

// VehicleID returns nil when no vehicle was requested.
func (c *AssignDriverCommand) VehicleID() *kernel.UUID {
	return c.vehicleID
}

func (c *AssignDriverCommand) Actor() string {
	return c.actor
}

func (c *AssignDriverCommand) Reason() string {
	return c.reason
}
