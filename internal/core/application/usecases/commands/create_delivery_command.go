package commands

import (
	"errors"
	"strings"

	"lastmile/internal/core/domain/model/delivery"
	"lastmile/internal/core/domain/model/kernel"
	"lastmile/internal/pkg/errs"
	"lastmile/internal/pkg/guard"
)

var ErrCreateDeliveryCommandIsNotConstructed = errors.New(
	"CreateDeliveryCommand must be created via NewCreateDeliveryCommand constructor",
)

// CreateDeliveryCommand registers a new delivery in PENDING status.
//
// Example:
//
//	pickup, _ := kernel.NewCoordinates(-23.5505, -46.6333)
//	dropoff, _ := kernel.NewCoordinates(-23.5615, -46.6559)
//	cmd, err := NewCreateDeliveryCommand(kernel.NewUUID(), delivery.PriorityHigh, pickup, dropoff,
//	    delivery.Schedule{PickupAt: at, DeliveryAt: at.Add(time.Hour)}, "dispatcher-7")
type CreateDeliveryCommand struct {
	deliveryID kernel.UUID
	priority   delivery.Priority
	pickup     kernel.Coordinates
	dropoff    kernel.Coordinates
	schedule   delivery.Schedule
	actor      string

	guard guard.ConstructorGuard
}

// NewCreateDeliveryCommand validates the request shape. Schedule ordering is
// checked by the aggregate.
func NewCreateDeliveryCommand(
	deliveryID kernel.UUID,
	priority delivery.Priority,
	pickup, dropoff kernel.Coordinates,
	schedule delivery.Schedule,
	actor string,
) (CreateDeliveryCommand, error) {
	var validationErrs []error
	if err := deliveryID.Validate(); err != nil {
		validationErrs = append(validationErrs, errs.NewValueIsRequiredErrorWithCause("delivery id", err))
	}
	if err := priority.Validate(); err != nil {
		validationErrs = append(validationErrs, err)
	}
	if err := pickup.Validate(); err != nil {
		validationErrs = append(validationErrs, errs.NewValueIsInvalidErrorWithCause("pickup coordinates", err))
	}
	if err := dropoff.Validate(); err != nil {
		validationErrs = append(validationErrs, errs.NewValueIsInvalidErrorWithCause("delivery coordinates", err))
	}
	if schedule.PickupAt.IsZero() {
		validationErrs = append(validationErrs, errs.NewValueIsRequiredError("scheduled pickup at"))
	}
	if schedule.DeliveryAt.IsZero() {
		validationErrs = append(validationErrs, errs.NewValueIsRequiredError("scheduled delivery at"))
	}
	if err := errors.Join(validationErrs...); err != nil {
		return CreateDeliveryCommand{}, err
	}

	return CreateDeliveryCommand{
		deliveryID: deliveryID,
		priority:   priority,
		pickup:     pickup,
		dropoff:    dropoff,
		schedule:   schedule,
		actor:      strings.TrimSpace(actor),
		guard:      guard.NewConstructorGuard(),
	}, nil
}

func (c *CreateDeliveryCommand) Validate() error {
	return c.guard.Validate(ErrCreateDeliveryCommandIsNotConstructed)
}

func (c *CreateDeliveryCommand) DeliveryID() kernel.UUID {
	return c.deliveryID
}

func (c *CreateDeliveryCommand) Priority() delivery.Priority {
	return c.priority
}

func (c *CreateDeliveryCommand) Pickup() kernel.Coordinates {
	return c.pickup
}

func (c *CreateDeliveryCommand) Dropoff() kernel.Coordinates {
	return c.dropoff
}

func (c *CreateDeliveryCommand) Schedule() delivery.Schedule {
	return c.schedule
}

func (c *CreateDeliveryCommand) Actor() string {
	return c.actor
}
