package commands

import (
	"errors"
	"strings"

	"lastmile/internal/core/domain/model/kernel"
	"lastmile/internal/pkg/errs"
	"lastmile/internal/pkg/guard"
)

var ErrCancelDeliveryCommandIsNotConstructed = errors.New(
	"CancelDeliveryCommand must be created via NewCancelDeliveryCommand constructor",
)

// CancelDeliveryCommand requests cancellation. Force bypasses the transition
// table (not the cancellation rules) and is meant for operators only.
type CancelDeliveryCommand struct {
	deliveryID kernel.UUID
	actor      string
	reason     string
	force      bool

	guard guard.ConstructorGuard
}

func NewCancelDeliveryCommand(deliveryID kernel.UUID, actor, reason string, force bool) (CancelDeliveryCommand, error) {
	if err := deliveryID.Validate(); err != nil {
		return CancelDeliveryCommand{}, errs.NewValueIsRequiredErrorWithCause("delivery id", err)
	}
	if err := validateReason(reason); err != nil {
		return CancelDeliveryCommand{}, err
	}

	return CancelDeliveryCommand{
		deliveryID: deliveryID,
		actor:      strings.TrimSpace(actor),
		reason:     strings.TrimSpace(reason),
		force:      force,
		guard:      guard.NewConstructorGuard(),
	}, nil
}

func (c *CancelDeliveryCommand) Validate() error {
	return c.guard.Validate(ErrCancelDeliveryCommandIsNotConstructed)
}

func (c *CancelDeliveryCommand) DeliveryID() kernel.UUID {
	return c.deliveryID
}

func (c *CancelDeliveryCommand) Actor() string {
	return c.actor
}

func (c *CancelDeliveryCommand) Reason() string {
	return c.reason
}

func (c *CancelDeliveryCommand) Force() bool {
	return c.force
}
