package commands

import (
	"errors"
	"strings"

	"lastmile/internal/core/domain/model/delivery"
	"lastmile/internal/core/domain/model/kernel"
	"lastmile/internal/pkg/errs"
	"lastmile/internal/pkg/guard"
)

var ErrChangeDeliveryStatusCommandIsNotConstructed = errors.New(
	"ChangeDeliveryStatusCommand must be created via NewChangeDeliveryStatusCommand constructor",
)

// ChangeDeliveryStatusCommand requests a move to a new lifecycle status.
//
// The target status is not checked here: an unknown target is reported by
// the transition validator as *delivery.UnknownStatusError.
type ChangeDeliveryStatusCommand struct {
	deliveryID kernel.UUID
	to         delivery.Status
	actor      string
	reason     string
	opts       delivery.TransitionOptions
	automatic  bool

	guard guard.ConstructorGuard
}

// NewChangeDeliveryStatusCommand creates a status change request.
// automatic marks changes made by the system rather than a person.
func NewChangeDeliveryStatusCommand(
	deliveryID kernel.UUID,
	to delivery.Status,
	actor, reason string,
	opts delivery.TransitionOptions,
	automatic bool,
) (ChangeDeliveryStatusCommand, error) {
	if err := deliveryID.Validate(); err != nil {
		return ChangeDeliveryStatusCommand{}, errs.NewValueIsRequiredErrorWithCause("delivery id", err)
	}
	if err := validateReason(reason); err != nil {
		return ChangeDeliveryStatusCommand{}, err
	}

	return ChangeDeliveryStatusCommand{
		deliveryID: deliveryID,
		to:         to,
		actor:      strings.TrimSpace(actor),
		reason:     strings.TrimSpace(reason),
		opts:       opts,
		automatic:  automatic,
		guard:      guard.NewConstructorGuard(),
	}, nil
}

func (c *ChangeDeliveryStatusCommand) Validate() error {
	return c.guard.Validate(ErrChangeDeliveryStatusCommandIsNotConstructed)
}

func (c *ChangeDeliveryStatusCommand) DeliveryID() kernel.UUID {
	return c.deliveryID
}

func (c *ChangeDeliveryStatusCommand) To() delivery.Status {
	return c.to
}

func (c *ChangeDeliveryStatusCommand) Actor() string {
	return c.actor
}

func (c *ChangeDeliveryStatusCommand) Reason() string {
	return c.reason
}

func (c *ChangeDeliveryStatusCommand) Options() delivery.TransitionOptions {
	return c.opts
}

func (c *ChangeDeliveryStatusCommand) Automatic() bool {
	return c.automatic
}
