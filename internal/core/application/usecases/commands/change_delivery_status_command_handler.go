package commands

import (
	"context"

	"lastmile/internal/core/domain/model/delivery"
	"lastmile/internal/core/domain/services"
)

// ChangeDeliveryStatusCommandHandler validates and applies a status change.
//
// The table check runs before the business constraints so that an
// impossible move is always reported as *delivery.InvalidTransitionError.
// A *errs.WriteConflictError from the repository is returned as is; the
// caller re-reads and decides again.
//
// Example:
//
//	handler := NewChangeDeliveryStatusCommandHandler(uowFactory,
//	    delivery.DefaultTransitionValidator(), services.DefaultDeliveryConstraintChecker(), effects)
//	res, err := handler.Handle(ctx, cmd)
//	var invalid *delivery.InvalidTransitionError
//	if errors.As(err, &invalid) {
//	    log.Printf("allowed next: %v", invalid.AllowedTransitions)
//	}
type ChangeDeliveryStatusCommandHandler struct {
	uowFactory UoWFactory
	validator  delivery.TransitionValidator
	checker    services.DeliveryConstraintChecker
	effects    SideEffects
}

func NewChangeDeliveryStatusCommandHandler(
	uowFactory UoWFactory,
	validator delivery.TransitionValidator,
	checker services.DeliveryConstraintChecker,
	effects SideEffects,
) ChangeDeliveryStatusCommandHandler {
	return ChangeDeliveryStatusCommandHandler{
		uowFactory: uowFactory,
		validator:  validator,
		checker:    checker,
		effects:    effects,
	}
}

// Handle runs the change in one unit of work. An accepted same-status
// request skips the business constraints, writes nothing and returns a
// result with Changed() == false.
func (h ChangeDeliveryStatusCommandHandler) Handle(
	ctx context.Context,
	command ChangeDeliveryStatusCommand,
) (TransitionResult, error) {
	if err := command.Validate(); err != nil {
		return TransitionResult{}, err
	}

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return TransitionResult{}, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	d, err := uow.DeliveryRepository().Get(ctx, command.DeliveryID())
	if err != nil {
		return TransitionResult{}, err
	}

	if err = h.validator.Validate(d.Status(), command.To(), command.Options()); err != nil {
		return TransitionResult{}, err
	}
	if d.Status() == command.To() {
		return TransitionResult{Delivery: d, Warnings: []string{}}, nil
	}
	constraints := h.checker.CheckStatusChange(d, command.To())
	if err = constraints.Err(); err != nil {
		return TransitionResult{}, err
	}

	attemptsBefore := d.FailedAttempts()
	driverBefore := uuidString(d.DriverID())

	t, err := d.TransitionTo(command.To(), h.validator, command.Options())
	if err != nil {
		return TransitionResult{}, err
	}

	entry, err := applyTransition(ctx, uow, d, t.Record(command.Actor(), command.Reason(), command.Automatic()))
	if err != nil {
		return TransitionResult{}, err
	}

	if err = uow.Commit(ctx); err != nil {
		return TransitionResult{}, err
	}

	action := services.AuditActionStatusChange
	if t.To == delivery.StatusCancelled {
		action = services.AuditActionCancel
	}
	h.effects.transitioned(ctx, transitionEvent(d, t, entry), statusChange(action, d, t, entry,
		map[string]services.FieldChange{
			"failed_attempts": {Old: attemptsBefore, New: d.FailedAttempts()},
			"driver_id":       {Old: driverBefore, New: uuidString(d.DriverID())},
		}))

	return TransitionResult{Delivery: d, Entry: entry, Warnings: constraints.Warnings}, nil
}
