package commands

import (
	"context"

	"lastmile/internal/core/domain/model/delivery"
	"lastmile/internal/core/domain/model/kernel"
	"lastmile/internal/core/domain/services"
)

// AssignDriverCommandHandler checks the assignment rules against the
// driver's current workload and moves the delivery to ASSIGNED.
//
// Reassigning an ASSIGNED delivery is recorded as an ASSIGNED -> ASSIGNED
// history entry. Repeating the current assignment writes nothing.
// Constraint warnings (reassignment, overlapping windows) are returned in
// the result and never block.
type AssignDriverCommandHandler struct {
	uowFactory UoWFactory
	validator  delivery.TransitionValidator
	checker    services.DeliveryConstraintChecker
	effects    SideEffects
}

func NewAssignDriverCommandHandler(
	uowFactory UoWFactory,
	validator delivery.TransitionValidator,
	checker services.DeliveryConstraintChecker,
	effects SideEffects,
) AssignDriverCommandHandler {
	return AssignDriverCommandHandler{
		uowFactory: uowFactory,
		validator:  validator,
		checker:    checker,
		effects:    effects,
	}
}

func (h AssignDriverCommandHandler) Handle(ctx context.Context, command AssignDriverCommand) (TransitionResult, error) {
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

	repo := uow.DeliveryRepository()

	d, err := repo.Get(ctx, command.DeliveryID())
	if err != nil {
		return TransitionResult{}, err
	}

	workload, err := repo.FindActiveByDriver(ctx, command.DriverID())
	if err != nil {
		return TransitionResult{}, err
	}

	constraints := h.checker.CheckAssignable(d, command.DriverID(), workload)
	if err = constraints.Err(); err != nil {
		return TransitionResult{}, err
	}

	driverBefore, vehicleBefore := d.DriverID(), d.VehicleID()

	t, err := d.AssignDriver(command.DriverID(), command.VehicleID(), h.validator, delivery.TransitionOptions{})
	if err != nil {
		return TransitionResult{}, err
	}
	if t.IsNoop() && sameUUID(driverBefore, d.DriverID()) && sameUUID(vehicleBefore, d.VehicleID()) {
		return TransitionResult{Delivery: d, Warnings: constraints.Warnings}, nil
	}

	entry, err := applyTransition(ctx, uow, d, t.Record(command.Actor(), command.Reason(), false))
	if err != nil {
		return TransitionResult{}, err
	}

	if err = uow.Commit(ctx); err != nil {
		return TransitionResult{}, err
	}

	h.effects.transitioned(ctx, transitionEvent(d, t, entry), statusChange(services.AuditActionAssign, d, t, entry,
		map[string]services.FieldChange{
			"driver_id":  {Old: uuidString(driverBefore), New: uuidString(d.DriverID())},
			"vehicle_id": {Old: uuidString(vehicleBefore), New: uuidString(d.VehicleID())},
		}))

	return TransitionResult{Delivery: d, Entry: entry, Warnings: constraints.Warnings}, nil
}

func sameUUID(a, b *kernel.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.IsEqual(*b)
}
