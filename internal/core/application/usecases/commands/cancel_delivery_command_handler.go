package commands

import (
	"context"

	"lastmile/internal/core/domain/model/delivery"
	"lastmile/internal/core/domain/services"
)

// CancelDeliveryCommandHandler applies the cancellation rules first, then the
// transition table. PICKED_UP and IN_TRANSIT pass the rules but the default
// table only lets them through with a forced cancel.
type CancelDeliveryCommandHandler struct {
	uowFactory UoWFactory
	validator  delivery.TransitionValidator
	checker    services.DeliveryConstraintChecker
	effects    SideEffects
}

func NewCancelDeliveryCommandHandler(
	uowFactory UoWFactory,
	validator delivery.TransitionValidator,
	checker services.DeliveryConstraintChecker,
	effects SideEffects,
) CancelDeliveryCommandHandler {
	return CancelDeliveryCommandHandler{
		uowFactory: uowFactory,
		validator:  validator,
		checker:    checker,
		effects:    effects,
	}
}

func (h CancelDeliveryCommandHandler) Handle(ctx context.Context, command CancelDeliveryCommand) (TransitionResult, error) {
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

	constraints := h.checker.CheckCancellable(d)
	if err = constraints.Err(); err != nil {
		return TransitionResult{}, err
	}

	t, err := d.TransitionTo(delivery.StatusCancelled, h.validator, delivery.TransitionOptions{
		DisallowSameStatus: true,
		ForceOverride:      command.Force(),
	})
	if err != nil {
		return TransitionResult{}, err
	}

	entry, err := applyTransition(ctx, uow, d, t.Record(command.Actor(), command.Reason(), false))
	if err != nil {
		return TransitionResult{}, err
	}

	if err = uow.Commit(ctx); err != nil {
		return TransitionResult{}, err
	}

	h.effects.transitioned(ctx, transitionEvent(d, t, entry),
		statusChange(services.AuditActionCancel, d, t, entry, nil))

	return TransitionResult{Delivery: d, Entry: entry, Warnings: constraints.Warnings}, nil
}
