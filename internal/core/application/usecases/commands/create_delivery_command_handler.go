package commands

import (
	"context"
	"time"

	"lastmile/internal/core/domain/model/delivery"
	"lastmile/internal/core/domain/services"
)

const creationReason = "delivery created"

// CreateDeliveryCommandHandler stores a new PENDING delivery together with
// its creation history entry (From == nil).
type CreateDeliveryCommandHandler struct {
	uowFactory UoWFactory
	effects    SideEffects
	now        func() time.Time
}

// NewCreateDeliveryCommandHandler creates the handler. A nil clock uses time.Now.
func NewCreateDeliveryCommandHandler(
	uowFactory UoWFactory,
	effects SideEffects,
	clock func() time.Time,
) CreateDeliveryCommandHandler {
	if clock == nil {
		clock = time.Now
	}
	return CreateDeliveryCommandHandler{
		uowFactory: uowFactory,
		effects:    effects,
		now:        clock,
	}
}

// Handle creates the delivery and returns it with the creation entry.
func (h CreateDeliveryCommandHandler) Handle(ctx context.Context, command CreateDeliveryCommand) (TransitionResult, error) {
	if err := command.Validate(); err != nil {
		return TransitionResult{}, err
	}

	d, err := delivery.NewDelivery(
		command.DeliveryID(),
		delivery.NewTrackingCode(),
		command.Priority(),
		command.Pickup(),
		command.Dropoff(),
		command.Schedule(),
		h.now(),
	)
	if err != nil {
		return TransitionResult{}, err
	}

	uow := h.uowFactory.Create()
	if err = uow.Begin(ctx); err != nil {
		return TransitionResult{}, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	if err = uow.DeliveryRepository().Add(ctx, d); err != nil {
		return TransitionResult{}, err
	}

	ledger, err := services.NewStatusHistoryLedger(uow.StatusHistoryRepository(), h.now)
	if err != nil {
		return TransitionResult{}, err
	}
	entry, err := ledger.Record(ctx, delivery.TransitionRecord{
		DeliveryID: d.ID(),
		To:         delivery.StatusPending,
		ChangedBy:  command.Actor(),
		Reason:     creationReason,
	})
	if err != nil {
		return TransitionResult{}, err
	}

	if err = uow.Commit(ctx); err != nil {
		return TransitionResult{}, err
	}

	h.effects.audited(ctx, services.EntityChange{
		Entity:   deliveryEntity,
		EntityID: d.ID().String(),
		Action:   services.AuditActionCreate,
		Actor:    entry.ChangedBy(),
		Fields: map[string]services.FieldChange{
			"tracking_code": {New: d.TrackingCode().String()},
			"status":        {New: d.Status().String()},
			"priority":      {New: d.Priority().String()},
		},
		At: entry.ChangedAt(),
	})

	return TransitionResult{Delivery: d, Entry: entry, Warnings: []string{}}, nil
}
