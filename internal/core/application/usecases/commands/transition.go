package commands

import (
	"context"
	"strings"

	"lastmile/internal/core/domain/model/delivery"
	"lastmile/internal/core/domain/model/kernel"
	"lastmile/internal/core/domain/services"
	"lastmile/internal/core/ports"
	"lastmile/internal/pkg/errs"
)

const deliveryEntity = "delivery"

// TransitionResult is what a state-changing handler returns.
type TransitionResult struct {
	Delivery *delivery.Delivery
	// Entry is nil when nothing was written (accepted same-status request).
	Entry    *delivery.StatusHistoryEntry
	Warnings []string
}

// Changed reports whether the handler persisted a transition.
func (r TransitionResult) Changed() bool {
	return r.Entry != nil
}

// applyTransition writes the delivery (version checked) and appends its
// history entry through the same unit of work. The caller commits.
// The entry must continue the stored history, otherwise
// services.ErrHistoryChainBroken is returned before anything is written.
func applyTransition(
	ctx context.Context,
	uow UoW,
	d *delivery.Delivery,
	rec delivery.TransitionRecord,
) (*delivery.StatusHistoryEntry, error) {
	ledger, err := services.NewStatusHistoryLedger(uow.StatusHistoryRepository(), nil)
	if err != nil {
		return nil, err
	}
	if err = ledger.Seed(ctx, d.ID()); err != nil {
		return nil, err
	}
	if err = uow.DeliveryRepository().Update(ctx, d); err != nil {
		return nil, err
	}
	return ledger.Record(ctx, rec)
}

func transitionEvent(d *delivery.Delivery, t delivery.Transition, entry *delivery.StatusHistoryEntry) ports.TransitionEvent {
	return ports.TransitionEvent{
		Delivery:   d,
		Transition: t,
		Entry:      entry,
		OccurredAt: entry.ChangedAt(),
	}
}

func statusChange(
	action services.AuditAction,
	d *delivery.Delivery,
	t delivery.Transition,
	entry *delivery.StatusHistoryEntry,
	fields map[string]services.FieldChange,
) services.EntityChange {
	if fields == nil {
		fields = map[string]services.FieldChange{}
	}
	fields["status"] = services.FieldChange{Old: t.From.String(), New: t.To.String()}
	return services.EntityChange{
		Entity:    deliveryEntity,
		EntityID:  d.ID().String(),
		Action:    action,
		Actor:     entry.ChangedBy(),
		Automatic: entry.Automatic(),
		Fields:    fields,
		At:        entry.ChangedAt(),
	}
}

func uuidString(id *kernel.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

func validateReason(reason string) error {
	if len(strings.TrimSpace(reason)) > delivery.MaxReasonLength {
		return errs.NewValueIsOutOfRangeError("reason length", len(reason), 0, delivery.MaxReasonLength)
	}
	return nil
}
