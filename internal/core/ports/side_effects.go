package ports

import (
	"context"
	"time"

	"lastmile/internal/core/domain/model/delivery"
	"lastmile/internal/core/domain/services"
)

// TransitionEvent describes a committed status change.
type TransitionEvent struct {
	// Delivery is the aggregate state after the commit.
	Delivery   *delivery.Delivery
	Transition delivery.Transition
	Entry      *delivery.StatusHistoryEntry
	OccurredAt time.Time
}

// TransitionHook is invoked explicitly after a transition has been committed.
// Errors are logged by the caller; the transition is never undone.
type TransitionHook interface {
	AfterTransition(ctx context.Context, event TransitionEvent) error
}

// AuditSink writes audit records decided by services.AuditPolicy.
type AuditSink interface {
	Write(ctx context.Context, record services.AuditRecord) error
}
