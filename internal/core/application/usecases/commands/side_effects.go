package commands

import (
	"context"
	"log/slog"

	"lastmile/internal/core/domain/services"
	"lastmile/internal/core/ports"
)

// SideEffects runs the work that follows a successful commit: transition
// hooks (notifications, metrics) and the audit trail. Failures are logged and
// never undo the committed change.
type SideEffects struct {
	hooks  []ports.TransitionHook
	audit  ports.AuditSink
	policy services.AuditPolicy
	logger *slog.Logger
}

// NewSideEffects wires the post-commit collaborators. audit may be nil.
func NewSideEffects(
	logger *slog.Logger,
	policy services.AuditPolicy,
	audit ports.AuditSink,
	hooks ...ports.TransitionHook,
) SideEffects {
	return SideEffects{
		hooks:  hooks,
		audit:  audit,
		policy: policy,
		logger: logger.With("component", "post_commit"),
	}
}

func (s SideEffects) transitioned(ctx context.Context, event ports.TransitionEvent, change services.EntityChange) {
	for _, hook := range s.hooks {
		if err := hook.AfterTransition(ctx, event); err != nil {
			s.logger.ErrorContext(ctx, "Transition hook failed",
				"delivery_id", event.Transition.DeliveryID.String(),
				"from", event.Transition.From.String(),
				"to", event.Transition.To.String(),
				"error", err)
		}
	}
	s.audited(ctx, change)
}

func (s SideEffects) audited(ctx context.Context, change services.EntityChange) {
	if s.audit == nil {
		return
	}
	record, ok := s.policy.Decide(change)
	if !ok {
		return
	}
	if err := s.audit.Write(ctx, record); err != nil {
		s.logger.ErrorContext(ctx, "Audit write failed",
			"entity", change.Entity, "entity_id", change.EntityID, "error", err)
	}
}
