// Package audit writes audit records to a structured log stream.
package audit

import (
	"context"
	"log/slog"

	"lastmile/internal/core/domain/services"
	"lastmile/internal/core/ports"
)

// SlogSink logs each record at info level under the "audit" component.
type SlogSink struct {
	logger *slog.Logger
}

var _ ports.AuditSink = (*SlogSink)(nil)

func NewSlogSink(logger *slog.Logger) *SlogSink {
	return &SlogSink{logger: logger.With("component", "audit")}
}

func (s *SlogSink) Write(ctx context.Context, record services.AuditRecord) error {
	fields := make([]any, 0, len(record.Fields))
	for _, f := range record.Fields {
		fields = append(fields, slog.Group(f.Name, "old", f.Old, "new", f.New))
	}

	s.logger.InfoContext(ctx, "Entity changed",
		"entity", record.Entity,
		"entity_id", record.EntityID,
		"action", string(record.Action),
		"actor", record.Actor,
		"automatic", record.Automatic,
		"at", record.At,
		slog.Group("fields", fields...),
	)
	return nil
}
