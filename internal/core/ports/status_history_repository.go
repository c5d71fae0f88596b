package ports

import (
	"context"

	"lastmile/internal/core/domain/model/delivery"
	"lastmile/internal/core/domain/model/kernel"
)

// StatusHistoryRepository is the append-only store of status history entries.
// There is no update or delete.
type StatusHistoryRepository interface {
	Append(ctx context.Context, entry *delivery.StatusHistoryEntry) error

	// ListByDelivery returns entries ordered by change time, oldest first.
	ListByDelivery(ctx context.Context, deliveryID kernel.UUID) ([]*delivery.StatusHistoryEntry, error)
}
