package queries

import (
	"context"

	"lastmile/internal/core/domain/model/delivery"
	"lastmile/internal/core/domain/services"
	"lastmile/internal/core/ports"
)

type GetStatusHistoryQueryResponse struct {
	Delivery *delivery.Delivery
	// Entries are ordered oldest first; the first one is the creation entry.
	Entries []*delivery.StatusHistoryEntry
}

// GetStatusHistoryQueryHandler returns a delivery and its ledger.
// An unknown delivery is *errs.ObjectNotFoundError rather than an empty history.
type GetStatusHistoryQueryHandler struct {
	deliveries ports.DeliveryRepository
	history    ports.StatusHistoryRepository
}

func NewGetStatusHistoryQueryHandler(
	deliveries ports.DeliveryRepository,
	history ports.StatusHistoryRepository,
) GetStatusHistoryQueryHandler {
	return GetStatusHistoryQueryHandler{deliveries: deliveries, history: history}
}

func (h GetStatusHistoryQueryHandler) Handle(
	ctx context.Context,
	query GetStatusHistoryQuery,
) (GetStatusHistoryQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return GetStatusHistoryQueryResponse{}, err
	}

	d, err := h.deliveries.Get(ctx, query.DeliveryID())
	if err != nil {
		return GetStatusHistoryQueryResponse{}, err
	}

	ledger, err := services.NewStatusHistoryLedger(h.history, nil)
	if err != nil {
		return GetStatusHistoryQueryResponse{}, err
	}
	entries, err := ledger.HistoryFor(ctx, d.ID())
	if err != nil {
		return GetStatusHistoryQueryResponse{}, err
	}
	if entries == nil {
		entries = []*delivery.StatusHistoryEntry{}
	}

	return GetStatusHistoryQueryResponse{Delivery: d, Entries: entries}, nil
}
