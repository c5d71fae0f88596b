package queries

import (
	"errors"

	"lastmile/internal/core/domain/model/kernel"
	"lastmile/internal/pkg/errs"
	"lastmile/internal/pkg/guard"
)

var ErrGetStatusHistoryQueryIsNotConstructed = errors.New(
	"GetStatusHistoryQuery must be created via NewGetStatusHistoryQuery constructor",
)

// GetStatusHistoryQuery reads the status history of one delivery.
type GetStatusHistoryQuery struct {
	deliveryID kernel.UUID

	guard guard.ConstructorGuard
}

func NewGetStatusHistoryQuery(deliveryID kernel.UUID) (GetStatusHistoryQuery, error) {
	if err := deliveryID.Validate(); err != nil {
		return GetStatusHistoryQuery{}, errs.NewValueIsRequiredErrorWithCause("delivery id", err)
	}
	return GetStatusHistoryQuery{
		deliveryID: deliveryID,
		guard:      guard.NewConstructorGuard(),
	}, nil
}

func (q *GetStatusHistoryQuery) Validate() error {
	return q.guard.Validate(ErrGetStatusHistoryQueryIsNotConstructed)
}

func (q *GetStatusHistoryQuery) DeliveryID() kernel.UUID {
	return q.deliveryID
}
