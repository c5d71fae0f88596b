// Package queries contains read operations: route sequencing for a set of
// deliveries and the status history of one delivery.
package queries

import (
	"errors"
	"fmt"

	"lastmile/internal/core/domain/model/kernel"
	"lastmile/internal/pkg/errs"
	"lastmile/internal/pkg/guard"
)

var ErrOptimizeRouteQueryIsNotConstructed = errors.New(
	"OptimizeRouteQuery must be created via NewOptimizeRouteQuery constructor",
)

// OptimizeRouteQuery asks for the visiting order of either an explicit list
// of deliveries or every active delivery of one driver.
//
// Example:
//
//	query, err := NewOptimizeRouteQuery(nil, &driverID, &depot)
//	resp, err := handler.Handle(ctx, query)
//	for i, id := range resp.Route.OrderedStopIDs {
//	    fmt.Printf("%d. %s\n", i+1, id)
//	}
type OptimizeRouteQuery struct {
	deliveryIDs []kernel.UUID
	driverID    *kernel.UUID
	start       *kernel.Coordinates

	guard guard.ConstructorGuard
}

// NewOptimizeRouteQuery requires exactly one of deliveryIDs and driverID.
// start is optional.
func NewOptimizeRouteQuery(
	deliveryIDs []kernel.UUID,
	driverID *kernel.UUID,
	start *kernel.Coordinates,
) (OptimizeRouteQuery, error) {
	if (len(deliveryIDs) == 0) == (driverID == nil) {
		return OptimizeRouteQuery{}, errs.NewValueIsInvalidErrorWithCause(
			"route selection", errors.New("give either delivery ids or a driver id"))
	}

	q := OptimizeRouteQuery{guard: guard.NewConstructorGuard()}

	if driverID != nil {
		if err := driverID.Validate(); err != nil {
			return OptimizeRouteQuery{}, errs.NewValueIsRequiredErrorWithCause("driver id", err)
		}
		id := *driverID
		q.driverID = &id
	}

	seen := make(map[kernel.UUID]struct{}, len(deliveryIDs))
	for i, id := range deliveryIDs {
		if err := id.Validate(); err != nil {
			return OptimizeRouteQuery{}, errs.NewValueIsRequiredErrorWithCause(fmt.Sprintf("delivery id #%d", i), err)
		}
		if _, dup := seen[id]; dup {
			return OptimizeRouteQuery{}, errs.NewValueIsInvalidErrorWithCause(
				"delivery ids", fmt.Errorf("%s is listed twice", id))
		}
		seen[id] = struct{}{}
	}
	q.deliveryIDs = append([]kernel.UUID(nil), deliveryIDs...)

	if start != nil {
		if err := start.Validate(); err != nil {
			return OptimizeRouteQuery{}, errs.NewValueIsInvalidErrorWithCause("start coordinates", err)
		}
		s := *start
		q.start = &s
	}

	return q, nil
}

func (q *OptimizeRouteQuery) Validate() error {
	return q.guard.Validate(ErrOptimizeRouteQueryIsNotConstructed)
}

func (q *OptimizeRouteQuery) DeliveryIDs() []kernel.UUID {
	return q.deliveryIDs
}

// DriverID returns nil when the query lists deliveries explicitly.
func (q *OptimizeRouteQuery) DriverID() *kernel.UUID {
	return q.driverID
}

func (q *OptimizeRouteQuery) Start() *kernel.Coordinates {
	return q.start
}
