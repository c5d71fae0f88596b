package commands

import (
	"context"
	"errors"
	"sort"
	"time"

	"lastmile/internal/core/domain/model/delivery"
	"lastmile/internal/core/domain/model/kernel"
	"lastmile/internal/core/domain/services"
	"lastmile/internal/pkg/errs"
)

const estimatorActor = "route-estimator"

// RefreshRouteEstimatesResult counts what one refresh run did.
type RefreshRouteEstimatesResult struct {
	Drivers   int
	Updated   int
	Conflicts int
	// Skipped counts drivers whose active set exceeds the stop limit.
	Skipped int
}

// RefreshRouteEstimatesCommandHandler sequences each driver's active
// deliveries and writes the leg that reaches each stop into the delivery's
// estimates. The stop is the pickup point until the parcel is collected and
// the delivery point afterwards.
//
// Every driver is written in its own unit of work. A delivery changed
// concurrently is counted as a conflict and left for the next run.
type RefreshRouteEstimatesCommandHandler struct {
	uowFactory UoWFactory
	optimizer  services.RouteOptimizer
	maxStops   int
	effects    SideEffects
	now        func() time.Time
}

// NewRefreshRouteEstimatesCommandHandler creates the handler. maxStops < 1
// means no limit; a nil clock uses time.Now.
func NewRefreshRouteEstimatesCommandHandler(
	uowFactory UoWFactory,
	optimizer services.RouteOptimizer,
	maxStops int,
	effects SideEffects,
	clock func() time.Time,
) RefreshRouteEstimatesCommandHandler {
	if clock == nil {
		clock = time.Now
	}
	return RefreshRouteEstimatesCommandHandler{
		uowFactory: uowFactory,
		optimizer:  optimizer,
		maxStops:   maxStops,
		effects:    effects,
		now:        clock,
	}
}

func (h RefreshRouteEstimatesCommandHandler) Handle(
	ctx context.Context,
	command RefreshRouteEstimatesCommand,
) (RefreshRouteEstimatesResult, error) {
	var result RefreshRouteEstimatesResult
	if err := command.Validate(); err != nil {
		return result, err
	}

	active, err := h.uowFactory.Create().DeliveryRepository().FindAllActive(ctx)
	if err != nil {
		return result, err
	}

	for _, batch := range groupByDriver(active) {
		result.Drivers++
		if h.maxStops > 0 && len(batch) > h.maxStops {
			result.Skipped++
			continue
		}

		updated, conflicts, err := h.refreshDriver(ctx, batch)
		if err != nil {
			return result, err
		}
		result.Updated += updated
		result.Conflicts += conflicts
	}

	return result, nil
}

func (h RefreshRouteEstimatesCommandHandler) refreshDriver(
	ctx context.Context,
	batch []*delivery.Delivery,
) (updated, conflicts int, err error) {
	stops := make([]services.RouteStop, 0, len(batch))
	byID := make(map[kernel.UUID]*delivery.Delivery, len(batch))
	for _, d := range batch {
		byID[d.ID()] = d
		stops = append(stops, services.RouteStop{
			DeliveryID:              d.ID(),
			Coordinates:             d.NextStopCoordinates(),
			Priority:                d.Priority(),
			EstimatedServiceMinutes: d.ServiceMinutes(),
		})
	}

	route, err := h.optimizer.Optimize(stops, nil)
	if err != nil {
		return 0, 0, err
	}

	uow := h.uowFactory.Create()
	if err = uow.Begin(ctx); err != nil {
		return 0, 0, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	repo := uow.DeliveryRepository()
	changes := make([]services.EntityChange, 0, len(route.Legs))
	for _, leg := range route.Legs {
		d := byID[leg.DeliveryID]
		distance := kernel.RoundTo(leg.DistanceKm, 2)

		change := services.EntityChange{
			Entity:    deliveryEntity,
			EntityID:  d.ID().String(),
			Action:    services.AuditActionEstimate,
			Actor:     estimatorActor,
			Automatic: true,
			Fields: map[string]services.FieldChange{
				"estimated_distance_km":      {Old: floatValue(d.EstimatedDistanceKm()), New: distance},
				"estimated_duration_minutes": {Old: floatValue(d.EstimatedDurationMinutes()), New: leg.Minutes},
			},
			At: h.now().UTC(),
		}

		if err = d.SetEstimates(distance, leg.Minutes); err != nil {
			return 0, 0, err
		}
		err = repo.Update(ctx, d)
		if errors.Is(err, errs.ErrWriteConflict) {
			conflicts++
			continue
		}
		if err != nil {
			return 0, 0, err
		}
		updated++
		changes = append(changes, change)
	}

	if err = uow.Commit(ctx); err != nil {
		return 0, 0, err
	}

	for _, change := range changes {
		h.effects.audited(ctx, change)
	}

	return updated, conflicts, nil
}

// groupByDriver returns the deliveries of each driver, drivers in id order.
// Deliveries without a driver are ignored.
func groupByDriver(deliveries []*delivery.Delivery) [][]*delivery.Delivery {
	groups := make(map[string][]*delivery.Delivery)
	for _, d := range deliveries {
		if d == nil || d.DriverID() == nil {
			continue
		}
		key := d.DriverID().String()
		groups[key] = append(groups[key], d)
	}

	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	batches := make([][]*delivery.Delivery, 0, len(keys))
	for _, key := range keys {
		batches = append(batches, groups[key])
	}
	return batches
}

func floatValue(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
