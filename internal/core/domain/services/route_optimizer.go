package services

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"lastmile/internal/core/domain/model/delivery"
	"lastmile/internal/core/domain/model/kernel"
	"lastmile/internal/pkg/errs"
)

// ErrDuplicateStop is returned when two stops share a delivery id.
var ErrDuplicateStop = errors.New("duplicate route stop")

// RouteStop is one place to visit. It exists only for a single Optimize call.
type RouteStop struct {
	DeliveryID              kernel.UUID
	Coordinates             kernel.Coordinates
	Priority                delivery.Priority
	EstimatedServiceMinutes float64
}

// RouteLeg is the travel from the previous position to one stop.
type RouteLeg struct {
	DeliveryID kernel.UUID
	DistanceKm float64
	Minutes    float64
}

// OptimizedRoute is the visiting order and its totals.
//
// TotalDistanceKm and TotalTimeMinutes cover travel only. Time spent at
// stops is reported separately in TotalServiceMinutes.
type OptimizedRoute struct {
	OrderedStopIDs      []kernel.UUID
	TotalDistanceKm     float64
	TotalTimeMinutes    float64
	TotalServiceMinutes float64
	Legs                []RouteLeg
}

// RouteOptimizer sequences stops with a priority-weighted nearest neighbour
// heuristic. It is greedy and O(n²): good enough for a driver's batch of
// tens of stops and never globally optimal. Callers bound the batch size.
type RouteOptimizer struct {
	estimator ETAEstimator
	table     PriorityTable
}

// NewRouteOptimizer binds an optimizer to an estimator and priority table.
func NewRouteOptimizer(estimator ETAEstimator, table PriorityTable) (RouteOptimizer, error) {
	if err := table.Validate(); err != nil {
		return RouteOptimizer{}, err
	}
	return RouteOptimizer{estimator: estimator, table: table}, nil
}

// DefaultRouteOptimizer uses the default estimator and priority table.
func DefaultRouteOptimizer() RouteOptimizer {
	return RouteOptimizer{estimator: DefaultETAEstimator(), table: DefaultPriorityTable()}
}

// Optimize returns the visiting order for stops.
//
// Parameters:
//   - stops: Stops to visit; may be empty
//   - start: Optional starting position; when nil the route starts at the
//     first stop after sorting by priority
//
// Returns:
//   - OptimizedRoute: Empty (not an error) when stops is empty
//   - error: For duplicate delivery ids, unconstructed coordinates, unknown
//     priorities or a leg distance the estimator rejects
//
// Algorithm:
//  1. Stable-sort stops by priority, CRITICAL first.
//  2. Repeatedly pick the remaining stop with the smallest
//     haversine(current, stop) * selectionWeight(stop.Priority);
//     ties go to the stop earliest in the sorted order.
//  3. Add the unweighted distance and the destination-priority ETA of each leg.
func (o RouteOptimizer) Optimize(stops []RouteStop, start *kernel.Coordinates) (OptimizedRoute, error) {
	if err := validateStops(stops, start); err != nil {
		return OptimizedRoute{}, err
	}

	route := OptimizedRoute{
		OrderedStopIDs: make([]kernel.UUID, 0, len(stops)),
		Legs:           make([]RouteLeg, 0, len(stops)),
	}
	if len(stops) == 0 {
		return route, nil
	}

	sorted := make([]RouteStop, len(stops))
	copy(sorted, stops)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority.Rank() < sorted[j].Priority.Rank()
	})

	current := sorted[0].Coordinates
	if start != nil {
		current = *start
	}

	visited := make([]bool, len(sorted))
	for range sorted {
		next := o.nearest(current, sorted, visited)
		visited[next] = true
		stop := sorted[next]

		distance := kernel.HaversineKm(current, stop.Coordinates)
		minutes, err := o.estimator.EstimateMinutes(distance, stop.Priority)
		if err != nil {
			return OptimizedRoute{}, err
		}

		route.OrderedStopIDs = append(route.OrderedStopIDs, stop.DeliveryID)
		route.Legs = append(route.Legs, RouteLeg{DeliveryID: stop.DeliveryID, DistanceKm: distance, Minutes: minutes})
		route.TotalDistanceKm += distance
		route.TotalTimeMinutes += minutes
		route.TotalServiceMinutes += stop.EstimatedServiceMinutes

		current = stop.Coordinates
	}

	route.TotalDistanceKm = kernel.RoundTo(route.TotalDistanceKm, 2)
	route.TotalServiceMinutes = kernel.RoundTo(route.TotalServiceMinutes, 2)
	return route, nil
}

// nearest returns the index of the unvisited stop with the smallest weighted
// distance. Strict comparison keeps the earliest index on ties.
func (o RouteOptimizer) nearest(current kernel.Coordinates, stops []RouteStop, visited []bool) int {
	best := -1
	bestScore := math.Inf(1)
	for i, stop := range stops {
		if visited[i] {
			continue
		}
		score := kernel.HaversineKm(current, stop.Coordinates) * o.table.SelectionWeight(stop.Priority)
		if best == -1 || score < bestScore {
			best = i
			bestScore = score
		}
	}
	return best
}

func validateStops(stops []RouteStop, start *kernel.Coordinates) error {
	var problems []error
	if start != nil {
		if err := start.Validate(); err != nil {
			problems = append(problems, errs.NewValueIsInvalidErrorWithCause("start point", err))
		}
	}

	seen := make(map[kernel.UUID]struct{}, len(stops))
	for i, stop := range stops {
		if err := stop.DeliveryID.Validate(); err != nil {
			problems = append(problems, errs.NewValueIsRequiredErrorWithCause(fmt.Sprintf("stops[%d].deliveryId", i), err))
		} else if _, dup := seen[stop.DeliveryID]; dup {
			problems = append(problems, fmt.Errorf("%w: %s", ErrDuplicateStop, stop.DeliveryID))
		}
		seen[stop.DeliveryID] = struct{}{}

		if err := stop.Coordinates.Validate(); err != nil {
			problems = append(problems, errs.NewValueIsInvalidErrorWithCause(fmt.Sprintf("stops[%d].coordinates", i), err))
		}
		if err := stop.Priority.Validate(); err != nil {
			problems = append(problems, errs.NewValueIsInvalidErrorWithCause(fmt.Sprintf("stops[%d].priority", i), err))
		}
		if stop.EstimatedServiceMinutes < 0 || math.IsNaN(stop.EstimatedServiceMinutes) {
			problems = append(problems, errs.NewValueIsOutOfRangeError(
				fmt.Sprintf("stops[%d].estimatedServiceMinutes", i), stop.EstimatedServiceMinutes, 0, "+Inf"))
		}
	}
	return errors.Join(problems...)
}
