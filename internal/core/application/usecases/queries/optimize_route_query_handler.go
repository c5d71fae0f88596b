package queries

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"lastmile/internal/core/domain/model/delivery"
	"lastmile/internal/core/domain/model/kernel"
	"lastmile/internal/core/domain/services"
	"lastmile/internal/core/ports"
	"lastmile/internal/pkg/errs"
)

const routeCacheKeyPrefix = "route:"

// ErrDeliveryIsNotRoutable is the cause reported for a delivered or
// cancelled delivery named in a route request.
var ErrDeliveryIsNotRoutable = errors.New("delivery is finished and cannot be routed")

// Stop is a route stop together with the status it was read in.
type Stop struct {
	services.RouteStop
	Status delivery.Status
}

// StopSource loads route stops. The stop coordinates are the pickup point
// until the parcel is collected and the delivery point afterwards.
type StopSource interface {
	// StopsByDeliveryIDs returns one stop per id, whatever its status, or
	// *errs.ObjectNotFoundError.
	StopsByDeliveryIDs(ctx context.Context, ids []kernel.UUID) ([]Stop, error)

	// StopsByDriver returns the stops of the driver's active deliveries.
	StopsByDriver(ctx context.Context, driverID kernel.UUID) ([]Stop, error)
}

type OptimizeRouteQueryResponse struct {
	Route    services.OptimizedRoute
	CacheHit bool
}

// OptimizeRouteQueryHandler sequences a batch of stops. Batches larger than
// maxStops are refused before the optimizer runs. Results are cached by a
// hash of the stops and the start position; cache failures are logged and
// never fail the query.
type OptimizeRouteQueryHandler struct {
	source    StopSource
	optimizer services.RouteOptimizer
	maxStops  int
	cache     ports.RouteCache
	observer  ports.RouteObserver
	logger    *slog.Logger
}

// NewOptimizeRouteQueryHandler creates the handler. cache and observer may
// be nil; maxStops < 1 means no limit.
func NewOptimizeRouteQueryHandler(
	source StopSource,
	optimizer services.RouteOptimizer,
	maxStops int,
	cache ports.RouteCache,
	observer ports.RouteObserver,
	logger *slog.Logger,
) OptimizeRouteQueryHandler {
	return OptimizeRouteQueryHandler{
		source:    source,
		optimizer: optimizer,
		maxStops:  maxStops,
		cache:     cache,
		observer:  observer,
		logger:    logger.With("component", "route_optimizer"),
	}
}

func (h OptimizeRouteQueryHandler) Handle(ctx context.Context, query OptimizeRouteQuery) (OptimizeRouteQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return OptimizeRouteQueryResponse{}, err
	}

	var (
		loaded []Stop
		err    error
	)
	if driverID := query.DriverID(); driverID != nil {
		loaded, err = h.source.StopsByDriver(ctx, *driverID)
	} else {
		loaded, err = h.source.StopsByDeliveryIDs(ctx, query.DeliveryIDs())
	}
	if err != nil {
		return OptimizeRouteQueryResponse{}, err
	}
	stops, err := routableStops(loaded)
	if err != nil {
		return OptimizeRouteQueryResponse{}, err
	}

	if h.maxStops > 0 && len(stops) > h.maxStops {
		return OptimizeRouteQueryResponse{}, errs.NewValueIsOutOfRangeError("route stops", len(stops), 0, h.maxStops)
	}

	key, err := routeCacheKey(stops, query.Start())
	if err != nil {
		return OptimizeRouteQueryResponse{}, err
	}

	if h.cache != nil {
		cached, ok, cacheErr := h.cache.Get(ctx, key)
		if cacheErr != nil {
			h.logger.WarnContext(ctx, "Route cache read failed", "key", key, "error", cacheErr)
		}
		if ok {
			h.observe(len(stops), cached.TotalDistanceKm, true)
			return OptimizeRouteQueryResponse{Route: cached, CacheHit: true}, nil
		}
	}

	route, err := h.optimizer.Optimize(stops, query.Start())
	if err != nil {
		return OptimizeRouteQueryResponse{}, err
	}

	if h.cache != nil {
		if cacheErr := h.cache.Set(ctx, key, route); cacheErr != nil {
			h.logger.WarnContext(ctx, "Route cache write failed", "key", key, "error", cacheErr)
		}
	}
	h.observe(len(stops), route.TotalDistanceKm, false)

	return OptimizeRouteQueryResponse{Route: route}, nil
}

func (h OptimizeRouteQueryHandler) observe(stops int, distanceKm float64, cacheHit bool) {
	if h.observer != nil {
		h.observer.ObserveOptimization(stops, distanceKm, cacheHit)
	}
}

// routableStops refuses DELIVERED and CANCELLED deliveries: they have no
// stop left to visit.
func routableStops(loaded []Stop) ([]services.RouteStop, error) {
	stops := make([]services.RouteStop, 0, len(loaded))
	var problems []error
	for _, s := range loaded {
		if s.Status.IsTerminal() {
			problems = append(problems, errs.NewValueIsInvalidErrorWithCause("delivery id",
				fmt.Errorf("%w: %s is %s", ErrDeliveryIsNotRoutable, s.DeliveryID, s.Status)))
			continue
		}
		stops = append(stops, s.RouteStop)
	}
	if err := errors.Join(problems...); err != nil {
		return nil, err
	}
	return stops, nil
}

type cacheKeyStop struct {
	ID       string  `json:"id"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Priority string  `json:"p"`
	Service  float64 `json:"s"`
}

type cacheKeyInput struct {
	Stops []cacheKeyStop `json:"stops"`
	Start *[2]float64    `json:"start,omitempty"`
}

// routeCacheKey hashes every optimizer input in the order given, since the
// order decides priority ties.
func routeCacheKey(stops []services.RouteStop, start *kernel.Coordinates) (string, error) {
	in := cacheKeyInput{Stops: make([]cacheKeyStop, 0, len(stops))}
	for _, s := range stops {
		in.Stops = append(in.Stops, cacheKeyStop{
			ID:       s.DeliveryID.String(),
			Lat:      s.Coordinates.Latitude(),
			Lon:      s.Coordinates.Longitude(),
			Priority: s.Priority.String(),
			Service:  s.EstimatedServiceMinutes,
		})
	}
	if start != nil {
		in.Start = &[2]float64{start.Latitude(), start.Longitude()}
	}

	raw, err := json.Marshal(in)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return routeCacheKeyPrefix + hex.EncodeToString(sum[:]), nil
}
