package ports

import (
	"context"

	"lastmile/internal/core/domain/services"
)

// RouteCache stores optimised routes by a key derived from their input.
// A miss is (zero, false, nil); errors are reserved for backend failures.
type RouteCache interface {
	Get(ctx context.Context, key string) (services.OptimizedRoute, bool, error)
	Set(ctx context.Context, key string, route services.OptimizedRoute) error
}

// RouteObserver records how route optimisation behaves in production.
type RouteObserver interface {
	ObserveOptimization(stops int, distanceKm float64, cacheHit bool)
}
