// Package redis caches optimised routes in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"lastmile/internal/core/domain/model/kernel"
	"lastmile/internal/core/domain/services"
	"lastmile/internal/core/ports"

	goredis "github.com/redis/go-redis/v9"
)

// NewClient creates a client for addr ("host:port").
func NewClient(addr string) *goredis.Client {
	return goredis.NewClient(&goredis.Options{Addr: addr})
}

// RouteCache stores routes as JSON strings with a TTL.
type RouteCache struct {
	client goredis.Cmdable
	ttl    time.Duration
}

var _ ports.RouteCache = (*RouteCache)(nil)

// NewRouteCache creates a cache. A ttl <= 0 keeps entries until evicted.
func NewRouteCache(client goredis.Cmdable, ttl time.Duration) *RouteCache {
	if ttl < 0 {
		ttl = 0
	}
	return &RouteCache{client: client, ttl: ttl}
}

type legDTO struct {
	DeliveryID string  `json:"delivery_id"`
	DistanceKm float64 `json:"distance_km"`
	Minutes    float64 `json:"minutes"`
}

type routeDTO struct {
	OrderedStopIDs      []string `json:"ordered_stop_ids"`
	TotalDistanceKm     float64  `json:"total_distance_km"`
	TotalTimeMinutes    float64  `json:"total_time_minutes"`
	TotalServiceMinutes float64  `json:"total_service_minutes"`
	Legs                []legDTO `json:"legs"`
}

func (c *RouteCache) Get(ctx context.Context, key string) (services.OptimizedRoute, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return services.OptimizedRoute{}, false, nil
	}
	if err != nil {
		return services.OptimizedRoute{}, false, err
	}

	var dto routeDTO
	if err = json.Unmarshal(raw, &dto); err != nil {
		return services.OptimizedRoute{}, false, err
	}
	route, err := toRoute(dto)
	if err != nil {
		return services.OptimizedRoute{}, false, err
	}
	return route, true, nil
}

func (c *RouteCache) Set(ctx context.Context, key string, route services.OptimizedRoute) error {
	raw, err := json.Marshal(fromRoute(route))
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

func fromRoute(route services.OptimizedRoute) routeDTO {
	dto := routeDTO{
		OrderedStopIDs:      make([]string, 0, len(route.OrderedStopIDs)),
		TotalDistanceKm:     route.TotalDistanceKm,
		TotalTimeMinutes:    route.TotalTimeMinutes,
		TotalServiceMinutes: route.TotalServiceMinutes,
		Legs:                make([]legDTO, 0, len(route.Legs)),
	}
	for _, id := range route.OrderedStopIDs {
		dto.OrderedStopIDs = append(dto.OrderedStopIDs, id.String())
	}
	for _, leg := range route.Legs {
		dto.Legs = append(dto.Legs, legDTO{
			DeliveryID: leg.DeliveryID.String(),
			DistanceKm: leg.DistanceKm,
			Minutes:    leg.Minutes,
		})
	}
	return dto
}

func toRoute(dto routeDTO) (services.OptimizedRoute, error) {
	route := services.OptimizedRoute{
		OrderedStopIDs:      make([]kernel.UUID, 0, len(dto.OrderedStopIDs)),
		TotalDistanceKm:     dto.TotalDistanceKm,
		TotalTimeMinutes:    dto.TotalTimeMinutes,
		TotalServiceMinutes: dto.TotalServiceMinutes,
		Legs:                make([]services.RouteLeg, 0, len(dto.Legs)),
	}
	for _, raw := range dto.OrderedStopIDs {
		id, err := kernel.UUIDFromString(raw)
		if err != nil {
			return services.OptimizedRoute{}, err
		}
		route.OrderedStopIDs = append(route.OrderedStopIDs, id)
	}
	for _, leg := range dto.Legs {
		id, err := kernel.UUIDFromString(leg.DeliveryID)
		if err != nil {
			return services.OptimizedRoute{}, err
		}
		route.Legs = append(route.Legs, services.RouteLeg{DeliveryID: id, DistanceKm: leg.DistanceKm, Minutes: leg.Minutes})
	}
	return route, nil
}
