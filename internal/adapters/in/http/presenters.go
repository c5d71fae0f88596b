package http

import (
	"lastmile/internal/core/application/usecases/commands"
	"lastmile/internal/core/application/usecases/queries"
	"lastmile/internal/core/domain/model/delivery"
	"lastmile/internal/core/domain/model/kernel"

	openapi_types "github.com/oapi-codegen/runtime/types"
)

func toDelivery(d *delivery.Delivery) Delivery {
	s := d.Snapshot()
	out := Delivery{
		ID:                       s.ID.Bytes(),
		TrackingCode:             s.TrackingCode.String(),
		Status:                   s.Status.String(),
		Priority:                 s.Priority.String(),
		Pickup:                   toCoordinates(s.Pickup),
		Dropoff:                  toCoordinates(s.Dropoff),
		ScheduledPickupAt:        s.ScheduledPickupAt,
		ScheduledDeliveryAt:      s.ScheduledDeliveryAt,
		DriverID:                 optionalUUID(s.DriverID),
		VehicleID:                optionalUUID(s.VehicleID),
		FailedAttempts:           s.FailedAttempts,
		EstimatedDistanceKm:      s.EstimatedDistanceKm,
		EstimatedDurationMinutes: s.EstimatedDurationMinutes,
		EstimatedServiceMinutes:  s.ServiceMinutes,
		CreatedAt:                s.CreatedAt,
		Version:                  s.Version,
	}
	if s.Window != nil {
		out.Window = &Window{Start: s.Window.Start(), End: s.Window.End()}
	}
	return out
}

func toHistoryEntry(e *delivery.StatusHistoryEntry) HistoryEntry {
	out := HistoryEntry{
		ID:        e.ID().Bytes(),
		To:        e.To().String(),
		ChangedAt: e.ChangedAt(),
		ChangedBy: e.ChangedBy(),
		Reason:    e.Reason(),
		Automatic: e.Automatic(),
	}
	if from := e.From(); from != nil {
		name := from.String()
		out.From = &name
	}
	return out
}

func toTransitionResponse(res commands.TransitionResult) TransitionResponse {
	out := TransitionResponse{
		Delivery: toDelivery(res.Delivery),
		Changed:  res.Changed(),
		Warnings: res.Warnings,
	}
	if out.Warnings == nil {
		out.Warnings = []string{}
	}
	if res.Entry != nil {
		entry := toHistoryEntry(res.Entry)
		out.Entry = &entry
	}
	return out
}

func toRoute(resp queries.OptimizeRouteQueryResponse) Route {
	out := Route{
		OrderedStopIDs:      make([]openapi_types.UUID, 0, len(resp.Route.OrderedStopIDs)),
		TotalDistanceKm:     resp.Route.TotalDistanceKm,
		TotalTimeMinutes:    resp.Route.TotalTimeMinutes,
		TotalServiceMinutes: resp.Route.TotalServiceMinutes,
		Legs:                make([]RouteLeg, 0, len(resp.Route.Legs)),
		CacheHit:            resp.CacheHit,
	}
	for _, id := range resp.Route.OrderedStopIDs {
		out.OrderedStopIDs = append(out.OrderedStopIDs, id.Bytes())
	}
	for _, leg := range resp.Route.Legs {
		out.Legs = append(out.Legs, RouteLeg{
			DeliveryID: leg.DeliveryID.Bytes(),
			DistanceKm: kernel.RoundTo(leg.DistanceKm, 2),
			Minutes:    leg.Minutes,
		})
	}
	return out
}

func toCoordinates(c kernel.Coordinates) Coordinates {
	return Coordinates{Lat: c.Latitude(), Lon: c.Longitude()}
}

func optionalUUID(id *kernel.UUID) *openapi_types.UUID {
	if id == nil {
		return nil
	}
	raw := id.Bytes()
	return &raw
}
