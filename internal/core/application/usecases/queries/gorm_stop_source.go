package queries

import (
	"context"

	"lastmile/internal/core/domain/model/delivery"
	"lastmile/internal/core/domain/model/kernel"
	"lastmile/internal/core/domain/services"
	"lastmile/internal/pkg/errs"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// GormStopSource reads route stops straight from the deliveries table.
type GormStopSource struct {
	db *gorm.DB
}

func NewGormStopSource(db *gorm.DB) GormStopSource {
	return GormStopSource{db: db}
}

const stopColumns = `
	SELECT
		id,
		status,
		priority,
		pickup_latitude,
		pickup_longitude,
		dropoff_latitude,
		dropoff_longitude,
		estimated_service_minutes
	FROM deliveries`

// StopsByDeliveryIDs returns the stops in request order. Finished deliveries
// are returned too; the caller decides whether they may be routed.
func (s GormStopSource) StopsByDeliveryIDs(ctx context.Context, ids []kernel.UUID) ([]Stop, error) {
	raw := make([]string, 0, len(ids))
	for _, id := range ids {
		raw = append(raw, id.String())
	}

	stops, err := s.scan(s.db.WithContext(ctx).Raw(stopColumns+`
		WHERE id = ANY(?::uuid[])
	`, pq.Array(raw)))
	if err != nil {
		return nil, err
	}

	byID := make(map[kernel.UUID]Stop, len(stops))
	for _, stop := range stops {
		byID[stop.DeliveryID] = stop
	}

	ordered := make([]Stop, 0, len(ids))
	for _, id := range ids {
		stop, ok := byID[id]
		if !ok {
			return nil, errs.NewObjectNotFoundError("delivery", id)
		}
		ordered = append(ordered, stop)
	}
	return ordered, nil
}

// StopsByDriver returns the driver's active deliveries, oldest first.
func (s GormStopSource) StopsByDriver(ctx context.Context, driverID kernel.UUID) ([]Stop, error) {
	active := make([]string, 0, len(delivery.ActiveStatuses()))
	for _, status := range delivery.ActiveStatuses() {
		active = append(active, status.String())
	}

	return s.scan(s.db.WithContext(ctx).Raw(stopColumns+`
		WHERE driver_id = ? AND status = ANY(?)
		ORDER BY created_at, id
	`, driverID.Bytes(), pq.Array(active)))
}

func (s GormStopSource) scan(query *gorm.DB) ([]Stop, error) {
	rows, err := query.Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stops := make([]Stop, 0)
	for rows.Next() {
		var (
			id                       uuid.UUID
			statusName, priorityName string
			pickupLat, pickupLon     float64
			dropoffLat, dropoffLon   float64
			serviceMinutes           float64
		)
		if err = rows.Scan(&id, &statusName, &priorityName,
			&pickupLat, &pickupLon, &dropoffLat, &dropoffLon, &serviceMinutes); err != nil {
			return nil, err
		}

		deliveryID, err := kernel.UUIDFromBytes(id[:])
		if err != nil {
			return nil, err
		}
		status, err := delivery.ParseStatus(statusName)
		if err != nil {
			return nil, err
		}
		priority, err := delivery.ParsePriority(priorityName)
		if err != nil {
			return nil, err
		}

		lat, lon := pickupLat, pickupLon
		if status.IsCollected() {
			lat, lon = dropoffLat, dropoffLon
		}
		coordinates, err := kernel.NewCoordinates(lat, lon)
		if err != nil {
			return nil, err
		}

		stops = append(stops, Stop{
			RouteStop: services.RouteStop{
				DeliveryID:              deliveryID,
				Coordinates:             coordinates,
				Priority:                priority,
				EstimatedServiceMinutes: serviceMinutes,
			},
			Status: status,
		})
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return stops, nil
}
