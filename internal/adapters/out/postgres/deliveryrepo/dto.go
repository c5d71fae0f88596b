// Package deliveryrepo persists Delivery aggregates with GORM.
// Statuses and priorities are stored by name so the table stays readable
// and survives enum reordering.
package deliveryrepo

import (
	"time"

	"lastmile/internal/core/domain/model/delivery"
	"lastmile/internal/core/domain/model/kernel"

	"github.com/google/uuid"
)

// DeliveryDTO is the row layout of the deliveries table.
type DeliveryDTO struct {
	ID                       uuid.UUID      `gorm:"type:uuid;primaryKey"`
	TrackingCode             string         `gorm:"size:14;not null;uniqueIndex"`
	Status                   string         `gorm:"size:20;not null;index"`
	Priority                 string         `gorm:"size:10;not null"`
	Pickup                   CoordinatesDTO `gorm:"embedded;embeddedPrefix:pickup_"`
	Dropoff                  CoordinatesDTO `gorm:"embedded;embeddedPrefix:dropoff_"`
	ScheduledPickupAt        time.Time      `gorm:"not null"`
	ScheduledDeliveryAt      time.Time      `gorm:"not null"`
	WindowStart              *time.Time
	WindowEnd                *time.Time
	DriverID                 *uuid.UUID `gorm:"type:uuid;index"`
	VehicleID                *uuid.UUID `gorm:"type:uuid"`
	FailedAttempts           int        `gorm:"not null;default:0"`
	EstimatedDistanceKm      *float64
	EstimatedDurationMinutes *float64
	EstimatedServiceMinutes  float64 `gorm:"type:double precision;not null;default:0"`
	CreatedAt                time.Time
	Version                  int `gorm:"not null;default:0"`
}

func (DeliveryDTO) TableName() string {
	return "deliveries"
}

// CoordinatesDTO is an embedded latitude/longitude pair.
type CoordinatesDTO struct {
	Latitude  float64 `gorm:"type:double precision;not null"`
	Longitude float64 `gorm:"type:double precision;not null"`
}

func fromDomain(d *delivery.Delivery) DeliveryDTO {
	s := d.Snapshot()
	dto := DeliveryDTO{
		ID:                       s.ID.Bytes(),
		TrackingCode:             s.TrackingCode.String(),
		Status:                   s.Status.String(),
		Priority:                 s.Priority.String(),
		Pickup:                   CoordinatesDTO{Latitude: s.Pickup.Latitude(), Longitude: s.Pickup.Longitude()},
		Dropoff:                  CoordinatesDTO{Latitude: s.Dropoff.Latitude(), Longitude: s.Dropoff.Longitude()},
		ScheduledPickupAt:        s.ScheduledPickupAt,
		ScheduledDeliveryAt:      s.ScheduledDeliveryAt,
		DriverID:                 rawUUID(s.DriverID),
		VehicleID:                rawUUID(s.VehicleID),
		FailedAttempts:           s.FailedAttempts,
		EstimatedDistanceKm:      s.EstimatedDistanceKm,
		EstimatedDurationMinutes: s.EstimatedDurationMinutes,
		EstimatedServiceMinutes:  s.ServiceMinutes,
		CreatedAt:                s.CreatedAt,
		Version:                  s.Version,
	}
	if s.Window != nil {
		start, end := s.Window.Start(), s.Window.End()
		dto.WindowStart = &start
		dto.WindowEnd = &end
	}
	return dto
}

func toDomain(dto DeliveryDTO) (*delivery.Delivery, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}
	status, err := delivery.ParseStatus(dto.Status)
	if err != nil {
		return nil, err
	}
	priority, err := delivery.ParsePriority(dto.Priority)
	if err != nil {
		return nil, err
	}
	pickup, err := kernel.NewCoordinates(dto.Pickup.Latitude, dto.Pickup.Longitude)
	if err != nil {
		return nil, err
	}
	dropoff, err := kernel.NewCoordinates(dto.Dropoff.Latitude, dto.Dropoff.Longitude)
	if err != nil {
		return nil, err
	}
	driverID, err := domainUUID(dto.DriverID)
	if err != nil {
		return nil, err
	}
	vehicleID, err := domainUUID(dto.VehicleID)
	if err != nil {
		return nil, err
	}

	var window *kernel.TimeWindow
	if dto.WindowStart != nil && dto.WindowEnd != nil {
		w, windowErr := kernel.NewTimeWindow(dto.WindowStart.UTC(), dto.WindowEnd.UTC())
		if windowErr != nil {
			return nil, windowErr
		}
		window = &w
	}

	return delivery.RestoreDelivery(delivery.Snapshot{
		ID:                       id,
		TrackingCode:             delivery.TrackingCode(dto.TrackingCode),
		Status:                   status,
		Priority:                 priority,
		Pickup:                   pickup,
		Dropoff:                  dropoff,
		ScheduledPickupAt:        dto.ScheduledPickupAt.UTC(),
		ScheduledDeliveryAt:      dto.ScheduledDeliveryAt.UTC(),
		Window:                   window,
		DriverID:                 driverID,
		VehicleID:                vehicleID,
		FailedAttempts:           dto.FailedAttempts,
		EstimatedDistanceKm:      dto.EstimatedDistanceKm,
		EstimatedDurationMinutes: dto.EstimatedDurationMinutes,
		ServiceMinutes:           dto.EstimatedServiceMinutes,
		CreatedAt:                dto.CreatedAt.UTC(),
		Version:                  dto.Version,
	})
}

func rawUUID(id *kernel.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	raw := id.Bytes()
	return &raw
}

func domainUUID(raw *uuid.UUID) (*kernel.UUID, error) {
	if raw == nil {
		return nil, nil
	}
	id, err := kernel.UUIDFromBytes(raw[:])
	if err != nil {
		return nil, err
	}
	return &id, nil
}
