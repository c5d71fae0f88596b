// Package ports defines the contracts between the delivery core and its adapters.
// Persistence, caching and post-commit side effects are reached only through
// these interfaces, so use cases can be tested with mocks.
package ports

import (
	"context"

	"lastmile/internal/core/domain/model/delivery"
	"lastmile/internal/core/domain/model/kernel"
)

// DeliveryRepository defines the persistence contract for delivery aggregates.
type DeliveryRepository interface {
	// Add persists a new delivery. The tracking code must be unique.
	Add(ctx context.Context, aggregate *delivery.Delivery) error

	// Update persists changes to an existing delivery, guarded by its version.
	// On success the aggregate's version is advanced. When another writer
	// changed the row first it returns *errs.WriteConflictError and the caller
	// must re-read and re-validate; a missing row is *errs.ObjectNotFoundError.
	Update(ctx context.Context, aggregate *delivery.Delivery) error

	// Get retrieves a delivery by id or returns *errs.ObjectNotFoundError.
	Get(ctx context.Context, id kernel.UUID) (*delivery.Delivery, error)

	// FindActiveByDriver returns the driver's deliveries in
	// ASSIGNED, PICKED_UP, IN_TRANSIT or OUT_FOR_DELIVERY.
	FindActiveByDriver(ctx context.Context, driverID kernel.UUID) ([]*delivery.Delivery, error)

	// FindAllActive returns every active delivery that has a driver.
	FindAllActive(ctx context.Context) ([]*delivery.Delivery, error)
}
