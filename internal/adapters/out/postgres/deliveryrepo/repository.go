package deliveryrepo

import (
	"context"
	"errors"

	"lastmile/internal/core/domain/model/delivery"
	"lastmile/internal/core/domain/model/kernel"
	"lastmile/internal/pkg/errs"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// GormDeliveryRepository implements ports.DeliveryRepository using GORM.
type GormDeliveryRepository struct {
	db *gorm.DB
}

// NewGormDeliveryRepository creates a repository on db, which may be a transaction.
func NewGormDeliveryRepository(db *gorm.DB) *GormDeliveryRepository {
	return &GormDeliveryRepository{db: db}
}

// Add inserts a new delivery with the version it carries.
//
// Returns the aggregate's validation error for an unconstructed delivery,
// or the driver error. A reused id or tracking code surfaces as the driver's
// unique violation (SQLSTATE 23505).
func (r *GormDeliveryRepository) Add(ctx context.Context, aggregate *delivery.Delivery) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto := fromDomain(aggregate)
	return r.db.WithContext(ctx).Create(&dto).Error
}

// Update writes every column when the stored version still matches the
// aggregate's, then advances the aggregate's version.
//
// Returns *errs.ObjectNotFoundError when the row is gone and
// *errs.WriteConflictError when another writer committed first; the
// aggregate's version is left unchanged in both cases.
//
// Example:
//
//	if err := repo.Update(ctx, d); errors.Is(err, errs.ErrWriteConflict) {
//	    // re-read and retry
//	}
func (r *GormDeliveryRepository) Update(ctx context.Context, aggregate *delivery.Delivery) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	expected := aggregate.Version()
	dto := fromDomain(aggregate)
	dto.Version = expected + 1

	result := r.db.WithContext(ctx).
		Model(&DeliveryDTO{}).
		Where("id = ? AND version = ?", dto.ID, expected).
		Select("*").
		Omit("id", "created_at").
		Updates(&dto)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&DeliveryDTO{}).Where("id = ?", dto.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return errs.NewObjectNotFoundError("delivery", aggregate.ID().String())
		}
		return errs.NewWriteConflictError("delivery", aggregate.ID().String(), expected)
	}

	aggregate.AdvanceVersion()
	return nil
}

// Get retrieves a delivery by ID.
//
// Returns *errs.ObjectNotFoundError when no row matches.
func (r *GormDeliveryRepository) Get(ctx context.Context, id kernel.UUID) (*delivery.Delivery, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var dto DeliveryDTO
	if err := r.db.WithContext(ctx).First(&dto, "id = ?", id.Bytes()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("delivery", id.String())
		}
		return nil, err
	}

	return toDomain(dto)
}

// FindActiveByDriver returns the driver's active deliveries ordered by
// scheduled delivery time. Active is delivery.ActiveStatuses();
// an unknown driver yields an empty slice.
func (r *GormDeliveryRepository) FindActiveByDriver(ctx context.Context, driverID kernel.UUID) ([]*delivery.Delivery, error) {
	if err := driverID.Validate(); err != nil {
		return nil, err
	}

	var dtos []DeliveryDTO
	err := r.db.WithContext(ctx).
		Where("driver_id = ? AND status = ANY(?)", driverID.Bytes(), pq.Array(activeStatusNames())).
		Order("scheduled_delivery_at, id").
		Find(&dtos).Error
	if err != nil {
		return nil, err
	}

	return toDomainList(dtos)
}

// FindAllActive returns active deliveries with a driver, grouped by driver
// and ordered by scheduled delivery time within each group. The route
// estimate refresh job walks this list.
func (r *GormDeliveryRepository) FindAllActive(ctx context.Context) ([]*delivery.Delivery, error) {
	var dtos []DeliveryDTO
	err := r.db.WithContext(ctx).
		Where("driver_id IS NOT NULL AND status = ANY(?)", pq.Array(activeStatusNames())).
		Order("driver_id, scheduled_delivery_at, id").
		Find(&dtos).Error
	if err != nil {
		return nil, err
	}

	return toDomainList(dtos)
}

func activeStatusNames() []string {
	active := delivery.ActiveStatuses()
	names := make([]string, len(active))
	for i, s := range active {
		names[i] = s.String()
	}
	return names
}

func toDomainList(dtos []DeliveryDTO) ([]*delivery.Delivery, error) {
	deliveries := make([]*delivery.Delivery, 0, len(dtos))
	for _, dto := range dtos {
		d, err := toDomain(dto)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, nil
}
