package historyrepo

import (
	"context"

	"lastmile/internal/core/domain/model/delivery"
	"lastmile/internal/core/domain/model/kernel"

	"gorm.io/gorm"
)

// GormStatusHistoryRepository implements ports.StatusHistoryRepository.
// It only inserts and reads.
type GormStatusHistoryRepository struct {
	db *gorm.DB
}

func NewGormStatusHistoryRepository(db *gorm.DB) *GormStatusHistoryRepository {
	return &GormStatusHistoryRepository{db: db}
}

// Append inserts one entry.
func (r *GormStatusHistoryRepository) Append(ctx context.Context, entry *delivery.StatusHistoryEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	dto := fromDomain(entry)
	return r.db.WithContext(ctx).Create(&dto).Error
}

// ListByDelivery returns a delivery's entries, oldest first.
func (r *GormStatusHistoryRepository) ListByDelivery(
	ctx context.Context,
	deliveryID kernel.UUID,
) ([]*delivery.StatusHistoryEntry, error) {
	if err := deliveryID.Validate(); err != nil {
		return nil, err
	}

	var dtos []StatusHistoryDTO
	err := r.db.WithContext(ctx).
		Where("delivery_id = ?", deliveryID.Bytes()).
		Order("changed_at, seq").
		Find(&dtos).Error
	if err != nil {
		return nil, err
	}

	entries := make([]*delivery.StatusHistoryEntry, 0, len(dtos))
	for _, dto := range dtos {
		e, err := toDomain(dto)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}
