// Package historyrepo stores the append-only delivery status history.
package historyrepo

import (
	"time"

	"lastmile/internal/core/domain/model/delivery"
	"lastmile/internal/core/domain/model/kernel"

	"github.com/google/uuid"
)

// StatusHistoryDTO is one row of delivery_status_history. Seq orders entries
// that share a timestamp.
type StatusHistoryDTO struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Seq        int64     `gorm:"autoIncrement;not null"`
	DeliveryID uuid.UUID `gorm:"type:uuid;not null;index:idx_history_delivery_changed,priority:1"`
	FromStatus *string   `gorm:"size:20"`
	ToStatus   string    `gorm:"size:20;not null"`
	ChangedAt  time.Time `gorm:"not null;index:idx_history_delivery_changed,priority:2"`
	ChangedBy  string    `gorm:"size:128"`
	Reason     string    `gorm:"size:500"`
	Automatic  bool      `gorm:"not null;default:false"`
}

func (StatusHistoryDTO) TableName() string {
	return "delivery_status_history"
}

func fromDomain(e *delivery.StatusHistoryEntry) StatusHistoryDTO {
	dto := StatusHistoryDTO{
		ID:         e.ID().Bytes(),
		DeliveryID: e.DeliveryID().Bytes(),
		ToStatus:   e.To().String(),
		ChangedAt:  e.ChangedAt(),
		ChangedBy:  e.ChangedBy(),
		Reason:     e.Reason(),
		Automatic:  e.Automatic(),
	}
	if from := e.From(); from != nil {
		name := from.String()
		dto.FromStatus = &name
	}
	return dto
}

func toDomain(dto StatusHistoryDTO) (*delivery.StatusHistoryEntry, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}
	deliveryID, err := kernel.UUIDFromBytes(dto.DeliveryID[:])
	if err != nil {
		return nil, err
	}
	to, err := delivery.ParseStatus(dto.ToStatus)
	if err != nil {
		return nil, err
	}

	rec := delivery.TransitionRecord{
		DeliveryID: deliveryID,
		To:         to,
		ChangedBy:  dto.ChangedBy,
		Reason:     dto.Reason,
		Automatic:  dto.Automatic,
	}
	if dto.FromStatus != nil {
		from, fromErr := delivery.ParseStatus(*dto.FromStatus)
		if fromErr != nil {
			return nil, fromErr
		}
		rec.From = &from
	}

	return delivery.RestoreStatusHistoryEntry(id, rec, dto.ChangedAt.UTC())
}
