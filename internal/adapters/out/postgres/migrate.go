package postgres

import (
	"lastmile/internal/adapters/out/postgres/deliveryrepo"
	"lastmile/internal/adapters/out/postgres/historyrepo"

	"gorm.io/gorm"
)

// Migrate creates or updates the tables used by the repositories.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&deliveryrepo.DeliveryDTO{}, &historyrepo.StatusHistoryDTO{})
}
