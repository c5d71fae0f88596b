// Package postgres provides the GORM unit of work that binds the delivery and
// status history repositories to one transaction.
//
// A status change and its history entry must be written together:
//
//	uow := factory.Create()
//	if err := uow.Begin(ctx); err != nil {
//	    return err
//	}
//	defer func() { _ = uow.Rollback(ctx) }()
//
//	if err := uow.DeliveryRepository().Update(ctx, d); err != nil {
//	    return err // *errs.WriteConflictError when another writer won
//	}
//	if err := uow.StatusHistoryRepository().Append(ctx, entry); err != nil {
//	    return err
//	}
//	return uow.Commit(ctx)
//
// Each UnitOfWork instance is used by one goroutine.
package postgres

import (
	"context"

	"lastmile/internal/adapters/out/postgres/deliveryrepo"
	"lastmile/internal/adapters/out/postgres/historyrepo"
	"lastmile/internal/core/ports"

	"gorm.io/gorm"
)

// GormUnitOfWorkFactory creates UnitOfWork instances sharing one connection pool.
type GormUnitOfWorkFactory struct {
	db *gorm.DB
}

// NewGormUnitOfWorkFactory creates a factory whose units of work share db.
//
// Example:
//
//	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
//	if err != nil {
//	    return err
//	}
//	factory := NewGormUnitOfWorkFactory(db)
func NewGormUnitOfWorkFactory(db *gorm.DB) *GormUnitOfWorkFactory {
	return &GormUnitOfWorkFactory{db: db}
}

// Create returns a unit of work with no open transaction.
func (f *GormUnitOfWorkFactory) Create() ports.UnitOfWork {
	return &GormUnitOfWork{db: f.db}
}

// GormUnitOfWork wraps a GORM transaction. Repositories obtained before Begin
// or after Commit/Rollback run on the plain connection.
type GormUnitOfWork struct {
	db *gorm.DB
	tx *gorm.DB
}

// Begin starts a transaction bound to ctx. Repositories obtained afterwards
// run inside it. Calling Begin again while one is open is a no-op, so there
// are no nested transactions.
//
// Returns the driver error when the transaction cannot be opened; the unit
// of work then stays usable for another Begin.
//
// Example:
//
//	uow := factory.Create()
//	if err := uow.Begin(ctx); err != nil {
//	    return fmt.Errorf("begin transaction: %w", err)
//	}
//	defer func() { _ = uow.Rollback(ctx) }()
func (uow *GormUnitOfWork) Begin(ctx context.Context) error {
	if uow.tx != nil {
		return nil
	}

	uow.tx = uow.db.WithContext(ctx).Begin()
	if uow.tx.Error != nil {
		err := uow.tx.Error
		uow.tx = nil
		return err
	}

	return nil
}

// Commit makes the delivery update and its history entry permanent together
// and closes the transaction.
//
// Returns gorm.ErrInvalidTransaction when no transaction is open, or the
// driver error when the commit fails (the transaction is closed either way).
//
// Example:
//
//	if err := uow.DeliveryRepository().Update(ctx, d); err != nil {
//	    return err
//	}
//	if err := uow.StatusHistoryRepository().Append(ctx, entry); err != nil {
//	    return err
//	}
//	return uow.Commit(ctx)
func (uow *GormUnitOfWork) Commit(_ context.Context) error {
	if uow.tx == nil {
		return gorm.ErrInvalidTransaction
	}

	err := uow.tx.Commit().Error
	uow.tx = nil
	return err
}

// Rollback discards every write made since Begin and closes the transaction.
//
// Returns gorm.ErrInvalidTransaction when no transaction is open, which
// makes a deferred Rollback after Commit harmless.
//
// Example:
//
//	if err := uow.Begin(ctx); err != nil {
//	    return err
//	}
//	defer func() { _ = uow.Rollback(ctx) }()
func (uow *GormUnitOfWork) Rollback(_ context.Context) error {
	if uow.tx == nil {
		return gorm.ErrInvalidTransaction
	}

	err := uow.tx.Rollback().Error
	uow.tx = nil
	return err
}

// DeliveryRepository returns a delivery repository on the open transaction,
// or on the plain connection when none is open. Obtain it after Begin so
// its writes commit or roll back with the history entry.
//
// Example:
//
//	d, err := uow.DeliveryRepository().Get(ctx, id)
//	if err != nil {
//	    return err // *errs.ObjectNotFoundError for an unknown id
//	}
func (uow *GormUnitOfWork) DeliveryRepository() ports.DeliveryRepository {
	return deliveryrepo.NewGormDeliveryRepository(uow.conn())
}

// StatusHistoryRepository returns the history repository on the same
// connection as DeliveryRepository.
//
// Example:
//
//	entries, err := uow.StatusHistoryRepository().ListByDelivery(ctx, id)
func (uow *GormUnitOfWork) StatusHistoryRepository() ports.StatusHistoryRepository {
	return historyrepo.NewGormStatusHistoryRepository(uow.conn())
}

func (uow *GormUnitOfWork) conn() *gorm.DB {
	if uow.tx != nil {
		return uow.tx
	}
	return uow.db
}
