// Package commands contains the operations that change delivery state.
// Every handler follows the same shape: validate the command, open a unit of
// work, load, decide with the domain services, write, commit, then run the
// post-commit side effects.
package commands

import (
	"context"

	"lastmile/internal/core/ports"
)

// Unit of Work interfaces narrowed to what the handlers use.
type (
	// TxManager handles database transaction lifecycle.
	TxManager interface {
		Begin(ctx context.Context) error
		Commit(ctx context.Context) error
		Rollback(ctx context.Context) error
	}

	// DeliveryRepoFactory provides the delivery repository within a transaction.
	DeliveryRepoFactory interface {
		DeliveryRepository() ports.DeliveryRepository
	}

	// HistoryRepoFactory provides the status history repository within a transaction.
	HistoryRepoFactory interface {
		StatusHistoryRepository() ports.StatusHistoryRepository
	}

	// UoW writes a delivery and its history atomically.
	//
	// Example:
	//   uow := factory.Create()
	//   err := uow.Begin(ctx)
	//   defer uow.Rollback(ctx)
	//
	//   repo := uow.DeliveryRepository()
	//   history := uow.StatusHistoryRepository()
	//   // ... perform operations
	//
	//   err = uow.Commit(ctx)
	UoW interface {
		TxManager
		DeliveryRepoFactory
		HistoryRepoFactory
	}

	// UoWFactory creates a unit of work per command.
	UoWFactory interface {
		Create() UoW
	}
)
