package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"lastmile/internal/core/domain/model/delivery"
	"lastmile/internal/core/domain/model/kernel"
	"lastmile/internal/pkg/errs"
)

// ErrHistoryChainBroken is returned when a record's From does not continue
// the previous record written for the same delivery.
var ErrHistoryChainBroken = errors.New("status history chain broken")

// HistoryStore is the append-only storage behind the ledger.
type HistoryStore interface {
	Append(ctx context.Context, entry *delivery.StatusHistoryEntry) error
	ListByDelivery(ctx context.Context, deliveryID kernel.UUID) ([]*delivery.StatusHistoryEntry, error)
}

// StatusHistoryLedger stamps and appends status history entries. Entries are
// never updated or removed.
//
// A ledger is meant to live for one unit of work: it remembers the last
// status it recorded or loaded with Seed per delivery and refuses a record
// that does not start where the previous one ended. Atomicity with the status
// write is provided by the unit of work that owns the store.
type StatusHistoryLedger struct {
	store HistoryStore
	now   func() time.Time

	mu   sync.Mutex
	last map[kernel.UUID]delivery.Status
}

// NewStatusHistoryLedger creates a ledger over store. A nil clock uses time.Now.
func NewStatusHistoryLedger(store HistoryStore, clock func() time.Time) (*StatusHistoryLedger, error) {
	if store == nil {
		return nil, errs.NewValueIsRequiredError("history store")
	}
	if clock == nil {
		clock = time.Now
	}
	return &StatusHistoryLedger{
		store: store,
		now:   clock,
		last:  make(map[kernel.UUID]delivery.Status),
	}, nil
}

// Record appends one entry and returns it.
//
// Returns an error when:
//   - the record is not a valid history entry (see delivery.NewStatusHistoryEntry)
//   - an earlier record for the same delivery ended in a different status than rec.From
//   - the store rejects the append
func (l *StatusHistoryLedger) Record(ctx context.Context, rec delivery.TransitionRecord) (*delivery.StatusHistoryEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if prev, ok := l.last[rec.DeliveryID]; ok {
		if rec.From == nil || *rec.From != prev {
			return nil, fmt.Errorf("%w: delivery %s was last recorded as %s, got from %s",
				ErrHistoryChainBroken, rec.DeliveryID, prev, describeFrom(rec.From))
		}
	}

	entry, err := delivery.NewStatusHistoryEntry(rec, l.now())
	if err != nil {
		return nil, err
	}
	if err = l.store.Append(ctx, entry); err != nil {
		return nil, err
	}

	l.last[rec.DeliveryID] = rec.To
	return entry, nil
}

// Seed loads the last stored status of a delivery so the next Record is
// checked against the persisted chain. A delivery without stored history is
// left unchecked.
func (l *StatusHistoryLedger) Seed(ctx context.Context, deliveryID kernel.UUID) error {
	entries, err := l.HistoryFor(ctx, deliveryID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.last[deliveryID] = entries[len(entries)-1].To()
	return nil
}

// HistoryFor returns the stored entries of a delivery, oldest first.
func (l *StatusHistoryLedger) HistoryFor(ctx context.Context, deliveryID kernel.UUID) ([]*delivery.StatusHistoryEntry, error) {
	entries, err := l.store.ListByDelivery(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ChangedAt().Before(entries[j].ChangedAt())
	})
	return entries, nil
}

func describeFrom(from *delivery.Status) string {
	if from == nil {
		return "nothing"
	}
	return from.String()
}
