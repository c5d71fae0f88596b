package delivery

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"lastmile/internal/core/domain/model/kernel"
	"lastmile/internal/pkg/errs"
)

// MaxReasonLength bounds the free-text reason stored with a history entry.
const MaxReasonLength = 500

var ErrStatusHistoryEntryIsNotConstructed = errors.New(
	"StatusHistoryEntry must be created via NewStatusHistoryEntry or RestoreStatusHistoryEntry")

// TransitionRecord describes one accepted status change before it is stamped
// and stored. From is nil only for the creation event.
type TransitionRecord struct {
	DeliveryID kernel.UUID
	From       *Status
	To         Status
	ChangedBy  string
	Reason     string
	Automatic  bool
}

// StatusHistoryEntry is an immutable row of the append-only status ledger.
type StatusHistoryEntry struct {
	id         kernel.UUID
	deliveryID kernel.UUID
	from       *Status
	to         Status
	changedAt  time.Time
	changedBy  string
	reason     string
	automatic  bool

	isConstructed bool
}

// NewStatusHistoryEntry stamps a record with a fresh id and the given time.
//
// Returns an error when:
//   - the delivery id is not constructed
//   - From is set but not a valid status
//   - From is nil and To is not PENDING (only creation has no previous status)
//   - To is not a valid status
//   - changedAt is zero
//   - the reason exceeds MaxReasonLength
func NewStatusHistoryEntry(rec TransitionRecord, changedAt time.Time) (*StatusHistoryEntry, error) {
	return RestoreStatusHistoryEntry(kernel.NewUUID(), rec, changedAt)
}

// RestoreStatusHistoryEntry rebuilds a stored entry with its original id.
func RestoreStatusHistoryEntry(id kernel.UUID, rec TransitionRecord, changedAt time.Time) (*StatusHistoryEntry, error) {
	entry := &StatusHistoryEntry{
		changedBy:     strings.TrimSpace(rec.ChangedBy),
		automatic:     rec.Automatic,
		isConstructed: true,
	}

	if err := errors.Join(
		entry.setID(id),
		entry.setDeliveryID(rec.DeliveryID),
		entry.setStatuses(rec.From, rec.To),
		entry.setChangedAt(changedAt),
		entry.setReason(rec.Reason),
	); err != nil {
		return nil, err
	}

	return entry, nil
}

func (e *StatusHistoryEntry) Validate() error {
	if e == nil || !e.isConstructed {
		return ErrStatusHistoryEntryIsNotConstructed
	}
	return nil
}

func (e *StatusHistoryEntry) ID() kernel.UUID {
	return e.id
}

func (e *StatusHistoryEntry) DeliveryID() kernel.UUID {
	return e.deliveryID
}

// From returns a copy of the previous status, or nil for the creation event.
func (e *StatusHistoryEntry) From() *Status {
	if e.from == nil {
		return nil
	}
	from := *e.from
	return &from
}

func (e *StatusHistoryEntry) To() Status {
	return e.to
}

func (e *StatusHistoryEntry) ChangedAt() time.Time {
	return e.changedAt
}

// ChangedBy is the opaque actor id; empty for system changes.
func (e *StatusHistoryEntry) ChangedBy() string {
	return e.changedBy
}

func (e *StatusHistoryEntry) Reason() string {
	return e.reason
}

func (e *StatusHistoryEntry) Automatic() bool {
	return e.automatic
}

// IsCreation reports whether this entry opened the delivery's history.
func (e *StatusHistoryEntry) IsCreation() bool {
	return e.from == nil
}

func (e *StatusHistoryEntry) String() string {
	from := "-"
	if e.from != nil {
		from = e.from.String()
	}
	return fmt.Sprintf("StatusHistoryEntry(%s: %s -> %s at %s)",
		e.deliveryID, from, e.to, e.changedAt.Format(time.RFC3339))
}

func (e *StatusHistoryEntry) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	e.id = id
	return nil
}

func (e *StatusHistoryEntry) setDeliveryID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return errs.NewValueIsRequiredErrorWithCause("delivery id", err)
	}
	e.deliveryID = id
	return nil
}

func (e *StatusHistoryEntry) setStatuses(from *Status, to Status) error {
	if err := to.Validate(); err != nil {
		return err
	}
	if from == nil {
		if to != StatusPending {
			return errs.NewValueIsRequiredErrorWithCause(
				"from status", fmt.Errorf("only the creation event into %s may omit it", StatusPending))
		}
		e.to = to
		return nil
	}
	if err := from.Validate(); err != nil {
		return err
	}
	f := *from
	e.from = &f
	e.to = to
	return nil
}

func (e *StatusHistoryEntry) setChangedAt(t time.Time) error {
	if t.IsZero() {
		return errs.NewValueIsRequiredError("changed at")
	}
	e.changedAt = t.UTC()
	return nil
}

func (e *StatusHistoryEntry) setReason(reason string) error {
	reason = strings.TrimSpace(reason)
	if len(reason) > MaxReasonLength {
		return errs.NewValueIsOutOfRangeError("reason length", len(reason), 0, MaxReasonLength)
	}
	e.reason = reason
	return nil
}
