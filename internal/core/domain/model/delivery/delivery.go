package delivery

import (
	"errors"
	"fmt"
	"math"
	"time"

	"lastmile/internal/core/domain/model/kernel"
	"lastmile/internal/pkg/errs"
)

var (
	// ErrDeliveryIsNotConstructed is returned when a Delivery was not created
	// through NewDelivery or RestoreDelivery.
	ErrDeliveryIsNotConstructed = errors.New("Delivery must be created via NewDelivery or RestoreDelivery")

	// ErrScheduleIsInvalid is returned when the scheduled pickup is not before
	// the scheduled delivery at creation time.
	ErrScheduleIsInvalid = errors.New("scheduled pickup must be before scheduled delivery")
)

// Schedule is the planned timing of a delivery.
type Schedule struct {
	PickupAt   time.Time
	DeliveryAt time.Time

	// Window is the optional customer slot for the drop-off.
	Window *kernel.TimeWindow

	// ServiceMinutes is the expected time spent at the stop (parking,
	// handover). Zero means none.
	ServiceMinutes float64
}

// Delivery is the aggregate root of the last-mile lifecycle. It owns the
// current status, the assignment, and the derived route estimates.
//
// Delivery follows these invariants:
//   - Must have a valid identifier and tracking code
//   - Pickup and drop-off coordinates are constructed (ranges validated upstream)
//   - Scheduled pickup is before scheduled delivery when the delivery is created
//   - Status changes go through a TransitionValidator
//   - version increases by one for every persisted change
//
// Schedules are checked only at creation; restored deliveries are trusted.
type Delivery struct {
	id           kernel.UUID
	trackingCode TrackingCode
	status       Status
	priority     Priority

	pickup  kernel.Coordinates
	dropoff kernel.Coordinates

	scheduledPickupAt   time.Time
	scheduledDeliveryAt time.Time
	window              *kernel.TimeWindow
	serviceMinutes      float64

	driverID  *kernel.UUID
	vehicleID *kernel.UUID

	failedAttempts int

	estimatedDistanceKm      *float64
	estimatedDurationMinutes *float64

	createdAt time.Time
	version   int

	isConstructed bool
}

// NewDelivery creates a PENDING delivery with no driver.
//
// Parameters:
//   - id: Unique identifier (must be constructed)
//   - code: Tracking code, usually NewTrackingCode()
//   - priority: Service priority
//   - pickup, dropoff: Constructed coordinates
//   - schedule: Planned pickup/delivery times, PickupAt < DeliveryAt
//   - now: Creation timestamp
//
// Returns:
//   - *Delivery: The created delivery at version 0
//   - error: Joined validation errors for every invalid argument
//
// Example:
//
//	pickup, _ := kernel.NewCoordinates(-23.5505, -46.6333)
//	dropoff, _ := kernel.NewCoordinates(-23.5615, -46.6559)
//	d, err := delivery.NewDelivery(kernel.NewUUID(), delivery.NewTrackingCode(),
//	    delivery.PriorityNormal, pickup, dropoff,
//	    delivery.Schedule{PickupAt: at, DeliveryAt: at.Add(2 * time.Hour)}, time.Now())
func NewDelivery(
	id kernel.UUID,
	code TrackingCode,
	priority Priority,
	pickup, dropoff kernel.Coordinates,
	schedule Schedule,
	now time.Time,
) (*Delivery, error) {
	d := &Delivery{
		status:        StatusPending,
		createdAt:     now.UTC(),
		isConstructed: true,
	}

	if err := errors.Join(
		d.setID(id),
		d.setTrackingCode(code),
		d.setPriority(priority),
		d.setCoordinates(pickup, dropoff),
		d.setSchedule(schedule),
	); err != nil {
		return nil, err
	}

	return d, nil
}

// Snapshot is the flat persisted form of a Delivery.
type Snapshot struct {
	ID                       kernel.UUID
	TrackingCode             TrackingCode
	Status                   Status
	Priority                 Priority
	Pickup                   kernel.Coordinates
	Dropoff                  kernel.Coordinates
	ScheduledPickupAt        time.Time
	ScheduledDeliveryAt      time.Time
	Window                   *kernel.TimeWindow
	ServiceMinutes           float64
	DriverID                 *kernel.UUID
	VehicleID                *kernel.UUID
	FailedAttempts           int
	EstimatedDistanceKm      *float64
	EstimatedDurationMinutes *float64
	CreatedAt                time.Time
	Version                  int
}

// RestoreDelivery rebuilds a delivery from storage. It validates shape
// (ids, enums, coordinates) but not business history, so legacy rows whose
// schedule no longer satisfies pickup < delivery still load.
func RestoreDelivery(s Snapshot) (*Delivery, error) {
	d := &Delivery{
		scheduledPickupAt:   s.ScheduledPickupAt,
		scheduledDeliveryAt: s.ScheduledDeliveryAt,
		window:              s.Window,
		createdAt:           s.CreatedAt,
		isConstructed:       true,
	}

	if err := errors.Join(
		d.setID(s.ID),
		d.setTrackingCode(s.TrackingCode),
		d.setStatus(s.Status),
		d.setPriority(s.Priority),
		d.setCoordinates(s.Pickup, s.Dropoff),
		d.setAssignment(s.DriverID, s.VehicleID),
		d.setFailedAttempts(s.FailedAttempts),
		d.setServiceMinutes(s.ServiceMinutes),
		d.setVersion(s.Version),
	); err != nil {
		return nil, err
	}
	if s.EstimatedDistanceKm != nil && s.EstimatedDurationMinutes != nil {
		if err := d.SetEstimates(*s.EstimatedDistanceKm, *s.EstimatedDurationMinutes); err != nil {
			return nil, err
		}
	}

	return d, nil
}

// Snapshot exports the aggregate state for persistence adapters.
func (d *Delivery) Snapshot() Snapshot {
	return Snapshot{
		ID:                       d.id,
		TrackingCode:             d.trackingCode,
		Status:                   d.status,
		Priority:                 d.priority,
		Pickup:                   d.pickup,
		Dropoff:                  d.dropoff,
		ScheduledPickupAt:        d.scheduledPickupAt,
		ScheduledDeliveryAt:      d.scheduledDeliveryAt,
		Window:                   d.window,
		ServiceMinutes:           d.serviceMinutes,
		DriverID:                 d.driverID,
		VehicleID:                d.vehicleID,
		FailedAttempts:           d.failedAttempts,
		EstimatedDistanceKm:      d.estimatedDistanceKm,
		EstimatedDurationMinutes: d.estimatedDurationMinutes,
		CreatedAt:                d.createdAt,
		Version:                  d.version,
	}
}

// Validate ensures the Delivery was built by a constructor.
func (d *Delivery) Validate() error {
	if d == nil || !d.isConstructed {
		return ErrDeliveryIsNotConstructed
	}
	return nil
}

// IsEqual compares deliveries by identity.
func (d *Delivery) IsEqual(other *Delivery) bool {
	return other != nil && d.id.IsEqual(other.id)
}

func (d *Delivery) ID() kernel.UUID {
	return d.id
}

func (d *Delivery) TrackingCode() TrackingCode {
	return d.trackingCode
}

func (d *Delivery) Status() Status {
	return d.status
}

func (d *Delivery) Priority() Priority {
	return d.priority
}

// PickupCoordinates returns where the parcel is collected.
func (d *Delivery) PickupCoordinates() kernel.Coordinates {
	return d.pickup
}

// DeliveryCoordinates returns the customer drop-off point.
func (d *Delivery) DeliveryCoordinates() kernel.Coordinates {
	return d.dropoff
}

// NextStopCoordinates is where the driver must go next: the pickup point
// until the parcel is collected, the drop-off point afterwards.
func (d *Delivery) NextStopCoordinates() kernel.Coordinates {
	if d.status.IsCollected() {
		return d.dropoff
	}
	return d.pickup
}

func (d *Delivery) ScheduledPickupAt() time.Time {
	return d.scheduledPickupAt
}

func (d *Delivery) ScheduledDeliveryAt() time.Time {
	return d.scheduledDeliveryAt
}

// TimeWindow returns the customer slot, or nil when none was agreed.
func (d *Delivery) TimeWindow() *kernel.TimeWindow {
	return d.window
}

// ServiceMinutes is the planned time at the stop, added to route service time.
func (d *Delivery) ServiceMinutes() float64 {
	return d.serviceMinutes
}

// DriverID returns the assigned driver or nil.
func (d *Delivery) DriverID() *kernel.UUID {
	return d.driverID
}

// VehicleID returns the assigned vehicle or nil.
func (d *Delivery) VehicleID() *kernel.UUID {
	return d.vehicleID
}

func (d *Delivery) FailedAttempts() int {
	return d.failedAttempts
}

// EstimatedDistanceKm is derived by route planning; nil until estimated.
func (d *Delivery) EstimatedDistanceKm() *float64 {
	return d.estimatedDistanceKm
}

// EstimatedDurationMinutes is derived by route planning; nil until estimated.
func (d *Delivery) EstimatedDurationMinutes() *float64 {
	return d.estimatedDurationMinutes
}

func (d *Delivery) CreatedAt() time.Time {
	return d.createdAt
}

// Version is the optimistic concurrency token read from storage.
func (d *Delivery) Version() int {
	return d.version
}

// AdvanceVersion is called by persistence after a successful version-checked write.
func (d *Delivery) AdvanceVersion() {
	d.version++
}

// HasDriver reports whether driverID is assigned to this delivery.
func (d *Delivery) HasDriver(driverID kernel.UUID) bool {
	return d.driverID != nil && d.driverID.IsEqual(driverID)
}

// Transition is the outcome of an accepted status change on the aggregate.
type Transition struct {
	DeliveryID kernel.UUID
	From       Status
	To         Status
}

// IsNoop reports an accepted same-status request; nothing needs persisting.
func (t Transition) IsNoop() bool {
	return t.From == t.To
}

// Record turns the transition into a ledger record.
func (t Transition) Record(changedBy, reason string, automatic bool) TransitionRecord {
	from := t.From
	return TransitionRecord{
		DeliveryID: t.DeliveryID,
		From:       &from,
		To:         t.To,
		ChangedBy:  changedBy,
		Reason:     reason,
		Automatic:  automatic,
	}
}

// TransitionTo moves the delivery to status "to" if the validator accepts it.
//
// Side effects of an accepted change:
//   - entering FAILED increments the failed attempt counter
//   - entering PENDING releases the driver and vehicle
//
// A same-status request accepted by the validator changes nothing and returns
// a Transition with IsNoop() == true.
func (d *Delivery) TransitionTo(to Status, validator TransitionValidator, opts TransitionOptions) (Transition, error) {
	if err := d.Validate(); err != nil {
		return Transition{}, err
	}
	if err := validator.Validate(d.status, to, opts); err != nil {
		return Transition{}, err
	}

	t := Transition{DeliveryID: d.id, From: d.status, To: to}
	if t.IsNoop() {
		return t, nil
	}

	switch to {
	case StatusFailed:
		d.failedAttempts++
	case StatusPending:
		d.driverID = nil
		d.vehicleID = nil
	}
	d.status = to

	return t, nil
}

// AssignDriver assigns (or reassigns) a driver and optional vehicle and moves
// the delivery to ASSIGNED. Reassigning an ASSIGNED delivery is a same-status
// transition and therefore subject to opts.DisallowSameStatus.
func (d *Delivery) AssignDriver(
	driverID kernel.UUID,
	vehicleID *kernel.UUID,
	validator TransitionValidator,
	opts TransitionOptions,
) (Transition, error) {
	if err := driverID.Validate(); err != nil {
		return Transition{}, errs.NewValueIsRequiredErrorWithCause("driver id", err)
	}
	if vehicleID != nil {
		if err := vehicleID.Validate(); err != nil {
			return Transition{}, errs.NewValueIsInvalidErrorWithCause("vehicle id", err)
		}
	}

	t, err := d.TransitionTo(StatusAssigned, validator, opts)
	if err != nil {
		return Transition{}, err
	}

	driver := driverID
	d.driverID = &driver
	if vehicleID != nil {
		vehicle := *vehicleID
		d.vehicleID = &vehicle
	} else {
		d.vehicleID = nil
	}

	return t, nil
}

// SetEstimates stores derived route estimates. Both values must be finite and non-negative.
func (d *Delivery) SetEstimates(distanceKm, durationMinutes float64) error {
	if math.IsNaN(distanceKm) || math.IsInf(distanceKm, 0) || distanceKm < 0 {
		return errs.NewValueIsOutOfRangeError("estimated distance km", distanceKm, 0, math.Inf(1))
	}
	if math.IsNaN(durationMinutes) || math.IsInf(durationMinutes, 0) || durationMinutes < 0 {
		return errs.NewValueIsOutOfRangeError("estimated duration minutes", durationMinutes, 0, math.Inf(1))
	}
	d.estimatedDistanceKm = &distanceKm
	d.estimatedDurationMinutes = &durationMinutes
	return nil
}

func (d *Delivery) String() string {
	return fmt.Sprintf("Delivery(%s %s %s)", d.trackingCode, d.status, d.priority)
}

func (d *Delivery) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	d.id = id
	return nil
}

func (d *Delivery) setTrackingCode(code TrackingCode) error {
	if err := code.Validate(); err != nil {
		return err
	}
	d.trackingCode = code
	return nil
}

func (d *Delivery) setStatus(status Status) error {
	if err := status.Validate(); err != nil {
		return err
	}
	d.status = status
	return nil
}

func (d *Delivery) setPriority(priority Priority) error {
	if err := priority.Validate(); err != nil {
		return err
	}
	d.priority = priority
	return nil
}

func (d *Delivery) setCoordinates(pickup, dropoff kernel.Coordinates) error {
	if err := pickup.Validate(); err != nil {
		return errs.NewValueIsRequiredErrorWithCause("pickup coordinates", err)
	}
	if err := dropoff.Validate(); err != nil {
		return errs.NewValueIsRequiredErrorWithCause("delivery coordinates", err)
	}
	d.pickup = pickup
	d.dropoff = dropoff
	return nil
}

func (d *Delivery) setSchedule(s Schedule) error {
	if s.PickupAt.IsZero() || s.DeliveryAt.IsZero() {
		return errs.NewValueIsRequiredError("schedule")
	}
	if !s.PickupAt.Before(s.DeliveryAt) {
		return errs.NewValueIsInvalidErrorWithCause("schedule", ErrScheduleIsInvalid)
	}
	if s.Window != nil {
		if err := s.Window.Validate(); err != nil {
			return err
		}
	}
	if err := d.setServiceMinutes(s.ServiceMinutes); err != nil {
		return err
	}
	d.scheduledPickupAt = s.PickupAt.UTC()
	d.scheduledDeliveryAt = s.DeliveryAt.UTC()
	d.window = s.Window
	return nil
}

func (d *Delivery) setServiceMinutes(minutes float64) error {
	if math.IsNaN(minutes) || math.IsInf(minutes, 0) || minutes < 0 {
		return errs.NewValueIsOutOfRangeError("service minutes", minutes, 0, math.Inf(1))
	}
	d.serviceMinutes = minutes
	return nil
}

func (d *Delivery) setAssignment(driverID, vehicleID *kernel.UUID) error {
	if driverID != nil {
		if err := driverID.Validate(); err != nil {
			return errs.NewValueIsInvalidErrorWithCause("driver id", err)
		}
	}
	if vehicleID != nil {
		if err := vehicleID.Validate(); err != nil {
			return errs.NewValueIsInvalidErrorWithCause("vehicle id", err)
		}
	}
	d.driverID = driverID
	d.vehicleID = vehicleID
	return nil
}

func (d *Delivery) setFailedAttempts(n int) error {
	if n < 0 {
		return errs.NewValueIsOutOfRangeError("failed attempts", n, 0, math.MaxInt)
	}
	d.failedAttempts = n
	return nil
}

func (d *Delivery) setVersion(v int) error {
	if v < 0 {
		return errs.NewValueIsOutOfRangeError("version", v, 0, math.MaxInt)
	}
	d.version = v
	return nil
}
