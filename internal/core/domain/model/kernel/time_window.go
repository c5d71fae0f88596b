package kernel

import (
	"fmt"
	"time"

	"lastmile/internal/pkg/errs"
	"lastmile/internal/pkg/guard"
)

const (
	// MinPlannableWindow is the shortest window the route planner accepts.
	MinPlannableWindow = 30 * time.Minute
	// MaxPlannableWindow is the longest window the route planner accepts.
	MaxPlannableWindow = 8 * time.Hour
)

// ErrTimeWindowIsNotConstructed is returned when a zero-value TimeWindow is used.
var ErrTimeWindowIsNotConstructed = errs.NewValueIsRequiredError(
	"time window must be created via NewTimeWindow")

// TimeWindow is a half-open interval [start, end) during which a delivery
// action is permitted. NewTimeWindow guarantees start < end.
type TimeWindow struct {
	start time.Time
	end   time.Time
	guard guard.ConstructorGuard
}

// NewTimeWindow returns a window or a ValueIsInvalidError when start is not
// strictly before end.
func NewTimeWindow(start, end time.Time) (TimeWindow, error) {
	if !start.Before(end) {
		return TimeWindow{}, errs.NewValueIsInvalidErrorWithCause(
			"time window",
			fmt.Errorf("start %s is not before end %s", start.Format(time.RFC3339), end.Format(time.RFC3339)),
		)
	}
	return TimeWindow{start: start, end: end, guard: guard.NewConstructorGuard()}, nil
}

// NewPlannableTimeWindow is NewTimeWindow plus the planning duration bounds.
func NewPlannableTimeWindow(start, end time.Time) (TimeWindow, error) {
	w, err := NewTimeWindow(start, end)
	if err != nil {
		return TimeWindow{}, err
	}
	if err = w.ValidatePlannable(); err != nil {
		return TimeWindow{}, err
	}
	return w, nil
}

// Validate returns ErrTimeWindowIsNotConstructed for zero values.
func (w TimeWindow) Validate() error {
	return w.guard.Validate(ErrTimeWindowIsNotConstructed)
}

func (w TimeWindow) Start() time.Time {
	return w.start
}

func (w TimeWindow) End() time.Time {
	return w.end
}

func (w TimeWindow) Duration() time.Duration {
	return w.end.Sub(w.start)
}

// IsPlannable reports whether the duration lies in [MinPlannableWindow, MaxPlannableWindow].
func (w TimeWindow) IsPlannable() bool {
	return w.ValidatePlannable() == nil
}

// ValidatePlannable explains why a window is not plannable.
func (w TimeWindow) ValidatePlannable() error {
	d := w.Duration()
	if d < MinPlannableWindow || d > MaxPlannableWindow {
		return errs.NewValueIsOutOfRangeError("time window duration", d, MinPlannableWindow, MaxPlannableWindow)
	}
	return nil
}

// Overlaps uses the strict rule start1 < end2 && end1 > start2, so windows
// that only touch at a boundary do not overlap.
func (w TimeWindow) Overlaps(other TimeWindow) bool {
	return w.start.Before(other.end) && w.end.After(other.start)
}

// Contains reports whether t lies in [start, end).
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.start) && t.Before(w.end)
}

// ContainsWindow reports whether other lies entirely inside w.
func (w TimeWindow) ContainsWindow(other TimeWindow) bool {
	return !other.start.Before(w.start) && !other.end.After(w.end)
}

// HasEnded reports whether the window closed at or before t.
func (w TimeWindow) HasEnded(t time.Time) bool {
	return !t.Before(w.end)
}

func (w TimeWindow) String() string {
	return fmt.Sprintf("TimeWindow(%s..%s)", w.start.Format(time.RFC3339), w.end.Format(time.RFC3339))
}
