package services

import (
	"errors"
	"math"

	"lastmile/internal/core/domain/model/delivery"
	"lastmile/internal/pkg/errs"
)

// DefaultAverageSpeedKmh is the urban average used when no speed is configured.
const DefaultAverageSpeedKmh = 45.0

// ETAEstimator converts a distance into whole minutes of travel for a priority.
//
// minutes = distanceKm / speedKmh * 60 * etaMultiplier(priority), rounded to
// the nearest minute. Higher priority gets a smaller multiplier: it models
// less queuing, not faster driving.
type ETAEstimator struct {
	speedKmh float64
	table    PriorityTable
}

// NewETAEstimator creates an estimator with the given average speed.
//
// Returns an error when speedKmh is not positive or table is not constructed.
func NewETAEstimator(speedKmh float64, table PriorityTable) (ETAEstimator, error) {
	var speedErr error
	if math.IsNaN(speedKmh) || math.IsInf(speedKmh, 0) || speedKmh <= 0 {
		speedErr = errs.NewValueIsOutOfRangeError("average speed km/h", speedKmh, "> 0", "+Inf")
	}
	if err := errors.Join(speedErr, table.Validate()); err != nil {
		return ETAEstimator{}, err
	}
	return ETAEstimator{speedKmh: speedKmh, table: table}, nil
}

// DefaultETAEstimator runs at DefaultAverageSpeedKmh with DefaultPriorityTable.
func DefaultETAEstimator() ETAEstimator {
	return ETAEstimator{speedKmh: DefaultAverageSpeedKmh, table: DefaultPriorityTable()}
}

// SpeedKmh returns the configured average speed.
func (e ETAEstimator) SpeedKmh() float64 {
	return e.speedKmh
}

// EstimateMinutes estimates at the configured speed.
//
// Example:
//
//	e := services.DefaultETAEstimator()
//	e.EstimateMinutes(45, delivery.PriorityNormal)   // 60, nil
//	e.EstimateMinutes(45, delivery.PriorityCritical) // 30, nil
//	e.EstimateMinutes(0, delivery.PriorityLow)       // 0, nil
func (e ETAEstimator) EstimateMinutes(distanceKm float64, priority delivery.Priority) (float64, error) {
	return e.EstimateMinutesAtSpeed(distanceKm, priority, e.speedKmh)
}

// EstimateMinutesAtSpeed estimates at an explicit speed. A non-positive or
// non-finite speed falls back to the configured one. Non-positive distances
// return 0; NaN or infinite distances return a ValueIsOutOfRangeError.
func (e ETAEstimator) EstimateMinutesAtSpeed(distanceKm float64, priority delivery.Priority, speedKmh float64) (float64, error) {
	if math.IsNaN(distanceKm) || math.IsInf(distanceKm, 0) {
		return 0, errs.NewValueIsOutOfRangeError("distance km", distanceKm, 0, "finite")
	}
	if distanceKm <= 0 {
		return 0, nil
	}
	if math.IsNaN(speedKmh) || math.IsInf(speedKmh, 0) || speedKmh <= 0 {
		speedKmh = e.speedKmh
	}
	if speedKmh <= 0 {
		speedKmh = DefaultAverageSpeedKmh
	}
	minutes := distanceKm / speedKmh * 60 * e.table.ETAMultiplier(priority)
	return math.Round(minutes), nil
}
