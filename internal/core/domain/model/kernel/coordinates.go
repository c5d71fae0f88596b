package kernel

import (
	"errors"
	"fmt"
	"math"

	"lastmile/internal/pkg/errs"
	"lastmile/internal/pkg/guard"
)

const (
	// MinLatitude is the southernmost valid latitude in decimal degrees.
	MinLatitude = -90.0
	// MaxLatitude is the northernmost valid latitude in decimal degrees.
	MaxLatitude = 90.0
	// MinLongitude is the westernmost valid longitude in decimal degrees.
	MinLongitude = -180.0
	// MaxLongitude is the easternmost valid longitude in decimal degrees.
	MaxLongitude = 180.0

	// EarthRadiusKm is the mean Earth radius used by HaversineKm.
	EarthRadiusKm = 6371.0
)

// ErrCoordinatesAreNotConstructed is returned when a zero-value Coordinates is used.
var ErrCoordinatesAreNotConstructed = errs.NewValueIsRequiredError(
	"coordinates must be created via NewCoordinates")

// Coordinates is an immutable WGS84 point in decimal degrees.
// Latitude lies in [MinLatitude, MaxLatitude] and longitude in
// [MinLongitude, MaxLongitude]; NewCoordinates enforces both ranges.
//
// Example:
//
//	saoPaulo, err := kernel.NewCoordinates(-23.5505, -46.6333)
//	if err != nil {
//	    // handle out-of-range input
//	}
//	fmt.Println(saoPaulo) // Coordinates(-23.550500,-46.633300)
type Coordinates struct { //nolint:recvcheck //using for validation
	latitude  float64
	longitude float64
	guard     guard.ConstructorGuard
}

// NewCoordinates validates both ranges and returns the point.
// Range violations are returned together via errors.Join.
func NewCoordinates(latitude, longitude float64) (Coordinates, error) {
	c := Coordinates{guard: guard.NewConstructorGuard()}

	if err := errors.Join(c.setLatitude(latitude), c.setLongitude(longitude)); err != nil {
		return Coordinates{}, err
	}

	return c, nil
}

// Validate returns ErrCoordinatesAreNotConstructed for zero values.
func (c Coordinates) Validate() error {
	return c.guard.Validate(ErrCoordinatesAreNotConstructed)
}

// Latitude returns the latitude in decimal degrees.
func (c Coordinates) Latitude() float64 {
	return c.latitude
}

// Longitude returns the longitude in decimal degrees.
func (c Coordinates) Longitude() float64 {
	return c.longitude
}

// IsEqual compares two constructed points.
func (c Coordinates) IsEqual(other Coordinates) (bool, error) {
	if err := errors.Join(c.Validate(), other.Validate()); err != nil {
		return false, err
	}
	return c.latitude == other.latitude && c.longitude == other.longitude, nil
}

// DistanceKm is shorthand for HaversineKm(c, other).
func (c Coordinates) DistanceKm(other Coordinates) float64 {
	return HaversineKm(c, other)
}

// String implements fmt.Stringer.
func (c Coordinates) String() string {
	return fmt.Sprintf("Coordinates(%f,%f)", c.latitude, c.longitude)
}

// HaversineKm returns the great-circle distance between a and b in kilometres,
// rounded to two decimal places. Identical points yield exactly 0.
//
// Ranges are not re-validated here; callers construct points through
// NewCoordinates.
//
// Example:
//
//	sp, _ := kernel.NewCoordinates(-23.5505, -46.6333)
//	rio, _ := kernel.NewCoordinates(-22.9068, -43.1729)
//	km := kernel.HaversineKm(sp, rio) // ≈ 361.4
func HaversineKm(a, b Coordinates) float64 {
	if a.latitude == b.latitude && a.longitude == b.longitude {
		return 0
	}

	lat1 := degreesToRadians(a.latitude)
	lat2 := degreesToRadians(b.latitude)
	dLat := degreesToRadians(b.latitude - a.latitude)
	dLon := degreesToRadians(b.longitude - a.longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// Rounding can push h marginally outside [0, 1] for antipodal points.
	h = math.Min(1, math.Max(0, h))
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return RoundTo(EarthRadiusKm*c, 2)
}

// Midpoint returns the spherical midpoint of the great-circle segment a–b.
// The longitude of the result is normalised into [-180, 180].
func Midpoint(a, b Coordinates) Coordinates {
	lat1 := degreesToRadians(a.latitude)
	lon1 := degreesToRadians(a.longitude)
	lat2 := degreesToRadians(b.latitude)
	dLon := degreesToRadians(b.longitude - a.longitude)

	bx := math.Cos(lat2) * math.Cos(dLon)
	by := math.Cos(lat2) * math.Sin(dLon)

	lat := math.Atan2(
		math.Sin(lat1)+math.Sin(lat2),
		math.Sqrt((math.Cos(lat1)+bx)*(math.Cos(lat1)+bx)+by*by),
	)
	lon := lon1 + math.Atan2(by, math.Cos(lat1)+bx)

	return Coordinates{
		latitude:  radiansToDegrees(lat),
		longitude: normalizeLongitude(radiansToDegrees(lon)),
		guard:     guard.NewConstructorGuard(),
	}
}

// RoundTo rounds v to the given number of decimal places.
func RoundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func (c *Coordinates) setLatitude(latitude float64) error {
	if math.IsNaN(latitude) || latitude < MinLatitude || latitude > MaxLatitude {
		return errs.NewValueIsOutOfRangeError("latitude", latitude, MinLatitude, MaxLatitude)
	}
	c.latitude = latitude
	return nil
}

func (c *Coordinates) setLongitude(longitude float64) error {
	if math.IsNaN(longitude) || longitude < MinLongitude || longitude > MaxLongitude {
		return errs.NewValueIsOutOfRangeError("longitude", longitude, MinLongitude, MaxLongitude)
	}
	c.longitude = longitude
	return nil
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func radiansToDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

func normalizeLongitude(lon float64) float64 {
	lon = math.Mod(lon+540, 360) - 180
	if lon == -180 {
		return 180
	}
	return lon
}
