// Package kernel provides the shared value objects of the delivery domain.
//
// The package includes:
//   - UUID: identifier value object wrapping github.com/google/uuid
//   - Coordinates: a validated WGS84 point, with HaversineKm and Midpoint
//   - TimeWindow: a start/end interval with overlap and containment queries
//
// All values are immutable and safe for concurrent use. Zero values are invalid
// and fail Validate; use the constructors.
package kernel
