// Package curve provides the reservoir area and capacity curves.
//
// A [Curve] is an immutable table of (elevation, quantity) pairs with
// strictly increasing elevations. Lookups are piecewise linear and clamp to
// the first or last sample outside the table domain:
//
//   - [Curve.At]: elevation to quantity (area or storage)
//   - [Curve.ElevationAt]: quantity to elevation, for curves whose
//     quantities also increase strictly (capacity curves)
//   - [Interpolate]: one-off lookup over raw slices
//
// # Strict mode
//
// [Curve.Strict] returns a view of the same table that rejects queries
// outside the domain with a [*DomainError] instead of clamping.
package curve
