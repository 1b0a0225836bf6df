package curve

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"
)

var (
	ErrTooFewPoints   = errors.New("curve: at least two points required")
	ErrLengthMismatch = errors.New("curve: elevation and quantity columns differ in length")
	ErrNotMonotonic   = errors.New("curve: values must be strictly increasing")
	ErrNoInverse      = errors.New("curve: quantities are not strictly increasing, no inverse lookup")
	ErrOutOfDomain    = errors.New("curve: query outside table domain")
)

type Kind int

const (
	Storage Kind = iota
	Area
)

func (k Kind) String() string {
	switch k {
	case Storage:
		return "storage"
	case Area:
		return "area"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// DomainError is returned by strict curves for queries outside the table.
type DomainError struct {
	Axis  string
	Query float64
	Min   float64
	Max   float64
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("curve: %s %.4f outside [%.4f, %.4f]", e.Axis, e.Query, e.Min, e.Max)
}

func (e *DomainError) Unwrap() error { return ErrOutOfDomain }

type Point struct {
	Elevation float64
	Quantity  float64
}

type Curve struct {
	kind    Kind
	elev    []float64
	qty     []float64
	forward interp.PiecewiseLinear
	inverse *interp.PiecewiseLinear
	strict  bool
}

// New builds a curve from columns sorted by ascending elevation. The input
// slices are copied.
func New(kind Kind, elevations, quantities []float64) (*Curve, error) {
	if err := checkColumns(elevations, quantities); err != nil {
		return nil, fmt.Errorf("%s curve: %w", kind, err)
	}

	c := &Curve{
		kind: kind,
		elev: append([]float64(nil), elevations...),
		qty:  append([]float64(nil), quantities...),
	}
	for i, q := range c.qty {
		if math.IsNaN(q) || math.IsInf(q, 0) {
			return nil, fmt.Errorf("%s curve: non-finite quantity at row %d", kind, i)
		}
	}

	if err := c.forward.Fit(c.elev, c.qty); err != nil {
		return nil, fmt.Errorf("%s curve: %w", kind, err)
	}

	if strictlyIncreasing(c.qty) {
		inv := &interp.PiecewiseLinear{}
		if err := inv.Fit(c.qty, c.elev); err != nil {
			return nil, fmt.Errorf("%s curve inverse: %w", kind, err)
		}
		c.inverse = inv
	}

	return c, nil
}

func FromPoints(kind Kind, pts []Point) (*Curve, error) {
	elev := make([]float64, len(pts))
	qty := make([]float64, len(pts))
	for i, p := range pts {
		elev[i] = p.Elevation
		qty[i] = p.Quantity
	}
	return New(kind, elev, qty)
}

func (c *Curve) Kind() Kind       { return c.kind }
func (c *Curve) Len() int         { return len(c.elev) }
func (c *Curve) Invertible() bool { return c.inverse != nil }
func (c *Curve) IsStrict() bool   { return c.strict }

// Strict returns a view of the curve that fails on out-of-domain queries.
func (c *Curve) Strict() *Curve {
	cp := *c
	cp.strict = true
	return &cp
}

func (c *Curve) Points() []Point {
	pts := make([]Point, len(c.elev))
	for i := range c.elev {
		pts[i] = Point{Elevation: c.elev[i], Quantity: c.qty[i]}
	}
	return pts
}

// Bounds returns the elevation domain.
func (c *Curve) Bounds() (lo, hi float64) {
	return c.elev[0], c.elev[len(c.elev)-1]
}

// QuantityBounds returns the smallest and largest tabulated quantities.
func (c *Curve) QuantityBounds() (lo, hi float64) {
	lo, hi = c.qty[0], c.qty[0]
	for _, q := range c.qty[1:] {
		lo = math.Min(lo, q)
		hi = math.Max(hi, q)
	}
	return lo, hi
}

// At returns the quantity at the given elevation.
func (c *Curve) At(elevation float64) (float64, error) {
	if math.IsNaN(elevation) {
		return math.NaN(), nil
	}
	if c.strict {
		lo, hi := c.Bounds()
		if elevation < lo || elevation > hi {
			return 0, &DomainError{Axis: "elevation", Query: elevation, Min: lo, Max: hi}
		}
	}
	return c.forward.Predict(elevation), nil
}

// ElevationAt returns the elevation holding the given quantity.
func (c *Curve) ElevationAt(quantity float64) (float64, error) {
	if c.inverse == nil {
		return 0, fmt.Errorf("%s curve: %w", c.kind, ErrNoInverse)
	}
	if math.IsNaN(quantity) {
		return math.NaN(), nil
	}
	if c.strict {
		lo, hi := c.qty[0], c.qty[len(c.qty)-1]
		if quantity < lo || quantity > hi {
			return 0, &DomainError{Axis: c.kind.String(), Query: quantity, Min: lo, Max: hi}
		}
	}
	return c.inverse.Predict(quantity), nil
}

// Interpolate linearly interpolates ys over ascending xs at x, clamping to
// the end values outside the domain.
func Interpolate(x float64, xs, ys []float64) (float64, error) {
	if err := checkColumns(xs, ys); err != nil {
		return 0, err
	}
	if math.IsNaN(x) {
		return math.NaN(), nil
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return 0, err
	}
	return pl.Predict(x), nil
}

func checkColumns(xs, ys []float64) error {
	if len(xs) != len(ys) {
		return fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(xs), len(ys))
	}
	if len(xs) < 2 {
		return ErrTooFewPoints
	}
	for i := 1; i < len(xs); i++ {
		if !(xs[i] > xs[i-1]) {
			return fmt.Errorf("%w: row %d (%g after %g)", ErrNotMonotonic, i, xs[i], xs[i-1])
		}
	}
	if math.IsInf(xs[0], 0) || math.IsInf(xs[len(xs)-1], 0) {
		return fmt.Errorf("%w: infinite bound", ErrNotMonotonic)
	}
	return nil
}

func strictlyIncreasing(v []float64) bool {
	for i := 1; i < len(v); i++ {
		if !(v[i] > v[i-1]) {
			return false
		}
	}
	return true
}
