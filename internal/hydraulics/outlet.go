package hydraulics

import (
	"fmt"
	"math"
)

// Gravity is gravitational acceleration in ft/s².
const Gravity = 32.2

// Outlet is a set of identical conduits opened together.
type Outlet struct {
	Multiplicity    int     `json:"multiplicity" yaml:"multiplicity"`
	Diameter        float64 `json:"diameter" yaml:"diameter"`
	LossCoefficient float64 `json:"loss_coefficient" yaml:"loss_coefficient"`
}

func (o Outlet) Area() float64 {
	return math.Pi / 4 * o.Diameter * o.Diameter
}

// HydraulicRadius is flow area over wetted perimeter for a full pipe.
func (o Outlet) HydraulicRadius() float64 {
	return o.Area() / (math.Pi * o.Diameter)
}

// WithLossCoefficient returns a copy of the outlet with k replaced.
func (o Outlet) WithLossCoefficient(k float64) Outlet {
	o.LossCoefficient = k
	return o
}

func (o Outlet) Validate() error {
	if o.Multiplicity <= 0 {
		return fmt.Errorf("multiplicity must be positive, got %d", o.Multiplicity)
	}
	if !(o.Diameter > 0) || math.IsInf(o.Diameter, 0) {
		return fmt.Errorf("diameter must be positive, got %g", o.Diameter)
	}
	if !(o.LossCoefficient > 0) || math.IsInf(o.LossCoefficient, 0) {
		return fmt.Errorf("loss coefficient must be positive, got %g", o.LossCoefficient)
	}
	if !(o.Area() > 0) {
		return fmt.Errorf("outlet area must be positive, got %g", o.Area())
	}
	return nil
}

// Discharge returns the flow through a single conduit of the given area
// under head, Q = A·sqrt(2gH/K). Head must be positive; callers treat
// non-positive head as zero flow.
func Discharge(head, area, k float64) float64 {
	return area * math.Sqrt(2*Gravity*head/k)
}

// Flow returns the combined discharge of all conduits, zero when head is
// not positive.
func (o Outlet) Flow(head float64) float64 {
	if !(head > 0) {
		return 0
	}
	q := float64(o.Multiplicity) * Discharge(head, o.Area(), o.LossCoefficient)
	return math.Max(0, q)
}
