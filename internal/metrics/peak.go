package metrics

import (
	"math"

	"github.com/san-kum/drawdown/internal/drawdown"
)

// Peak tracks the largest value of one state field.
type Peak struct {
	name  string
	field drawdown.Field
	max   float64
	seen  bool
}

func NewPeak(field drawdown.Field) *Peak {
	return &Peak{
		name:  "peak_" + field.String(),
		field: field,
	}
}

func NewPeakDischarge() *Peak { return NewPeak(drawdown.FieldDischarge) }
func NewPeakVelocity() *Peak  { return NewPeak(drawdown.FieldVelocity) }

func (p *Peak) Name() string { return p.name }

func (p *Peak) Observe(s drawdown.State) {
	v := s.Value(p.field)
	if !p.seen || v > p.max {
		p.max = v
		p.seen = true
	}
}

func (p *Peak) Value() float64 {
	if !p.seen {
		return math.NaN()
	}
	return p.max
}

func (p *Peak) Reset() {
	p.max = 0
	p.seen = false
}
