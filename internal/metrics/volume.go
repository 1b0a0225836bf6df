package metrics

import (
	"github.com/san-kum/drawdown/internal/drawdown"
)

// VolumeReleased sums the storage removed over the run.
type VolumeReleased struct {
	name  string
	total float64
}

func NewVolumeReleased() *VolumeReleased {
	return &VolumeReleased{name: "volume_released"}
}

func (v *VolumeReleased) Name() string { return v.name }

func (v *VolumeReleased) Observe(s drawdown.State) {
	v.total += s.VolumeChange
}

func (v *VolumeReleased) Value() float64 { return v.total }

func (v *VolumeReleased) Reset() { v.total = 0 }

// MaxDrawdown is the largest elevation drop below the first observed
// elevation.
type MaxDrawdown struct {
	name    string
	start   float64
	lowest  float64
	samples int
}

func NewMaxDrawdown() *MaxDrawdown {
	return &MaxDrawdown{name: "max_drawdown"}
}

func (m *MaxDrawdown) Name() string { return m.name }

func (m *MaxDrawdown) Observe(s drawdown.State) {
	if m.samples == 0 {
		m.start = s.Elevation
		m.lowest = s.Elevation
	}
	if s.Elevation < m.lowest {
		m.lowest = s.Elevation
	}
	m.samples++
}

func (m *MaxDrawdown) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.start - m.lowest
}

func (m *MaxDrawdown) Reset() {
	m.start = 0
	m.lowest = 0
	m.samples = 0
}

// Default returns a fresh set of run metrics. Metrics hold state, so each
// simulator needs its own set.
func Default() []drawdown.Metric {
	return []drawdown.Metric{
		NewPeakDischarge(),
		NewPeakVelocity(),
		NewVolumeReleased(),
		NewMaxDrawdown(),
	}
}
