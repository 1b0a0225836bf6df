package config

import (
	"sort"

	"github.com/san-kum/drawdown/internal/hydraulics"
	"github.com/san-kum/drawdown/internal/summary"
)

// bowl tabulates storage = k·(e−bottom)² every step feet up to top.
func bowl(bottom, top, step, k float64) []PointConfig {
	pts := make([]PointConfig, 0, int((top-bottom)/step)+1)
	for e := bottom; e <= top; e += step {
		d := e - bottom
		pts = append(pts, PointConfig{Elevation: e, Value: k * d * d})
	}
	return pts
}

// surface is the area curve matching bowl: dS/de = 2k·(e−bottom).
func surface(bottom, top, step, k float64) []PointConfig {
	pts := make([]PointConfig, 0, int((top-bottom)/step)+1)
	for e := bottom; e <= top; e += step {
		pts = append(pts, PointConfig{Elevation: e, Value: 2 * k * (e - bottom)})
	}
	return pts
}

var Presets = map[string]*Config{
	"low-level-outlet": {
		Name: "low-level-outlet", Dt: 1, Steps: 1100, TimeUnit: "hr", Policy: "clamp",
		Outlet:    OutletConfig{Multiplicity: 2, Diameter: 3.0, LossCoefficient: 3.0},
		Reservoir: ReservoirConfig{InitialElevation: 2224, InitialHead: 85},
		Curves: CurvesConfig{
			Area:     CurveSource{Points: surface(2139, 2230, 1, 1.5)},
			Capacity: CurveSource{Points: bowl(2139, 2230, 1, 1.5)},
		},
		Criterion:   summary.Criterion{TargetElevation: 2209.6, Label: "10% reservoir head in 7 days", Deadline: 168},
		Sensitivity: SensitivityConfig{Ratios: []float64{0.5, 1.0, 1.5, 2.0}, Workers: 4},
	},
	"itemised-losses": {
		Name: "itemised-losses", Dt: 1, Steps: 1100, TimeUnit: "hr", Policy: "clamp",
		Outlet: OutletConfig{
			Multiplicity: 2,
			Diameter:     3.0,
			Losses: &hydraulics.LossBudget{
				Segments: []hydraulics.PipeSegment{
					{Name: "steel", Length: 35, Roughness: 0.012},
					{Name: "ductile iron", Length: 15, Roughness: 0.061},
				},
				TrashRackRatio: 0.62,
				Entrance:       0.23,
				Valves:         []float64{0.10, 0.10},
				Bends:          []float64{1.0},
			},
		},
		Reservoir: ReservoirConfig{InitialElevation: 2224, InitialHead: 85},
		Curves: CurvesConfig{
			Area:     CurveSource{Points: surface(2139, 2230, 1, 1.5)},
			Capacity: CurveSource{Points: bowl(2139, 2230, 1, 1.5)},
		},
		Criterion:   summary.Criterion{TargetElevation: 2209.6, Label: "10% reservoir head in 7 days", Deadline: 168},
		Sensitivity: SensitivityConfig{Ratios: []float64{0.75, 1.0, 1.25}, Workers: 4},
	},
	"farm-pond": {
		Name: "farm-pond", Dt: 0.25, Steps: 800, TimeUnit: "hr", Policy: "clamp",
		FlowToVolume: 0.08264462912563 * 0.25 * 0.25,
		Outlet:       OutletConfig{Multiplicity: 1, Diameter: 1.0, LossCoefficient: 2.5},
		Reservoir:    ReservoirConfig{InitialElevation: 112, InitialHead: 12},
		Curves: CurvesConfig{
			Area:     CurveSource{Points: surface(100, 114, 0.5, 0.4)},
			Capacity: CurveSource{Points: bowl(100, 114, 0.5, 0.4)},
		},
		Criterion:   summary.Criterion{TargetElevation: 110.8, Label: "10% head in 24 hours", Deadline: 24},
		Sensitivity: SensitivityConfig{Ratios: []float64{0.5, 1.0, 2.0}, Workers: 2},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := *p
	cfg.Sensitivity.Ratios = append([]float64(nil), p.Sensitivity.Ratios...)
	cfg.Curves.Area.Points = append([]PointConfig(nil), p.Curves.Area.Points...)
	cfg.Curves.Capacity.Points = append([]PointConfig(nil), p.Curves.Capacity.Points...)
	if p.Outlet.Losses != nil {
		losses := *p.Outlet.Losses
		losses.Segments = append([]hydraulics.PipeSegment(nil), losses.Segments...)
		losses.Valves = append([]float64(nil), losses.Valves...)
		losses.Bends = append([]float64(nil), losses.Bends...)
		cfg.Outlet.Losses = &losses
	}
	if cfg.FlowToVolume == 0 {
		cfg.FlowToVolume = DefaultConfig().FlowToVolume
	}
	return &cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
