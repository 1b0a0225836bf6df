package drawdown

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/drawdown/internal/curve"
	"github.com/san-kum/drawdown/internal/hydraulics"
)

type Simulator struct {
	cfg       Config
	phase     Phase
	outlet    hydraulics.Outlet
	capacity  *curve.Curve
	area      *curve.Curve
	initial   InitialCondition
	metrics   []Metric
	observers []Observer
}

func New(cfg Config) *Simulator {
	return &Simulator{
		cfg:       cfg,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Phase() Phase   { return s.phase }
func (s *Simulator) Config() Config { return s.cfg }

// Configure validates everything a run needs and moves the simulator to
// Configured. The area curve is optional; when present each state records
// the surface area at its elevation.
func (s *Simulator) Configure(outlet hydraulics.Outlet, capacity, area *curve.Curve, init InitialCondition) error {
	if err := s.cfg.validate(); err != nil {
		return err
	}
	if err := outlet.Validate(); err != nil {
		return &ConfigurationError{Field: "outlet", Err: err}
	}
	if capacity == nil {
		return invalid("capacity curve", "required")
	}
	if capacity.Kind() != curve.Storage {
		return invalid("capacity curve", "expected storage curve, got %s", capacity.Kind())
	}
	if !capacity.Invertible() {
		return &ConfigurationError{Field: "capacity curve", Err: curve.ErrNoInverse}
	}
	if area != nil && area.Kind() != curve.Area {
		return invalid("area curve", "expected area curve, got %s", area.Kind())
	}
	if !isFinite(init.Elevation) {
		return invalid("initial elevation", "must be finite, got %g", init.Elevation)
	}
	if !isFinite(init.Head) {
		return invalid("initial head", "must be finite, got %g", init.Head)
	}

	s.outlet = outlet
	s.capacity = capacity
	s.area = area
	s.initial = init
	s.phase = Configured
	return nil
}

// StorageAt returns the capacity-curve storage at an elevation.
func (s *Simulator) StorageAt(elevation float64) (float64, error) {
	if s.capacity == nil {
		return 0, ErrNotConfigured
	}
	return s.capacity.At(elevation)
}

// Run advances the reservoir for exactly cfg.Steps steps. On cancellation
// the partial result is returned with ctx.Err().
func (s *Simulator) Run(ctx context.Context) (*Result, error) {
	if s.phase == Uninitialized {
		return nil, ErrNotConfigured
	}

	n := s.cfg.Steps
	result := &Result{
		States:   make([]State, 0, n),
		Dt:       s.cfg.Dt,
		Steps:    n,
		TimeUnit: s.cfg.TimeUnit,
		Policy:   s.cfg.Policy.String(),
		Outlet:   s.outlet,
		Initial:  s.initial,
		Metrics:  make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		var prev *State
		if i > 0 {
			prev = &result.States[i-1]
		}

		st, err := s.step(i, prev)
		if err != nil {
			return nil, err
		}

		result.States = append(result.States, st)

		for _, m := range s.metrics {
			m.Observe(st)
		}
		for _, obs := range s.observers {
			obs.OnStep(st)
		}
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	s.phase = Completed
	return result, nil
}

func (s *Simulator) step(i int, prev *State) (State, error) {
	st := State{Step: i, Time: float64(i+1) * s.cfg.Dt}

	if prev == nil {
		st.Elevation = s.initial.Elevation
		st.Head = s.initial.Head
		sto, err := s.capacity.At(st.Elevation)
		if err != nil {
			return st, &ComputationError{Step: i, Field: "storage_initial", Value: st.Elevation, Err: err}
		}
		st.StorageInitial = sto
	} else {
		st.StorageInitial = prev.StorageFinal
		elev, err := s.capacity.ElevationAt(prev.StorageFinal)
		if err != nil {
			return st, &ComputationError{Step: i, Field: "elevation", Value: prev.StorageFinal, Err: err}
		}
		st.Elevation = elev
		st.Head = prev.Head + (st.Elevation - prev.Elevation)
	}

	if !isFinite(st.Head) {
		return st, &ComputationError{Step: i, Field: "head", Value: st.Head, Err: ErrNonFinite}
	}

	area := s.outlet.Area()
	st.Discharge = s.outlet.Flow(st.Head)
	st.VolumeChange = st.Discharge * s.cfg.FlowToVolume / s.cfg.Dt

	if s.cfg.Policy == ClampAndContinue && st.VolumeChange > st.StorageInitial {
		remaining := math.Max(0, st.StorageInitial)
		st.Discharge = remaining * s.cfg.Dt / s.cfg.FlowToVolume
		st.VolumeChange = remaining
	}

	st.Velocity = st.Discharge / area
	st.StorageFinal = st.StorageInitial - st.VolumeChange

	if s.area != nil {
		a, err := s.area.At(st.Elevation)
		if err != nil {
			return st, &ComputationError{Step: i, Field: "surface_area", Value: st.Elevation, Err: err}
		}
		st.SurfaceArea = a
	}

	if f, bad := st.firstNonFinite(); bad {
		return st, &ComputationError{Step: i, Field: f.String(), Value: st.Value(f), Err: ErrNonFinite}
	}
	return st, nil
}

// RunWithCallback steps without collecting a Result. The callback returns
// false to stop early.
func (s *Simulator) RunWithCallback(ctx context.Context, callback func(State) bool) error {
	if s.phase == Uninitialized {
		return ErrNotConfigured
	}

	var prev State
	for i := 0; i < s.cfg.Steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var p *State
		if i > 0 {
			p = &prev
		}
		st, err := s.step(i, p)
		if err != nil {
			return err
		}
		if !callback(st) {
			return nil
		}
		prev = st
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (s *Simulator) String() string {
	return fmt.Sprintf("drawdown.Simulator{phase=%s dt=%g steps=%d}", s.phase, s.cfg.Dt, s.cfg.Steps)
}
