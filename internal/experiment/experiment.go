package experiment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/san-kum/drawdown/internal/config"
	"github.com/san-kum/drawdown/internal/curve"
	"github.com/san-kum/drawdown/internal/drawdown"
	"github.com/san-kum/drawdown/internal/hydraulics"
	"github.com/san-kum/drawdown/internal/summary"
	"github.com/san-kum/drawdown/internal/tables"
)

// Scenario is everything one drawdown run needs, with curves already loaded.
type Scenario struct {
	Name      string
	Sim       drawdown.Config
	Outlet    hydraulics.Outlet
	Capacity  *curve.Curve
	Area      *curve.Curve
	Initial   drawdown.InitialCondition
	Criterion summary.Criterion
}

// FromConfig loads the curves named by cfg and assembles a Scenario.
func FromConfig(cfg *config.Config) (Scenario, error) {
	simCfg, err := cfg.GetSimConfig()
	if err != nil {
		return Scenario{}, err
	}
	outlet, err := cfg.GetOutlet()
	if err != nil {
		return Scenario{}, fmt.Errorf("outlet: %w", err)
	}

	capacity, err := LoadCurve(cfg.Curves.Capacity, curve.Storage)
	if err != nil {
		return Scenario{}, err
	}
	var area *curve.Curve
	if !cfg.Curves.Area.IsZero() {
		if area, err = LoadCurve(cfg.Curves.Area, curve.Area); err != nil {
			return Scenario{}, err
		}
	}
	if cfg.StrictCurves {
		capacity = capacity.Strict()
		if area != nil {
			area = area.Strict()
		}
	}

	return Scenario{
		Name:      cfg.Name,
		Sim:       simCfg,
		Outlet:    outlet,
		Capacity:  capacity,
		Area:      area,
		Initial:   cfg.GetInitialCondition(),
		Criterion: cfg.Criterion,
	}, nil
}

// LoadCurve builds a curve from a CSV path or inline points.
func LoadCurve(src config.CurveSource, kind curve.Kind) (*curve.Curve, error) {
	if src.Path != "" {
		return tables.LoadCurve(src.Path, kind)
	}
	pts := make([]curve.Point, len(src.Points))
	for i, p := range src.Points {
		pts[i] = curve.Point{Elevation: p.Elevation, Quantity: p.Value}
	}
	c, err := tables.FromPoints(kind, pts)
	if err != nil {
		return nil, fmt.Errorf("inline %s curve: %w", kind, err)
	}
	return c, nil
}

// WithLossCoefficient returns a copy of the scenario with a different K_eq.
func (s Scenario) WithLossCoefficient(k float64) Scenario {
	s.Outlet = s.Outlet.WithLossCoefficient(k)
	return s
}

// Outcome pairs a finished run with its summary.
type Outcome struct {
	Result  *drawdown.Result
	Summary summary.Summary
}

type Experiment struct {
	scenario  Scenario
	logger    *slog.Logger
	metrics   []drawdown.Metric
	observers []drawdown.Observer
	simulator *drawdown.Simulator
}

type Option func(*Experiment)

func WithLogger(l *slog.Logger) Option {
	return func(e *Experiment) { e.logger = l }
}

func WithMetrics(ms ...drawdown.Metric) Option {
	return func(e *Experiment) { e.metrics = append(e.metrics, ms...) }
}

func WithObserver(o drawdown.Observer) Option {
	return func(e *Experiment) { e.observers = append(e.observers, o) }
}

func New(scenario Scenario, opts ...Option) *Experiment {
	e := &Experiment{scenario: scenario, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Experiment) Scenario() Scenario { return e.scenario }

func (e *Experiment) Setup() error {
	sim := drawdown.New(e.scenario.Sim)
	for _, m := range e.metrics {
		sim.AddMetric(m)
	}
	for _, o := range e.observers {
		sim.AddObserver(o)
	}
	if err := sim.Configure(e.scenario.Outlet, e.scenario.Capacity, e.scenario.Area, e.scenario.Initial); err != nil {
		return err
	}
	e.simulator = sim
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*Outcome, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}

	e.logger.Debug("starting drawdown run",
		"name", e.scenario.Name,
		"steps", e.scenario.Sim.Steps,
		"dt", e.scenario.Sim.Dt,
		"policy", e.scenario.Sim.Policy,
		"k_eq", e.scenario.Outlet.LossCoefficient,
	)

	res, err := e.simulator.Run(ctx)
	if err != nil {
		return nil, err
	}

	sum := summary.Summarize(res, e.scenario.Criterion)
	e.logger.Debug("drawdown run finished",
		"name", e.scenario.Name,
		"target_reached", sum.Target.Reached,
		"target_time", sum.Target.Time,
		"drained", sum.Drained.Reached,
		"drain_time", sum.Drained.Time,
	)
	return &Outcome{Result: res, Summary: sum}, nil
}

// StorageAt looks up storage on the configured simulator's capacity curve,
// honoring strict curves.
func (e *Experiment) StorageAt(elevation float64) (float64, error) {
	if e.simulator == nil {
		return 0, fmt.Errorf("experiment not setup")
	}
	return e.simulator.StorageAt(elevation)
}

// Execute is New, Setup and Run in one call.
func Execute(ctx context.Context, scenario Scenario, opts ...Option) (*Outcome, error) {
	exp := New(scenario, opts...)
	if err := exp.Setup(); err != nil {
		return nil, err
	}
	return exp.Run(ctx)
}
