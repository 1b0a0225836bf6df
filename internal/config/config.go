package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/san-kum/drawdown/internal/drawdown"
	"github.com/san-kum/drawdown/internal/hydraulics"
	"github.com/san-kum/drawdown/internal/summary"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDt       = 1.0
	DefaultSteps    = 1200
	DefaultTimeUnit = "hr"
	DefaultPolicy   = "clamp"
	DefaultWorkers  = 4
)

var DefaultRatios = []float64{0.5, 1.0, 1.5, 2.0}

type Config struct {
	Name         string            `yaml:"name"`
	Dt           float64           `yaml:"dt"`
	Steps        int               `yaml:"steps"`
	TimeUnit     string            `yaml:"time_unit"`
	FlowToVolume float64           `yaml:"flow_to_volume"`
	Policy       string            `yaml:"policy"`
	StrictCurves bool              `yaml:"strict_curves"`
	Outlet       OutletConfig      `yaml:"outlet"`
	Reservoir    ReservoirConfig   `yaml:"reservoir"`
	Curves       CurvesConfig      `yaml:"curves"`
	Criterion    summary.Criterion `yaml:"criterion"`
	Sensitivity  SensitivityConfig `yaml:"sensitivity"`
}

type OutletConfig struct {
	Multiplicity    int     `yaml:"multiplicity"`
	Diameter        float64 `yaml:"diameter"`
	LossCoefficient float64 `yaml:"loss_coefficient,omitempty"`
	// Losses, when set, replaces LossCoefficient with the itemised total.
	Losses *hydraulics.LossBudget `yaml:"losses,omitempty"`
}

type ReservoirConfig struct {
	InitialElevation float64 `yaml:"initial_elevation"`
	InitialHead      float64 `yaml:"initial_head"`
}

type CurvesConfig struct {
	Area     CurveSource `yaml:"area"`
	Capacity CurveSource `yaml:"capacity"`
}

// CurveSource is either a CSV path or inline points, never both.
type CurveSource struct {
	Path   string        `yaml:"path,omitempty"`
	Points []PointConfig `yaml:"points,omitempty"`
}

func (c CurveSource) IsZero() bool { return c.Path == "" && len(c.Points) == 0 }

type PointConfig struct {
	Elevation float64 `yaml:"elevation"`
	Value     float64 `yaml:"value"`
}

type SensitivityConfig struct {
	Ratios  []float64 `yaml:"ratios"`
	Workers int       `yaml:"workers"`
}

func DefaultConfig() *Config {
	return &Config{
		Name:         "drawdown-analysis",
		Dt:           DefaultDt,
		Steps:        DefaultSteps,
		TimeUnit:     DefaultTimeUnit,
		FlowToVolume: drawdown.DefaultFlowToVolume,
		Policy:       DefaultPolicy,
		Sensitivity: SensitivityConfig{
			Ratios:  append([]float64(nil), DefaultRatios...),
			Workers: DefaultWorkers,
		},
	}
}

// Load reads a YAML file over DefaultConfig. Relative curve paths are
// resolved against the config file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	dir := filepath.Dir(path)
	for _, src := range []*CurveSource{&cfg.Curves.Area, &cfg.Curves.Capacity} {
		if src.Path != "" && !filepath.IsAbs(src.Path) {
			src.Path = filepath.Join(dir, src.Path)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if !(c.Dt > 0) {
		add("dt must be greater than 0")
	}
	if c.Steps <= 0 {
		add("steps must be greater than 0")
	}
	if !(c.FlowToVolume > 0) {
		add("flow_to_volume must be greater than 0")
	}
	if _, err := drawdown.ParsePolicy(c.Policy); err != nil {
		add("policy: %v", err)
	}

	if c.Outlet.Multiplicity <= 0 {
		add("outlet.multiplicity must be greater than 0")
	}
	if !(c.Outlet.Diameter > 0) {
		add("outlet.diameter must be greater than 0")
	}
	if c.Outlet.Losses == nil && !(c.Outlet.LossCoefficient > 0) {
		add("outlet.loss_coefficient must be greater than 0 (or give outlet.losses)")
	}
	if c.Outlet.Losses != nil && c.Outlet.Diameter > 0 {
		if _, err := c.Outlet.Losses.Total(c.Outlet.Diameter); err != nil {
			add("outlet.losses: %v", err)
		}
	}

	if math.IsNaN(c.Reservoir.InitialElevation) || math.IsNaN(c.Reservoir.InitialHead) {
		add("reservoir initial elevation and head must be numbers")
	}

	if c.Curves.Capacity.IsZero() {
		add("curves.capacity is required")
	}
	for name, src := range map[string]CurveSource{"area": c.Curves.Area, "capacity": c.Curves.Capacity} {
		if src.Path != "" && len(src.Points) > 0 {
			add("curves.%s: give either path or points, not both", name)
		}
	}

	for i, r := range c.Sensitivity.Ratios {
		if !(r > 0) {
			add("sensitivity.ratios[%d] must be greater than 0, got %g", i, r)
		}
	}
	if c.Sensitivity.Workers < 0 {
		add("sensitivity.workers must not be negative")
	}

	return errors.Join(errs...)
}

// LossCoefficient returns K_eq, from the loss budget when one is given.
func (c *Config) LossCoefficient() (float64, error) {
	if c.Outlet.Losses != nil {
		return c.Outlet.Losses.Total(c.Outlet.Diameter)
	}
	return c.Outlet.LossCoefficient, nil
}

func (c *Config) GetOutlet() (hydraulics.Outlet, error) {
	k, err := c.LossCoefficient()
	if err != nil {
		return hydraulics.Outlet{}, err
	}
	return hydraulics.Outlet{
		Multiplicity:    c.Outlet.Multiplicity,
		Diameter:        c.Outlet.Diameter,
		LossCoefficient: k,
	}, nil
}

func (c *Config) GetSimConfig() (drawdown.Config, error) {
	policy, err := drawdown.ParsePolicy(c.Policy)
	if err != nil {
		return drawdown.Config{}, err
	}
	return drawdown.Config{
		Dt:           c.Dt,
		Steps:        c.Steps,
		FlowToVolume: c.FlowToVolume,
		TimeUnit:     c.TimeUnit,
		Policy:       policy,
	}, nil
}

func (c *Config) GetInitialCondition() drawdown.InitialCondition {
	return drawdown.InitialCondition{
		Elevation: c.Reservoir.InitialElevation,
		Head:      c.Reservoir.InitialHead,
	}
}
