package experiment

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/drawdown/internal/config"
	"github.com/san-kum/drawdown/internal/curve"
	"github.com/san-kum/drawdown/internal/drawdown"
)

func presetScenario(t *testing.T) Scenario {
	t.Helper()
	scenario, err := FromConfig(config.GetPreset("low-level-outlet"))
	if err != nil {
		t.Fatalf("scenario: %v", err)
	}
	return scenario
}

func TestFromConfigInlineCurves(t *testing.T) {
	scenario := presetScenario(t)

	if scenario.Capacity == nil || scenario.Capacity.Kind() != curve.Storage {
		t.Fatal("expected storage curve")
	}
	if scenario.Area == nil || scenario.Area.Kind() != curve.Area {
		t.Fatal("expected area curve")
	}
	if scenario.Outlet.LossCoefficient != 3 {
		t.Errorf("expected K=3, got %v", scenario.Outlet.LossCoefficient)
	}
	if scenario.Sim.Policy != drawdown.ClampAndContinue {
		t.Errorf("expected clamp policy, got %s", scenario.Sim.Policy)
	}
}

func TestFromConfigCSVAndStrict(t *testing.T) {
	dir := t.TempDir()
	csv := "elev-ft,storage-acre-ft\n2139,0\n2180,2521.5\n2230,12421.5\n"
	if err := os.WriteFile(filepath.Join(dir, "cap.csv"), []byte(csv), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := config.GetPreset("low-level-outlet")
	cfg.Curves.Capacity = config.CurveSource{Path: filepath.Join(dir, "cap.csv")}
	cfg.Curves.Area = config.CurveSource{}
	cfg.StrictCurves = true

	scenario, err := FromConfig(cfg)
	if err != nil {
		t.Fatalf("scenario: %v", err)
	}
	if scenario.Area != nil {
		t.Error("area curve should be optional")
	}
	if !scenario.Capacity.IsStrict() {
		t.Error("expected strict capacity curve")
	}
	if _, err := scenario.Capacity.At(2300); !errors.Is(err, curve.ErrOutOfDomain) {
		t.Errorf("expected out of domain, got %v", err)
	}
}

func TestFromConfigMissingFile(t *testing.T) {
	cfg := config.GetPreset("low-level-outlet")
	cfg.Curves.Capacity = config.CurveSource{Path: filepath.Join(t.TempDir(), "nope.csv")}
	if _, err := FromConfig(cfg); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestExperimentRun(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ms, err := NewRegistry().Metrics(nil)
	if err != nil {
		t.Fatal(err)
	}
	steps := &stepCounter{}
	exp := New(presetScenario(t), WithLogger(logger), WithMetrics(ms...), WithObserver(steps))

	if _, err := exp.Run(context.Background()); err == nil {
		t.Error("expected error before setup")
	}
	if err := exp.Setup(); err != nil {
		t.Fatalf("setup: %v", err)
	}

	out, err := exp.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.Result.Len() != 1100 {
		t.Errorf("expected 1100 states, got %d", out.Result.Len())
	}
	if !out.Summary.Target.Reached || !out.Summary.Drained.Reached {
		t.Errorf("expected both crossings, got %+v", out.Summary)
	}
	if out.Summary.Target.Time >= out.Summary.Drained.Time {
		t.Errorf("target should be reached before drain")
	}
	if _, ok := out.Result.Metrics["volume_released"]; !ok {
		t.Error("missing volume_released metric")
	}
	if steps.n != out.Result.Len() || steps.last != out.Result.Len()-1 {
		t.Errorf("observer saw %d steps ending at %d", steps.n, steps.last)
	}
	if !strings.Contains(logs.String(), "drawdown run finished") {
		t.Errorf("expected debug log, got %q", logs.String())
	}
}

type stepCounter struct{ n, last int }

func (c *stepCounter) OnStep(s drawdown.State) {
	c.n++
	c.last = s.Step
}

func TestExperimentStorageAt(t *testing.T) {
	scenario := presetScenario(t)
	exp := New(scenario)
	if _, err := exp.StorageAt(2224); err == nil {
		t.Error("expected error before setup")
	}
	if err := exp.Setup(); err != nil {
		t.Fatalf("setup: %v", err)
	}

	got, err := exp.StorageAt(2224)
	if err != nil {
		t.Fatalf("storage at: %v", err)
	}
	want, _ := scenario.Capacity.At(2224)
	if got != want {
		t.Errorf("expected %v, got %v", want, got)
	}

	// clamped lookups past the table top
	if _, err := exp.StorageAt(2300); err != nil {
		t.Errorf("non-strict lookup should clamp, got %v", err)
	}

	scenario.Capacity = scenario.Capacity.Strict()
	strict := New(scenario)
	if err := strict.Setup(); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if _, err := strict.StorageAt(2300); !errors.Is(err, curve.ErrOutOfDomain) {
		t.Errorf("expected out of domain, got %v", err)
	}
}

func TestWithLossCoefficientDoesNotAlias(t *testing.T) {
	base := presetScenario(t)
	other := base.WithLossCoefficient(6)
	if base.Outlet.LossCoefficient != 3 || other.Outlet.LossCoefficient != 6 {
		t.Errorf("unexpected K values %v / %v", base.Outlet.LossCoefficient, other.Outlet.LossCoefficient)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if len(r.ListMetrics()) != 4 {
		t.Errorf("expected 4 metrics, got %v", r.ListMetrics())
	}
	if _, err := r.GetMetric("energy"); err == nil {
		t.Error("expected unknown metric error")
	}
	a, _ := r.GetMetric("peak_discharge")
	b, _ := r.GetMetric("peak_discharge")
	if a == b {
		t.Error("registry must build fresh metric instances")
	}
}
