package sensitivity

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/drawdown/internal/config"
	"github.com/san-kum/drawdown/internal/drawdown"
	"github.com/san-kum/drawdown/internal/experiment"
)

func baseScenario(t *testing.T) experiment.Scenario {
	t.Helper()
	scenario, err := experiment.FromConfig(config.GetPreset("low-level-outlet"))
	if err != nil {
		t.Fatalf("scenario: %v", err)
	}
	return scenario
}

func TestDriverValidatesRatios(t *testing.T) {
	tests := []struct {
		name   string
		ratios []float64
		want   error
	}{
		{"empty", nil, ErrNoRatios},
		{"zero", []float64{1, 0}, ErrInvalidRatio},
		{"negative", []float64{-0.5}, ErrInvalidRatio},
		{"nan", []float64{math.NaN()}, ErrInvalidRatio},
		{"inf", []float64{math.Inf(1)}, ErrInvalidRatio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &Driver{Base: baseScenario(t), Ratios: tt.ratios}
			if _, err := d.Run(context.Background()); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestDriverScalesLossCoefficient(t *testing.T) {
	d := &Driver{Base: baseScenario(t), Ratios: []float64{2, 0.5, 1}, Workers: 2}
	rep, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(rep.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rep.Rows))
	}
	for i, want := range []float64{6, 1.5, 3} {
		if rep.Rows[i].LossCoefficient != want {
			t.Errorf("row %d: expected K=%v, got %v", i, want, rep.Rows[i].LossCoefficient)
		}
	}
	if rep.BaseLossCoefficient != 3 {
		t.Errorf("base K should be untouched, got %v", rep.BaseLossCoefficient)
	}

	base, ok := rep.Baseline()
	if !ok || base.Ratio != 1 {
		t.Fatalf("expected baseline row")
	}

	// Higher losses drain slower.
	if !(rep.Rows[1].Target.Step < base.Target.Step && base.Target.Step < rep.Rows[0].Target.Step) {
		t.Errorf("unexpected target ordering: %d, %d, %d",
			rep.Rows[1].Target.Step, base.Target.Step, rep.Rows[0].Target.Step)
	}
}

func TestDriverMatchesSingleRun(t *testing.T) {
	scenario := baseScenario(t)
	single, err := experiment.Execute(context.Background(), scenario)
	if err != nil {
		t.Fatalf("single run: %v", err)
	}

	d := &Driver{Base: scenario, Ratios: []float64{1}}
	rep, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}

	got := rep.Rows[0].Result.Series(drawdown.FieldElevation)
	want := single.Result.Series(drawdown.FieldElevation)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("step %d: sweep %v != single %v", i, got[i], want[i])
		}
	}
}

func TestDriverCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := &Driver{Base: baseScenario(t), Ratios: []float64{1, 2}}
	if _, err := d.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestReportSeries(t *testing.T) {
	d := &Driver{Base: baseScenario(t), Ratios: []float64{0.5, 1}}
	rep, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	labels, series := rep.Series(drawdown.FieldDischarge)
	if len(labels) != 2 || labels[0] != "0.5×K" || labels[1] != "1×K" {
		t.Errorf("unexpected labels %v", labels)
	}
	if series[0][0] <= series[1][0] {
		t.Errorf("lower K should start with more discharge: %v vs %v", series[0][0], series[1][0])
	}
}
