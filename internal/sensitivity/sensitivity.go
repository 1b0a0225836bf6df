// Package sensitivity reruns one drawdown scenario over a set of loss
// coefficient ratios and collects the crossing times of each run.
package sensitivity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"

	"github.com/san-kum/drawdown/internal/drawdown"
	"github.com/san-kum/drawdown/internal/experiment"
	"github.com/san-kum/drawdown/internal/metrics"
	"github.com/san-kum/drawdown/internal/summary"
	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidRatio = errors.New("sensitivity: ratio must be a positive number")
	ErrNoRatios     = errors.New("sensitivity: no ratios given")
)

// Row is one run of the sweep.
type Row struct {
	Ratio           float64
	LossCoefficient float64
	Target          summary.Crossing
	Drained         summary.Crossing
	Summary         summary.Summary
	Result          *drawdown.Result
}

type Report struct {
	Base drawdown.Config
	// K_eq of the unscaled scenario.
	BaseLossCoefficient float64
	Criterion           summary.Criterion
	Rows                []Row
}

// Baseline returns the row with ratio 1, if the sweep has one.
func (r *Report) Baseline() (Row, bool) {
	for _, row := range r.Rows {
		if row.Ratio == 1 {
			return row, true
		}
	}
	return Row{}, false
}

// Series returns one field of every run, keyed by the row's label.
func (r *Report) Series(field drawdown.Field) ([]string, [][]float64) {
	labels := make([]string, len(r.Rows))
	series := make([][]float64, len(r.Rows))
	for i, row := range r.Rows {
		labels[i] = Label(row.Ratio)
		series[i] = row.Result.Series(field)
	}
	return labels, series
}

func Label(ratio float64) string {
	return fmt.Sprintf("%g×K", ratio)
}

type Driver struct {
	Base    experiment.Scenario
	Ratios  []float64
	Workers int
	Logger  *slog.Logger
}

func (d *Driver) validate() error {
	if len(d.Ratios) == 0 {
		return ErrNoRatios
	}
	for i, r := range d.Ratios {
		if !(r > 0) || math.IsInf(r, 0) {
			return fmt.Errorf("%w: ratios[%d] = %g", ErrInvalidRatio, i, r)
		}
	}
	return nil
}

// Run executes one independent simulation per ratio on a bounded pool.
// Rows come back in the order of d.Ratios. The first failure cancels the
// runs still in flight.
func (d *Driver) Run(ctx context.Context) (*Report, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}

	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := d.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	rows := make([]Row, len(d.Ratios))
	baseK := d.Base.Outlet.LossCoefficient

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, ratio := range d.Ratios {
		i, ratio := i, ratio // per-iteration copy for go1.21 loop semantics
		g.Go(func() error {
			scenario := d.Base.WithLossCoefficient(ratio * baseK)
			scenario.Name = fmt.Sprintf("%s@%s", d.Base.Name, Label(ratio))

			out, err := experiment.Execute(ctx, scenario,
				experiment.WithLogger(logger),
				experiment.WithMetrics(metrics.Default()...),
			)
			if err != nil {
				return fmt.Errorf("ratio %g: %w", ratio, err)
			}

			rows[i] = Row{
				Ratio:           ratio,
				LossCoefficient: scenario.Outlet.LossCoefficient,
				Target:          out.Summary.Target,
				Drained:         out.Summary.Drained,
				Summary:         out.Summary,
				Result:          out.Result,
			}
			logger.Info("sensitivity run complete",
				"ratio", ratio,
				"k_eq", scenario.Outlet.LossCoefficient,
				"target_time", out.Summary.Target.Time,
				"drain_time", out.Summary.Drained.Time,
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Report{
		Base:                d.Base.Sim,
		BaseLossCoefficient: baseK,
		Criterion:           d.Base.Criterion,
		Rows:                rows,
	}, nil
}
