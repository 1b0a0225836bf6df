package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/drawdown/internal/drawdown"
	"github.com/san-kum/drawdown/internal/metrics"
)

// Registry maps metric names to constructors so a run can be asked for
// metrics by name.
type Registry struct {
	metrics map[string]func() drawdown.Metric
}

func NewRegistry() *Registry {
	r := &Registry{
		metrics: make(map[string]func() drawdown.Metric),
	}

	r.metrics["peak_discharge"] = func() drawdown.Metric { return metrics.NewPeakDischarge() }
	r.metrics["peak_velocity"] = func() drawdown.Metric { return metrics.NewPeakVelocity() }
	r.metrics["volume_released"] = func() drawdown.Metric { return metrics.NewVolumeReleased() }
	r.metrics["max_drawdown"] = func() drawdown.Metric { return metrics.NewMaxDrawdown() }

	return r
}

func (r *Registry) GetMetric(name string) (drawdown.Metric, error) {
	fn, ok := r.metrics[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric: %s", name)
	}
	return fn(), nil
}

// Metrics resolves a list of names. An empty list yields every metric.
func (r *Registry) Metrics(names []string) ([]drawdown.Metric, error) {
	if len(names) == 0 {
		names = r.ListMetrics()
	}
	out := make([]drawdown.Metric, 0, len(names))
	for _, n := range names {
		m, err := r.GetMetric(n)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *Registry) ListMetrics() []string {
	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
