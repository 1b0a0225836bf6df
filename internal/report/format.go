package report

import (
	"fmt"
	"math"

	"github.com/san-kum/drawdown/internal/summary"
)

// FormatTime prints a run time with its unit, adding days for hourly runs.
func FormatTime(t float64, unit string) string {
	if math.IsNaN(t) {
		return "n/a"
	}
	s := fmt.Sprintf("%g %s", t, unit)
	if unit == "hr" && t >= 24 {
		s += fmt.Sprintf(" (%.1f days)", t/24)
	}
	return s
}

// FormatCrossing renders a crossing or "not reached within <horizon>".
func FormatCrossing(c summary.Crossing, horizon float64, unit string) string {
	if !c.Reached {
		return "not reached within " + FormatTime(horizon, unit)
	}
	return fmt.Sprintf("%s (step %d)", FormatTime(c.Time, unit), c.Step)
}
