// Package report renders drawdown runs for the terminal: a styled summary,
// aligned tables and ASCII plots.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/san-kum/drawdown/internal/drawdown"
	"github.com/san-kum/drawdown/internal/hydraulics"
	"github.com/san-kum/drawdown/internal/sensitivity"
	"github.com/san-kum/drawdown/internal/storage"
	"github.com/san-kum/drawdown/internal/summary"
)

func metric(label, value string) string {
	return MetricLabel.Render(fmt.Sprintf("%-18s", label)) + " " + MetricValue.Render(value)
}

// Summary renders the headline numbers of one run.
func Summary(name string, res *drawdown.Result, sum summary.Summary) string {
	unit := res.TimeUnit
	lines := []string{
		Title.Render("drawdown: " + name),
		"",
		metric("outlets", fmt.Sprintf("%d × %g ft, K = %.3f", res.Outlet.Multiplicity, res.Outlet.Diameter, res.Outlet.LossCoefficient)),
		metric("initial", fmt.Sprintf("elev %.2f ft, head %.2f ft", res.Initial.Elevation, res.Initial.Head)),
		metric("run", fmt.Sprintf("%d steps × %g %s, %s", res.Steps, res.Dt, unit, res.Policy)),
	}
	if res.Len() > 0 {
		lines = append(lines, metric("initial discharge", fmt.Sprintf("%.2f cfs", res.States[0].Discharge)))
	}

	label := sum.Criterion.Label
	if label == "" {
		label = "target"
	}
	lines = append(lines,
		"",
		metric(label, fmt.Sprintf("elev < %.2f ft", sum.Criterion.TargetElevation)),
		metric("  reached", FormatCrossing(sum.Target, sum.Horizon, unit)),
		metric("drained", FormatCrossing(sum.Drained, sum.Horizon, unit)),
	)

	if met, ok := sum.MeetsDeadline(); ok {
		verdict := Good.Render("MET")
		if !met {
			verdict = Bad.Render("MISSED")
		}
		lines = append(lines, metric("deadline", FormatTime(sum.Criterion.Deadline, unit)+" "+verdict))
	}

	if len(res.Metrics) > 0 {
		names := make([]string, 0, len(res.Metrics))
		for n := range res.Metrics {
			names = append(names, n)
		}
		sort.Strings(names)
		lines = append(lines, "")
		for _, n := range names {
			lines = append(lines, metric(n, fmt.Sprintf("%.3f", res.Metrics[n])))
		}
	}

	if res.Len() > 0 {
		lines = append(lines, "", metric("elevation", Sparkline(res.Series(drawdown.FieldElevation), 48)))
	}

	return Panel.Render(strings.Join(lines, "\n"))
}

// WriteStates writes rows in the export column order.
func WriteStates(w io.Writer, states []drawdown.State, timeUnit string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	head := make([]string, len(drawdown.Columns))
	for i, f := range drawdown.Columns {
		unit := f.Unit()
		if f == drawdown.FieldTime {
			unit = timeUnit
		}
		head[i] = fmt.Sprintf("%s (%s)", f, unit)
	}
	fmt.Fprintln(tw, strings.Join(head, "\t")+"\t")

	for _, st := range states {
		row := make([]string, len(drawdown.Columns))
		for i, f := range drawdown.Columns {
			row[i] = fmt.Sprintf("%.2f", st.Value(f))
		}
		fmt.Fprintln(tw, strings.Join(row, "\t")+"\t")
	}
	return tw.Flush()
}

// WriteLossItems lists each contribution to K_eq and the total.
func WriteLossItems(w io.Writer, items []hydraulics.LossItem) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ITEM\tK")
	total := 0.0
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%.4f\n", it.Name, it.Value)
		total += it.Value
	}
	fmt.Fprintf(tw, "total\t%.4f\n", total)
	return tw.Flush()
}

func WriteSensitivity(w io.Writer, rep *sensitivity.Report) error {
	unit := rep.Base.TimeUnit
	horizon := float64(rep.Base.Steps) * rep.Base.Dt

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "RATIO\tK\tTARGET (%s)\tDRAINED (%s)\n", unit, unit)
	for _, row := range rep.Rows {
		fmt.Fprintf(tw, "%s\t%.3f\t%s\t%s\n",
			sensitivity.Label(row.Ratio),
			row.LossCoefficient,
			crossingCell(row.Target, horizon),
			crossingCell(row.Drained, horizon),
		)
	}
	return tw.Flush()
}

func crossingCell(c summary.Crossing, horizon float64) string {
	if !c.Reached {
		return fmt.Sprintf("> %g", horizon)
	}
	return fmt.Sprintf("%g", c.Time)
}

func WriteRuns(w io.Writer, runs []storage.RunMetadata) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TAG\tNAME\tSAVED\tK\tSTEPS\tTARGET\tDRAINED")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.3f\t%d\t%s\t%s\n",
			run.Tag,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Outlet.LossCoefficient,
			run.Steps,
			crossingCell(run.Target, float64(run.Steps)*run.Dt),
			crossingCell(run.Drained, float64(run.Steps)*run.Dt),
		)
	}
	return tw.Flush()
}
