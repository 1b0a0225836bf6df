package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/san-kum/drawdown/internal/config"
	"github.com/san-kum/drawdown/internal/curve"
	"github.com/san-kum/drawdown/internal/drawdown"
	"github.com/san-kum/drawdown/internal/experiment"
	"github.com/san-kum/drawdown/internal/export"
	"github.com/san-kum/drawdown/internal/report"
	"github.com/san-kum/drawdown/internal/sensitivity"
	"github.com/san-kum/drawdown/internal/storage"
	"github.com/san-kum/drawdown/internal/summary"
	"github.com/spf13/cobra"
)

const defaultPreset = "low-level-outlet"

// loadScenario resolves config file or preset, then applies the flags the
// user set explicitly.
func loadScenario(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	if configFile != "" {
		c, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
	} else {
		name := preset
		if name == "" {
			name = defaultPreset
		}
		cfg = config.GetPreset(name)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", name, config.ListPresets())
		}
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("steps") {
		cfg.Steps = steps
	}
	if flags.Changed("policy") {
		cfg.Policy = policy
	}
	if flags.Changed("outlets") {
		cfg.Outlet.Multiplicity = outlets
	}
	if flags.Changed("diameter") {
		cfg.Outlet.Diameter = diameter
	}
	if flags.Changed("k") {
		cfg.Outlet.LossCoefficient = lossCoeff
		cfg.Outlet.Losses = nil
	}
	if flags.Changed("init-elev") {
		cfg.Reservoir.InitialElevation = initElev
	}
	if flags.Changed("init-head") {
		cfg.Reservoir.InitialHead = initHead
	}
	if flags.Changed("target") {
		cfg.Criterion.TargetElevation = target
	}
	if flags.Changed("deadline") {
		cfg.Criterion.Deadline = deadline
	}
	if flags.Changed("strict") {
		cfg.StrictCurves = strict
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return cfg, nil
}

// progressLogger reports roughly ten evenly spaced steps of a run.
type progressLogger struct {
	logger *slog.Logger
	every  int
}

func newProgressLogger(l *slog.Logger, steps int) progressLogger {
	return progressLogger{logger: l, every: max(1, steps/10)}
}

func (p progressLogger) OnStep(s drawdown.State) {
	if s.Step%p.every != 0 {
		return
	}
	p.logger.Debug("step",
		"step", s.Step,
		"time", s.Time,
		"elevation", s.Elevation,
		"discharge", s.Discharge,
		"storage", s.StorageFinal,
	)
}

func runDrawdown(cmd *cobra.Command, args []string) error {
	cfg, err := loadScenario(cmd)
	if err != nil {
		return err
	}
	scenario, err := experiment.FromConfig(cfg)
	if err != nil {
		return err
	}
	ms, err := experiment.NewRegistry().Metrics(metricList)
	if err != nil {
		return err
	}

	opts := []experiment.Option{
		experiment.WithLogger(logger),
		experiment.WithMetrics(ms...),
	}
	if verbose {
		opts = append(opts, experiment.WithObserver(newProgressLogger(logger, cfg.Steps)))
	}

	start := time.Now()
	out, err := experiment.Execute(cmd.Context(), scenario, opts...)
	if err != nil {
		return err
	}
	logger.Debug("run complete", "elapsed", time.Since(start))

	fmt.Println(report.Summary(cfg.Name, out.Result, out.Summary))

	if cfg.Outlet.Losses != nil {
		fmt.Println()
		fmt.Println(report.HeaderStyle.Render("loss budget"))
		if err := report.WriteLossItems(os.Stdout, cfg.Outlet.Losses.Items(cfg.Outlet.Diameter)); err != nil {
			return err
		}
	}

	if err := printTable(os.Stdout, out.Result, out.Summary); err != nil {
		return err
	}

	if showPlot {
		printPlots(out.Result, []drawdown.Field{drawdown.FieldElevation, drawdown.FieldDischarge}, 12, 80)
	}

	if err := out.Summary.Err(); err != nil {
		fmt.Println(report.Warn.Render(err.Error()))
	}

	if saveTag != "" {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		id, err := st.Save(storage.NewMetadata(saveTag, cfg.Name, out.Result, out.Summary), out.Result)
		if err != nil {
			return err
		}
		fmt.Printf("\nsaved %s (run id %s)\n", saveTag, id)
	}
	return nil
}

func printTable(w io.Writer, res *drawdown.Result, sum summary.Summary) error {
	var rows []drawdown.State
	var title string

	switch tableMode {
	case "none", "":
		return nil
	case "window":
		var c summary.Crossing
		rows, c = summary.WindowAround(res, sum.Criterion.TargetElevation, windowBefore, windowSize)
		if !c.Reached {
			fmt.Fprintln(w, report.Subtle.Render("\ntarget elevation not reached; no crossing window"))
			return nil
		}
		title = fmt.Sprintf("around elevation %.2f ft", sum.Criterion.TargetElevation)
	case "drained":
		var c summary.Crossing
		rows, c = summary.UntilDrained(res)
		title = "until drained"
		if !c.Reached {
			rows = res.States
			title = "full run (never drained)"
		}
	case "all":
		rows = res.States
		title = "all steps"
	default:
		return fmt.Errorf("unknown table %q (want window, drained, all or none)", tableMode)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, report.HeaderStyle.Render(title))
	return report.WriteStates(w, rows, res.TimeUnit)
}

func printPlots(res *drawdown.Result, fs []drawdown.Field, height, width int) {
	for _, f := range fs {
		caption := fmt.Sprintf("%s (%s) vs time (%s)", f, f.Unit(), res.TimeUnit)
		fmt.Println()
		fmt.Println(report.Plot(res.Series(f), report.PlotOptions{Height: height, Width: width, Caption: caption}))
	}
}

func runSensitivity(cmd *cobra.Command, args []string) error {
	cfg, err := loadScenario(cmd)
	if err != nil {
		return err
	}
	scenario, err := experiment.FromConfig(cfg)
	if err != nil {
		return err
	}

	rs := cfg.Sensitivity.Ratios
	if cmd.Flags().Changed("ratios") {
		rs = ratios
	}
	n := cfg.Sensitivity.Workers
	if cmd.Flags().Changed("workers") {
		n = workers
	}

	d := &sensitivity.Driver{Base: scenario, Ratios: rs, Workers: n, Logger: logger}
	rep, err := d.Run(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Println(report.Title.Render(fmt.Sprintf("sensitivity: %s, base K = %.3f", cfg.Name, rep.BaseLossCoefficient)))
	if label := cfg.Criterion.Label; label != "" {
		fmt.Println(report.Subtle.Render(fmt.Sprintf("target: %s (elev < %.2f ft)", label, cfg.Criterion.TargetElevation)))
	}
	fmt.Println()
	if err := report.WriteSensitivity(os.Stdout, rep); err != nil {
		return err
	}

	if sensPlot {
		labels, series := rep.Series(drawdown.FieldElevation)
		fmt.Println()
		fmt.Println(report.PlotMany(labels, series, report.PlotOptions{
			Height:  15,
			Width:   80,
			Caption: fmt.Sprintf("elevation (ft) vs time (%s)", rep.Base.TimeUnit),
		}))
	}

	if saveTag != "" {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		for _, row := range rep.Rows {
			tag := fmt.Sprintf("%s-%s", saveTag, strconv.FormatFloat(row.Ratio, 'f', -1, 64))
			meta := storage.NewMetadata(tag, cfg.Name, row.Result, row.Summary)
			if _, err := st.Save(meta, row.Result); err != nil {
				return err
			}
			fmt.Printf("saved %s\n", tag)
		}
	}
	return nil
}

func loadCurves(cmd *cobra.Command) (*config.Config, *curve.Curve, *curve.Curve, error) {
	cfg, err := loadScenario(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	capacity, err := experiment.LoadCurve(cfg.Curves.Capacity, curve.Storage)
	if err != nil {
		return nil, nil, nil, err
	}
	var area *curve.Curve
	if !cfg.Curves.Area.IsZero() {
		if area, err = experiment.LoadCurve(cfg.Curves.Area, curve.Area); err != nil {
			return nil, nil, nil, err
		}
	}
	return cfg, capacity, area, nil
}

func showCurves(cmd *cobra.Command, args []string) error {
	cfg, capacity, area, err := loadCurves(cmd)
	if err != nil {
		return err
	}

	fmt.Println(report.Title.Render("curves: " + cfg.Name))
	for _, c := range []*curve.Curve{area, capacity} {
		if c == nil {
			continue
		}
		lo, hi := c.Bounds()
		qlo, qhi := c.QuantityBounds()
		fmt.Println()
		fmt.Println(report.HeaderStyle.Render(c.Kind().String()))
		fmt.Printf("%d points, elevation %.2f to %.2f ft, %s %.2f to %.2f\n", c.Len(), lo, hi, c.Kind(), qlo, qhi)
		if c.Kind() == curve.Storage && !c.Invertible() {
			fmt.Println(report.Warn.Render("not strictly increasing; elevation cannot be recovered from storage"))
		}
		plot, err := report.PlotCurve(c, report.PlotOptions{Height: 10, Width: 70})
		if err != nil {
			return err
		}
		fmt.Println(plot)
	}
	return nil
}

func storageAt(cmd *cobra.Command, args []string) error {
	cfg, err := loadScenario(cmd)
	if err != nil {
		return err
	}
	scenario, err := experiment.FromConfig(cfg)
	if err != nil {
		return err
	}
	exp := experiment.New(scenario, experiment.WithLogger(logger))
	if err := exp.Setup(); err != nil {
		return err
	}

	for _, a := range args {
		e, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return fmt.Errorf("elevation %q: %w", a, err)
		}
		s, err := exp.StorageAt(e)
		if err != nil {
			var de *curve.DomainError
			if errors.As(err, &de) {
				return fmt.Errorf("elevation %g is outside the capacity table (%g to %g ft)", e, de.Min, de.Max)
			}
			return err
		}
		fmt.Printf("%s ft\t%s acre-ft\n",
			strconv.FormatFloat(e, 'f', -1, 64), strconv.FormatFloat(s, 'f', 2, 64))
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	return report.WriteRuns(os.Stdout, runs)
}

func showRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, res, err := st.LoadResult(args[0])
	if err != nil {
		return err
	}

	sum := summary.Summarize(res, meta.Criterion)
	fmt.Println(report.Summary(meta.Name, res, sum))
	fmt.Println(report.Subtle.Render(fmt.Sprintf("run %s, saved %s", meta.ID, meta.Timestamp.Format(time.RFC3339))))
	return printTable(os.Stdout, res, sum)
}

func plotRuns(cmd *cobra.Command, args []string) error {
	fs, err := parseFields(fields)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	results := make([]*drawdown.Result, len(args))
	for i, tag := range args {
		_, res, err := st.LoadResult(tag)
		if err != nil {
			return err
		}
		if res.Len() == 0 {
			return fmt.Errorf("run %s: no data to plot", tag)
		}
		results[i] = res
	}

	if len(results) == 1 {
		fmt.Printf("run: %s\n", args[0])
		fmt.Printf("samples: %d\n", results[0].Len())
		printPlots(results[0], fs, plotHeight, plotWidth)
		return nil
	}

	for _, f := range fs {
		series := make([][]float64, len(results))
		for i, res := range results {
			series[i] = res.Series(f)
		}
		fmt.Println()
		fmt.Println(report.PlotMany(args, series, report.PlotOptions{
			Height:  plotHeight,
			Width:   plotWidth,
			Caption: fmt.Sprintf("%s (%s)", f, f.Unit()),
		}))
	}
	return nil
}

func parseFields(names []string) ([]drawdown.Field, error) {
	fs := make([]drawdown.Field, 0, len(names))
	for _, n := range names {
		f, err := drawdown.ParseField(n)
		if err != nil {
			return nil, fmt.Errorf("%w (want one of %s)", err, fieldNames())
		}
		fs = append(fs, f)
	}
	return fs, nil
}

func fieldNames() string {
	names := make([]string, 0, len(drawdown.Columns))
	for _, f := range drawdown.Columns {
		names = append(names, f.String())
	}
	return strings.Join(names, ", ")
}

// openOutput returns stdout when path is empty.
func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	_, res, err := st.LoadResult(args[0])
	if err != nil {
		return err
	}

	w, closeFn, err := openOutput(outputPath)
	if err != nil {
		return err
	}
	if err := storage.WriteCSV(w, res); err != nil {
		closeFn()
		return err
	}
	if err := closeFn(); err != nil {
		return err
	}
	if outputPath != "" {
		fmt.Printf("exported %d rows to %s\n", res.Len(), outputPath)
	}
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, res, err := st.LoadResult(args[0])
	if err != nil {
		return err
	}

	w, closeFn, err := openOutput(outputPath)
	if err != nil {
		return err
	}
	if err := storage.ExportJSON(w, *meta, res); err != nil {
		closeFn()
		return err
	}
	if err := closeFn(); err != nil {
		return err
	}
	if outputPath != "" {
		fmt.Printf("exported %s to %s\n", args[0], outputPath)
	}
	return nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	f, err := drawdown.ParseField(svgField)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	series := make([]export.Series, 0, len(args))
	var ref *float64
	for _, tag := range args {
		meta, res, err := st.LoadResult(tag)
		if err != nil {
			return err
		}
		series = append(series, export.FromResult(res, f, tag))
		if f == drawdown.FieldElevation && ref == nil {
			t := meta.Criterion.TargetElevation
			ref = &t
		}
	}

	opts := export.Options{
		Width:     svgWidth,
		Height:    svgHeight,
		Title:     fmt.Sprintf("%s (%s)", f, f.Unit()),
		Reference: ref,
	}
	if err := export.WriteSVG(svgOutput, series, opts); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", svgOutput)
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	fmt.Println("presets:")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		fmt.Printf("  %-18s %s\n", name, report.Subtle.Render(p.Criterion.Label))
	}
	return nil
}
