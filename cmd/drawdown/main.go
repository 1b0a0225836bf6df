package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var (
	dataDir string
	verbose bool
	logJSON bool
	// Scenario source
	configFile string
	preset     string
	// Scenario overrides
	dt         float64
	steps      int
	policy     string
	outlets    int
	diameter   float64
	lossCoeff  float64
	initElev   float64
	initHead   float64
	target     float64
	deadline   float64
	strict     bool
	metricList []string
	// Run output
	saveTag      string
	tableMode    string
	windowBefore int
	windowSize   int
	showPlot     bool
	// Sensitivity
	ratios   []float64
	workers  int
	sensPlot bool
	// Plot and export
	fields     []string
	outputPath string
	plotHeight int
	plotWidth  int
	svgField   string
	svgOutput  string
	svgHeight  int
	svgWidth   int
)

var logger *slog.Logger

func main() {
	rootCmd := &cobra.Command{
		Use:   "drawdown",
		Short: "reservoir drawdown through low-level outlets",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = newLogger()
			slog.SetDefault(logger)
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".drawdown", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging on stderr")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log as JSON")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "simulate one drawdown",
		Args:  cobra.NoArgs,
		RunE:  runDrawdown,
	}
	addScenarioFlags(runCmd)
	runCmd.Flags().StringSliceVar(&metricList, "metrics", nil, "metrics to record (default all)")
	runCmd.Flags().StringVar(&saveTag, "save", "", "store the run under this tag")
	runCmd.Flags().StringVar(&tableMode, "table", "window", "table to print: window, drained, all or none")
	runCmd.Flags().IntVar(&windowBefore, "window-before", 5, "rows before the target crossing")
	runCmd.Flags().IntVar(&windowSize, "window-size", 10, "rows in the crossing window")
	runCmd.Flags().BoolVar(&showPlot, "plot", false, "plot elevation and discharge")

	sensCmd := &cobra.Command{
		Use:   "sensitivity",
		Short: "rerun with scaled loss coefficients",
		Args:  cobra.NoArgs,
		RunE:  runSensitivity,
	}
	addScenarioFlags(sensCmd)
	sensCmd.Flags().Float64SliceVar(&ratios, "ratios", nil, "loss coefficient ratios (default from config)")
	sensCmd.Flags().IntVar(&workers, "workers", 0, "parallel runs (default from config)")
	sensCmd.Flags().StringVar(&saveTag, "save", "", "store each run as <tag>-<ratio>")
	sensCmd.Flags().BoolVar(&sensPlot, "plot", true, "overlay elevation curves")

	curvesCmd := &cobra.Command{
		Use:   "curves",
		Short: "show the area and capacity curves",
		Args:  cobra.NoArgs,
		RunE:  showCurves,
	}
	addSourceFlags(curvesCmd)

	storageAtCmd := &cobra.Command{
		Use:   "storage-at [elevation...]",
		Short: "look up storage on the capacity curve",
		Args:  cobra.MinimumNArgs(1),
		RunE:  storageAt,
	}
	addSourceFlags(storageAtCmd)
	storageAtCmd.Flags().BoolVar(&strict, "strict", false, "reject elevations outside the table")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [tag]",
		Short: "summarize a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}
	showCmd.Flags().StringVar(&tableMode, "table", "window", "table to print: window, drained, all or none")
	showCmd.Flags().IntVar(&windowBefore, "window-before", 5, "rows before the target crossing")
	showCmd.Flags().IntVar(&windowSize, "window-size", 10, "rows in the crossing window")

	plotCmd := &cobra.Command{
		Use:   "plot [tag...]",
		Short: "plot stored runs",
		Args:  cobra.MinimumNArgs(1),
		RunE:  plotRuns,
	}
	plotCmd.Flags().StringSliceVar(&fields, "field", []string{"elevation", "discharge"}, "fields to plot")
	plotCmd.Flags().IntVar(&plotHeight, "height", 12, "plot height")
	plotCmd.Flags().IntVar(&plotWidth, "width", 80, "plot width")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [tag]",
		Short: "export run data to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file (default stdout)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [tag]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file (default stdout)")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [tag...]",
		Short: "export a field of one or more runs to SVG",
		Args:  cobra.MinimumNArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVar(&svgField, "field", "elevation", "field to draw")
	exportSVGCmd.Flags().StringVarP(&svgOutput, "output", "o", "drawdown.svg", "output file")
	exportSVGCmd.Flags().IntVar(&svgHeight, "height", 400, "image height")
	exportSVGCmd.Flags().IntVar(&svgWidth, "width", 800, "image width")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	rootCmd.AddCommand(runCmd, sensCmd, curvesCmd, storageAtCmd, listCmd, showCmd, plotCmd, exportCSVCmd, exportJSONCmd, exportSVGCmd, presetsCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
}

func addScenarioFlags(cmd *cobra.Command) {
	addSourceFlags(cmd)
	cmd.Flags().Float64Var(&dt, "dt", 1, "timestep")
	cmd.Flags().IntVar(&steps, "steps", 1200, "number of steps")
	cmd.Flags().StringVar(&policy, "policy", "clamp", "post-drain policy: clamp or unclamped")
	cmd.Flags().IntVar(&outlets, "outlets", 1, "number of identical outlets")
	cmd.Flags().Float64Var(&diameter, "diameter", 3, "outlet diameter (ft)")
	cmd.Flags().Float64Var(&lossCoeff, "k", 3, "equivalent loss coefficient")
	cmd.Flags().Float64Var(&initElev, "init-elev", 0, "initial water surface elevation (ft)")
	cmd.Flags().Float64Var(&initHead, "init-head", 0, "initial head on the outlet (ft)")
	cmd.Flags().Float64Var(&target, "target", 0, "criterion elevation (ft)")
	cmd.Flags().Float64Var(&deadline, "deadline", 0, "criterion deadline in time units (0 disables)")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail on curve lookups outside the table")
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if logJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
