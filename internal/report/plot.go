package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/drawdown/internal/curve"
)

var seriesColors = []asciigraph.AnsiColor{
	asciigraph.Cyan, asciigraph.Red, asciigraph.Green,
	asciigraph.Yellow, asciigraph.Magenta, asciigraph.Blue,
}

var legendColors = []lipgloss.Color{"#00ffff", "#ff4444", "#00ff88", "#ffcc00", "#ff00ff", "#4488ff"}

type PlotOptions struct {
	Height  int
	Width   int
	Caption string
}

func (o PlotOptions) asciigraph() []asciigraph.Option {
	h, w := o.Height, o.Width
	if h <= 0 {
		h = 15
	}
	if w <= 0 {
		w = 80
	}
	opts := []asciigraph.Option{asciigraph.Height(h), asciigraph.Width(w), asciigraph.Precision(1)}
	if o.Caption != "" {
		opts = append(opts, asciigraph.Caption(o.Caption))
	}
	return opts
}

// Plot draws one series. Empty input yields "".
func Plot(data []float64, o PlotOptions) string {
	if len(data) == 0 {
		return ""
	}
	return asciigraph.Plot(data, o.asciigraph()...)
}

// PlotMany overlays several series with a colored legend underneath.
func PlotMany(labels []string, data [][]float64, o PlotOptions) string {
	if len(data) == 0 {
		return ""
	}
	colors := make([]asciigraph.AnsiColor, len(data))
	for i := range data {
		colors[i] = seriesColors[i%len(seriesColors)]
	}
	graph := asciigraph.PlotMany(data, append(o.asciigraph(), asciigraph.SeriesColors(colors...))...)

	legend := make([]string, 0, len(labels))
	for i, l := range labels {
		style := lipgloss.NewStyle().Foreground(legendColors[i%len(legendColors)])
		legend = append(legend, style.Render("━━ "+l))
	}
	return graph + "\n" + strings.Join(legend, "   ")
}

// PlotCurve draws a tabulated curve sampled evenly across its elevation
// range, so unevenly spaced tables still plot on a linear axis.
func PlotCurve(c *curve.Curve, o PlotOptions) (string, error) {
	w := o.Width
	if w <= 0 {
		w = 80
	}
	w = max(w, 2)
	lo, hi := c.Bounds()
	data := make([]float64, w)
	for i := range data {
		e := min(lo+(hi-lo)*float64(i)/float64(w-1), hi)
		v, err := c.At(e)
		if err != nil {
			return "", fmt.Errorf("plot %s curve: %w", c.Kind(), err)
		}
		data[i] = v
	}
	if o.Caption == "" {
		o.Caption = fmt.Sprintf("%s vs elevation, %.1f to %.1f ft", c.Kind(), lo, hi)
	}
	return Plot(data, o), nil
}
