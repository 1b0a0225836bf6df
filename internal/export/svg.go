package export

import (
	"fmt"
	"html"
	"math"
	"os"
	"strings"

	"github.com/san-kum/drawdown/internal/drawdown"
)

type Point struct{ X, Y float64 }

type Series struct {
	Label  string
	Color  string
	Points []Point
}

// Palette is used for series without a color.
var Palette = []string{"#00d7ff", "#ff5f87", "#87ff5f", "#ffaf00", "#af87ff", "#5fffd7"}

// FromResult pairs the time axis with one state field.
func FromResult(res *drawdown.Result, field drawdown.Field, label string) Series {
	pts := make([]Point, len(res.States))
	for i, st := range res.States {
		pts[i] = Point{X: st.Time, Y: st.Value(field)}
	}
	return Series{Label: label, Points: pts}
}

// Options control the chart frame. Reference, when non-nil, draws a
// dashed horizontal line such as a target elevation.
type Options struct {
	Width, Height int
	Title         string
	Reference     *float64
}

type bounds struct{ minX, maxX, minY, maxY float64 }

func (b bounds) pad() bounds {
	rangeX := b.maxX - b.minX
	rangeY := b.maxY - b.minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	return bounds{
		minX: b.minX - rangeX*0.05, maxX: b.maxX + rangeX*0.05,
		minY: b.minY - rangeY*0.1, maxY: b.maxY + rangeY*0.1,
	}
}

func extent(series []Series, ref *float64) (bounds, bool) {
	b := bounds{math.Inf(1), math.Inf(-1), math.Inf(1), math.Inf(-1)}
	n := 0
	for _, s := range series {
		for _, p := range s.Points {
			if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.Y, 0) {
				continue
			}
			b.minX = math.Min(b.minX, p.X)
			b.maxX = math.Max(b.maxX, p.X)
			b.minY = math.Min(b.minY, p.Y)
			b.maxY = math.Max(b.maxY, p.Y)
			n++
		}
	}
	if ref != nil {
		b.minY = math.Min(b.minY, *ref)
		b.maxY = math.Max(b.maxY, *ref)
	}
	return b, n >= 2
}

// SeriesToSVG draws every series on shared axes. It returns "" when there
// are fewer than two plottable points.
func SeriesToSVG(series []Series, opts Options) string {
	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = 800
	}
	if height <= 0 {
		height = 400
	}

	raw, ok := extent(series, opts.Reference)
	if !ok {
		return ""
	}
	b := raw.pad()
	rangeX := b.maxX - b.minX
	rangeY := b.maxY - b.minY

	px := func(x float64) float64 { return (x - b.minX) / rangeX * float64(width) }
	py := func(y float64) float64 { return float64(height) - (y-b.minY)/rangeY*float64(height) }

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	if opts.Title != "" {
		sb.WriteString(fmt.Sprintf(`<text x="8" y="18" fill="#d0d0d0" font-family="monospace" font-size="14">%s</text>
`, html.EscapeString(opts.Title)))
	}

	if opts.Reference != nil {
		y := py(*opts.Reference)
		sb.WriteString(fmt.Sprintf(`<line x1="0" y1="%.1f" x2="%d" y2="%.1f" stroke="#808080" stroke-dasharray="6,4"/>
`, y, width, y))
	}

	for si, s := range series {
		color := s.Color
		if color == "" {
			color = Palette[si%len(Palette)]
		}

		sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="`, color))
		pen := "M"
		for _, p := range s.Points {
			if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.Y, 0) {
				pen = "M"
				continue
			}
			if pen == "L" {
				sb.WriteString(" ")
			}
			sb.WriteString(fmt.Sprintf("%s%.1f,%.1f", pen, px(p.X), py(p.Y)))
			pen = "L"
		}
		sb.WriteString("\"/>\n")

		if s.Label != "" {
			sb.WriteString(fmt.Sprintf(`<text x="%d" y="%d" fill="%s" font-family="monospace" font-size="12" text-anchor="end">%s</text>
`, width-8, 18+14*(si+1), color, html.EscapeString(s.Label)))
		}
	}

	sb.WriteString("</svg>")
	return sb.String()
}

func WriteSVG(path string, series []Series, opts Options) error {
	svg := SeriesToSVG(series, opts)
	if svg == "" {
		return fmt.Errorf("export: nothing to plot")
	}
	return os.WriteFile(path, []byte(svg), 0644)
}
