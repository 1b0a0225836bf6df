package tables

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/san-kum/drawdown/internal/curve"
)

var ErrMissingColumn = errors.New("tables: required column not found")

var elevationColumns = []string{"elev-ft", "elevation", "elev", "elevation-ft"}

var quantityColumns = map[curve.Kind][]string{
	curve.Storage: {"storage-acre-ft", "storage", "capacity", "capacity-acre-ft"},
	curve.Area:    {"area-acres", "area"},
}

// LoadCurve reads an area or capacity curve from a CSV file with a header
// row. Column order does not matter and rows need not be sorted.
func LoadCurve(path string, kind curve.Kind) (*curve.Curve, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s curve: %w", kind, err)
	}
	defer f.Close()

	c, err := ReadCurve(f, kind)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func ReadCurve(r io.Reader, kind curve.Kind) (*curve.Curve, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s curve: empty file", kind)
		}
		return nil, fmt.Errorf("%s curve header: %w", kind, err)
	}

	ei, err := findColumn(header, elevationColumns)
	if err != nil {
		return nil, fmt.Errorf("%s curve: %w", kind, err)
	}
	qi, err := findColumn(header, quantityColumns[kind])
	if err != nil {
		return nil, fmt.Errorf("%s curve: %w", kind, err)
	}

	pts := make([]curve.Point, 0, 64)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s curve: %w", kind, err)
		}
		line, _ := cr.FieldPos(0)

		if isBlank(rec) {
			continue
		}

		e, err := parseCell(rec, ei)
		if err != nil {
			return nil, fmt.Errorf("%s curve line %d: elevation: %w", kind, line, err)
		}
		q, err := parseCell(rec, qi)
		if err != nil {
			return nil, fmt.Errorf("%s curve line %d: %s: %w", kind, line, kind, err)
		}
		pts = append(pts, curve.Point{Elevation: e, Quantity: q})
	}

	return FromPoints(kind, pts)
}

// FromPoints sorts a copy of pts by elevation and builds the curve.
func FromPoints(kind curve.Kind, pts []curve.Point) (*curve.Curve, error) {
	sorted := append([]curve.Point(nil), pts...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Elevation < sorted[j].Elevation
	})
	return curve.FromPoints(kind, sorted)
}

// WriteCurve writes the curve in the same layout LoadCurve reads.
func WriteCurve(w io.Writer, c *curve.Curve) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{elevationColumns[0], quantityColumns[c.Kind()][0]}); err != nil {
		return err
	}
	for _, p := range c.Points() {
		row := []string{
			strconv.FormatFloat(p.Elevation, 'f', -1, 64),
			strconv.FormatFloat(p.Quantity, 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func findColumn(header []string, names []string) (int, error) {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		for _, n := range names {
			if h == n {
				return i, nil
			}
		}
	}
	return -1, fmt.Errorf("%w: want one of %s", ErrMissingColumn, strings.Join(names, ", "))
}

func parseCell(rec []string, i int) (float64, error) {
	if i >= len(rec) {
		return 0, fmt.Errorf("missing value")
	}
	return strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
