package hydraulics

import (
	"fmt"
	"math"
)

// PipeSegment is a reach of conduit with its own Manning roughness.
type PipeSegment struct {
	Name      string  `yaml:"name"`
	Length    float64 `yaml:"length"`
	Roughness float64 `yaml:"roughness"`
}

// FrictionLoss is the Manning friction loss coefficient in US units,
// K = 29.1·n²·L / R^(4/3).
func FrictionLoss(n, length, hydraulicRadius float64) float64 {
	return 29.1 * n * n * length / math.Pow(hydraulicRadius, 4.0/3.0)
}

// TrashRackLoss uses the ratio of net through area to gross rack area.
func TrashRackLoss(areaRatio float64) float64 {
	return 1.45 - 0.45*areaRatio - areaRatio*areaRatio
}

// LossBudget itemises the minor and friction losses of an outlet works.
type LossBudget struct {
	Segments       []PipeSegment `yaml:"segments"`
	TrashRackRatio float64       `yaml:"trash_rack_ratio"`
	Entrance       float64       `yaml:"entrance"`
	Valves         []float64     `yaml:"valves"`
	Bends          []float64     `yaml:"bends"`
	Other          float64       `yaml:"other"`
}

type LossItem struct {
	Name  string
	Value float64
}

// Items lists each contribution for an outlet of the given diameter.
func (b LossBudget) Items(diameter float64) []LossItem {
	r := Outlet{Diameter: diameter}.HydraulicRadius()

	items := make([]LossItem, 0, len(b.Segments)+len(b.Valves)+len(b.Bends)+3)
	for i, seg := range b.Segments {
		name := seg.Name
		if name == "" {
			name = fmt.Sprintf("friction %d", i+1)
		}
		items = append(items, LossItem{Name: name, Value: FrictionLoss(seg.Roughness, seg.Length, r)})
	}
	if b.TrashRackRatio > 0 {
		items = append(items, LossItem{Name: "trash rack", Value: TrashRackLoss(b.TrashRackRatio)})
	}
	if b.Entrance > 0 {
		items = append(items, LossItem{Name: "entrance", Value: b.Entrance})
	}
	for i, v := range b.Valves {
		items = append(items, LossItem{Name: fmt.Sprintf("valve %d", i+1), Value: v})
	}
	for i, v := range b.Bends {
		items = append(items, LossItem{Name: fmt.Sprintf("bend %d", i+1), Value: v})
	}
	if b.Other > 0 {
		items = append(items, LossItem{Name: "other", Value: b.Other})
	}
	return items
}

// Total returns the equivalent loss coefficient K_eq.
func (b LossBudget) Total(diameter float64) (float64, error) {
	if !(diameter > 0) {
		return 0, fmt.Errorf("diameter must be positive, got %g", diameter)
	}
	for _, seg := range b.Segments {
		if seg.Length < 0 || seg.Roughness < 0 {
			return 0, fmt.Errorf("segment %q: length and roughness must be non-negative", seg.Name)
		}
	}
	if b.TrashRackRatio < 0 || b.TrashRackRatio > 1 {
		return 0, fmt.Errorf("trash rack ratio must be within [0, 1], got %g", b.TrashRackRatio)
	}

	total := 0.0
	for _, it := range b.Items(diameter) {
		total += it.Value
	}
	if !(total > 0) {
		return 0, fmt.Errorf("equivalent loss coefficient must be positive, got %g", total)
	}
	return total, nil
}
