package drawdown

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/drawdown/internal/hydraulics"
)

// DefaultFlowToVolume converts cfs sustained for one hour to acre-ft.
const DefaultFlowToVolume = 0.08264462912563

type Phase int

const (
	Uninitialized Phase = iota
	Configured
	Completed
)

func (p Phase) String() string {
	switch p {
	case Uninitialized:
		return "uninitialized"
	case Configured:
		return "configured"
	case Completed:
		return "completed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// PostDrainPolicy decides what happens once the outlet can remove more
// water than the reservoir holds.
type PostDrainPolicy int

const (
	// ClampAndContinue caps the step volume at the remaining storage so
	// storage never goes negative, and keeps stepping to the horizon.
	// On the capped step Discharge is back-computed from that volume and
	// is smaller than the orifice equation gives for the step's head.
	ClampAndContinue PostDrainPolicy = iota
	// Unclamped lets storage go negative past drain.
	Unclamped
)

func (p PostDrainPolicy) String() string {
	switch p {
	case ClampAndContinue:
		return "clamp"
	case Unclamped:
		return "unclamped"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

func ParsePolicy(s string) (PostDrainPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "clamp", "clamp-and-continue":
		return ClampAndContinue, nil
	case "unclamped", "none", "raw":
		return Unclamped, nil
	}
	return 0, fmt.Errorf("unknown post-drain policy: %s", s)
}

type Config struct {
	Dt    float64
	Steps int
	// FlowToVolume converts one unit of discharge over one unit of time
	// into one unit of storage.
	FlowToVolume float64
	TimeUnit     string
	Policy       PostDrainPolicy
}

func (c Config) validate() error {
	if !(c.Dt > 0) || math.IsInf(c.Dt, 0) {
		return invalid("dt", "must be positive, got %g", c.Dt)
	}
	if c.Steps <= 0 {
		return invalid("steps", "must be positive, got %d", c.Steps)
	}
	if !(c.FlowToVolume > 0) || math.IsInf(c.FlowToVolume, 0) {
		return invalid("flow_to_volume", "must be positive, got %g", c.FlowToVolume)
	}
	if c.Policy != ClampAndContinue && c.Policy != Unclamped {
		return invalid("policy", "unknown value %d", int(c.Policy))
	}
	return nil
}

// InitialCondition is the reservoir at the moment the outlet opens.
type InitialCondition struct {
	Elevation float64 `json:"elevation" yaml:"elevation"`
	Head      float64 `json:"head" yaml:"head"`
}

// State is the reservoir over one step. Head is accumulated from
// elevation differences rather than looked up.
type State struct {
	Step           int     `json:"step"`
	Time           float64 `json:"time"`
	Elevation      float64 `json:"elevation"`
	Head           float64 `json:"head"`
	StorageInitial float64 `json:"storage_initial"`
	Discharge      float64 `json:"discharge"`
	Velocity       float64 `json:"velocity"`
	VolumeChange   float64 `json:"volume_change"`
	StorageFinal   float64 `json:"storage_final"`
	SurfaceArea    float64 `json:"surface_area,omitempty"`
}

func (s State) Value(f Field) float64 {
	switch f {
	case FieldTime:
		return s.Time
	case FieldElevation:
		return s.Elevation
	case FieldHead:
		return s.Head
	case FieldStorageInitial:
		return s.StorageInitial
	case FieldDischarge:
		return s.Discharge
	case FieldVelocity:
		return s.Velocity
	case FieldVolumeChange:
		return s.VolumeChange
	case FieldStorageFinal:
		return s.StorageFinal
	case FieldSurfaceArea:
		return s.SurfaceArea
	}
	return math.NaN()
}

// firstNonFinite returns the first field holding NaN or Inf.
func (s State) firstNonFinite() (Field, bool) {
	for _, f := range allFields {
		v := s.Value(f)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return f, true
		}
	}
	return 0, false
}

type Field int

const (
	FieldTime Field = iota
	FieldElevation
	FieldHead
	FieldStorageInitial
	FieldDischarge
	FieldVelocity
	FieldVolumeChange
	FieldStorageFinal
	FieldSurfaceArea
)

var allFields = []Field{
	FieldTime, FieldElevation, FieldHead, FieldStorageInitial, FieldDischarge,
	FieldVelocity, FieldVolumeChange, FieldStorageFinal, FieldSurfaceArea,
}

var fieldNames = map[Field]string{
	FieldTime:           "time",
	FieldElevation:      "elevation",
	FieldHead:           "head",
	FieldStorageInitial: "storage_initial",
	FieldDischarge:      "discharge",
	FieldVelocity:       "velocity",
	FieldVolumeChange:   "volume_change",
	FieldStorageFinal:   "storage_final",
	FieldSurfaceArea:    "surface_area",
}

var fieldUnits = map[Field]string{
	FieldElevation:      "ft",
	FieldHead:           "ft",
	FieldStorageInitial: "acre-ft",
	FieldDischarge:      "cfs",
	FieldVelocity:       "ft/s",
	FieldVolumeChange:   "acre-ft",
	FieldStorageFinal:   "acre-ft",
	FieldSurfaceArea:    "acres",
}

// Columns are the exported table columns, in order.
var Columns = []Field{
	FieldTime, FieldElevation, FieldHead, FieldStorageInitial,
	FieldDischarge, FieldVelocity, FieldVolumeChange, FieldStorageFinal,
}

func (f Field) String() string {
	if n, ok := fieldNames[f]; ok {
		return n
	}
	return fmt.Sprintf("field(%d)", int(f))
}

// Unit is the customary unit label; time units come from the run config.
func (f Field) Unit() string { return fieldUnits[f] }

func ParseField(name string) (Field, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for f, fn := range fieldNames {
		if fn == n {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown field: %s", name)
}

// Result is the time series of one run.
type Result struct {
	States   []State            `json:"states"`
	Dt       float64            `json:"dt"`
	Steps    int                `json:"steps"`
	TimeUnit string             `json:"time_unit"`
	Policy   string             `json:"policy"`
	Outlet   hydraulics.Outlet  `json:"outlet"`
	Initial  InitialCondition   `json:"initial"`
	Metrics  map[string]float64 `json:"metrics"`
}

func (r *Result) Len() int { return len(r.States) }

func (r *Result) Series(f Field) []float64 {
	out := make([]float64, len(r.States))
	for i, s := range r.States {
		out[i] = s.Value(f)
	}
	return out
}

func (r *Result) Times() []float64 { return r.Series(FieldTime) }

// Horizon is the elapsed time at the end of the last step.
func (r *Result) Horizon() float64 { return float64(r.Steps) * r.Dt }

// Observer is notified after every completed step.
type Observer interface {
	OnStep(s State)
}

// Metric accumulates a scalar over a run.
type Metric interface {
	Name() string
	Observe(s State)
	Value() float64
	Reset()
}
