package summary

import (
	"errors"
	"fmt"

	"github.com/san-kum/drawdown/internal/drawdown"
)

var ErrCriterionNotReached = errors.New("summary: criterion not reached within horizon")

// Criterion is a regulatory drawdown target, e.g. "10% head in 7 days".
type Criterion struct {
	TargetElevation float64 `json:"elevation" yaml:"elevation"`
	Label           string  `json:"label" yaml:"label"`
	// Deadline is the allowed elapsed time, in run time units. Zero
	// disables the check.
	Deadline float64 `json:"deadline,omitempty" yaml:"deadline"`
}

// Crossing is the first step at which a condition held. Reached is false
// when the horizon ended first.
type Crossing struct {
	Step    int     `json:"step"`
	Time    float64 `json:"time"`
	Reached bool    `json:"reached"`
}

func notReached() Crossing { return Crossing{Step: -1} }

type Summary struct {
	Criterion Criterion `json:"criterion"`
	Target    Crossing  `json:"target"`
	Drained   Crossing  `json:"drained"`
	Horizon   float64   `json:"horizon"`
	TimeUnit  string    `json:"time_unit"`
}

// NotReachedError reports a condition the run never met.
type NotReachedError struct {
	What    string
	Horizon float64
}

func (e *NotReachedError) Error() string {
	return fmt.Sprintf("summary: %s not reached within horizon %g", e.What, e.Horizon)
}

func (e *NotReachedError) Unwrap() error { return ErrCriterionNotReached }

// Summarize scans a completed run for the target elevation and for drain.
func Summarize(res *drawdown.Result, c Criterion) Summary {
	return Summary{
		Criterion: c,
		Target:    FirstBelow(res, c.TargetElevation),
		Drained:   FirstDrained(res),
		Horizon:   res.Horizon(),
		TimeUnit:  res.TimeUnit,
	}
}

// FirstBelow finds the first step whose elevation is strictly below the
// given elevation.
func FirstBelow(res *drawdown.Result, elevation float64) Crossing {
	for i, s := range res.States {
		if s.Elevation < elevation {
			return Crossing{Step: i, Time: s.Time, Reached: true}
		}
	}
	return notReached()
}

// FirstDrained finds the first zero-discharge step that follows a nonzero
// one. The comparison is exact; it relies on the simulator producing a
// literal zero for non-positive head, so a model that decays towards zero
// without clamping would never register as drained.
func FirstDrained(res *drawdown.Result) Crossing {
	flowing := false
	for i, s := range res.States {
		if s.Discharge != 0 {
			flowing = true
			continue
		}
		if flowing {
			return Crossing{Step: i, Time: s.Time, Reached: true}
		}
	}
	return notReached()
}

// Err returns a *NotReachedError for the first condition the run missed.
func (s Summary) Err() error {
	if !s.Target.Reached {
		what := "target elevation"
		if s.Criterion.Label != "" {
			what = fmt.Sprintf("target elevation (%s)", s.Criterion.Label)
		}
		return &NotReachedError{What: what, Horizon: s.Horizon}
	}
	if !s.Drained.Reached {
		return &NotReachedError{What: "zero discharge", Horizon: s.Horizon}
	}
	return nil
}

// MeetsDeadline reports whether the target was reached within the
// criterion deadline. ok is false when no deadline is set.
func (s Summary) MeetsDeadline() (met, ok bool) {
	if s.Criterion.Deadline <= 0 {
		return false, false
	}
	return s.Target.Reached && s.Target.Time <= s.Criterion.Deadline, true
}

// WindowAround returns up to size states starting before steps ahead of
// the first crossing below elevation.
func WindowAround(res *drawdown.Result, elevation float64, before, size int) ([]drawdown.State, Crossing) {
	c := FirstBelow(res, elevation)
	if !c.Reached {
		return nil, c
	}
	start := max(0, c.Step-before)
	end := min(len(res.States), start+size)
	return res.States[start:end], c
}

// UntilDrained returns every state up to and including the drained step.
func UntilDrained(res *drawdown.Result) ([]drawdown.State, Crossing) {
	c := FirstDrained(res)
	if !c.Reached {
		return nil, c
	}
	return res.States[:c.Step+1], c
}
