package summary

import (
	"errors"
	"testing"

	"github.com/san-kum/drawdown/internal/drawdown"
)

func makeResult(elev, q []float64) *drawdown.Result {
	res := &drawdown.Result{Dt: 2, Steps: len(elev), TimeUnit: "hr"}
	for i := range elev {
		res.States = append(res.States, drawdown.State{
			Step:      i,
			Time:      float64(i+1) * 2,
			Elevation: elev[i],
			Discharge: q[i],
		})
	}
	return res
}

func TestSummarize(t *testing.T) {
	res := makeResult(
		[]float64{100, 98, 96, 94, 92, 92, 92},
		[]float64{10, 8, 6, 3, 0, 0, 0},
	)

	s := Summarize(res, Criterion{TargetElevation: 97, Label: "half", Deadline: 6})

	if !s.Target.Reached || s.Target.Step != 2 || s.Target.Time != 6 {
		t.Errorf("unexpected target crossing: %+v", s.Target)
	}
	if !s.Drained.Reached || s.Drained.Step != 4 || s.Drained.Time != 10 {
		t.Errorf("unexpected drained crossing: %+v", s.Drained)
	}
	if s.Horizon != 14 {
		t.Errorf("expected horizon 14, got %v", s.Horizon)
	}
	if err := s.Err(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	met, ok := s.MeetsDeadline()
	if !ok || !met {
		t.Errorf("expected deadline met, got met=%v ok=%v", met, ok)
	}
}

func TestFirstBelowIsStrictAndFirst(t *testing.T) {
	res := makeResult(
		[]float64{100, 97, 96, 97.5, 95},
		[]float64{1, 1, 1, 1, 1},
	)

	c := FirstBelow(res, 97)
	if c.Step != 2 {
		t.Errorf("expected first strict crossing at step 2, got %d", c.Step)
	}
}

func TestNotReached(t *testing.T) {
	res := makeResult(
		[]float64{100, 99.5, 99},
		[]float64{5, 4, 3},
	)

	s := Summarize(res, Criterion{TargetElevation: 90, Label: "10% head", Deadline: 168})

	if s.Target.Reached || s.Target.Step != -1 {
		t.Errorf("target should not be reached: %+v", s.Target)
	}
	if s.Drained.Reached {
		t.Errorf("drain should not be reached: %+v", s.Drained)
	}

	err := s.Err()
	if !errors.Is(err, ErrCriterionNotReached) {
		t.Fatalf("expected ErrCriterionNotReached, got %v", err)
	}
	var nr *NotReachedError
	if !errors.As(err, &nr) || nr.Horizon != 6 {
		t.Errorf("unexpected not reached error: %v", err)
	}

	met, ok := s.MeetsDeadline()
	if !ok || met {
		t.Errorf("deadline should be evaluated and missed, got met=%v ok=%v", met, ok)
	}
}

func TestDrainedRequiresPriorFlow(t *testing.T) {
	res := makeResult(
		[]float64{100, 100, 100},
		[]float64{0, 0, 0},
	)
	if c := FirstDrained(res); c.Reached {
		t.Errorf("never-flowing outlet must not count as drained: %+v", c)
	}
}

func TestDrainedMissesNearZero(t *testing.T) {
	res := makeResult(
		[]float64{100, 99, 98},
		[]float64{1, 1e-12, 1e-15},
	)
	if c := FirstDrained(res); c.Reached {
		t.Errorf("only exact zero counts as drained: %+v", c)
	}
}

func TestMeetsDeadlineDisabled(t *testing.T) {
	res := makeResult([]float64{100, 90}, []float64{1, 0})
	s := Summarize(res, Criterion{TargetElevation: 95})
	if _, ok := s.MeetsDeadline(); ok {
		t.Error("zero deadline should disable the check")
	}
}

func TestWindowAround(t *testing.T) {
	elev := make([]float64, 30)
	q := make([]float64, 30)
	for i := range elev {
		elev[i] = 100 - float64(i)
		q[i] = 1
	}
	res := makeResult(elev, q)

	rows, c := WindowAround(res, 80, 5, 10)
	if c.Step != 21 {
		t.Fatalf("expected crossing at 21, got %d", c.Step)
	}
	if len(rows) != 10 || rows[0].Step != 16 {
		t.Errorf("unexpected window: %d rows from step %d", len(rows), rows[0].Step)
	}

	rows, _ = WindowAround(res, 99.5, 5, 10)
	if len(rows) != 10 || rows[0].Step != 0 {
		t.Errorf("window should clamp at start: %d rows from step %d", len(rows), rows[0].Step)
	}

	if rows, c := WindowAround(res, 0, 5, 10); rows != nil || c.Reached {
		t.Error("expected empty window when elevation never reached")
	}
}

func TestUntilDrained(t *testing.T) {
	res := makeResult(
		[]float64{100, 98, 96, 96},
		[]float64{4, 2, 0, 0},
	)
	rows, c := UntilDrained(res)
	if !c.Reached || len(rows) != 3 {
		t.Errorf("expected 3 rows through drain, got %d (%+v)", len(rows), c)
	}
}
