package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/san-kum/drawdown/internal/drawdown"
	"github.com/san-kum/drawdown/internal/hydraulics"
	"github.com/san-kum/drawdown/internal/summary"
)

func sampleResult() *drawdown.Result {
	return &drawdown.Result{
		States: []drawdown.State{
			{Step: 0, Time: 1, Elevation: 2224, Head: 85, StorageInitial: 10837.5, Discharge: 603.88, Velocity: 42.7, VolumeChange: 49.9, StorageFinal: 10787.6, SurfaceArea: 255},
			{Step: 1, Time: 2, Elevation: 2223.8, Head: 84.8, StorageInitial: 10787.6, Discharge: 603.1, Velocity: 42.6, VolumeChange: 49.8, StorageFinal: 10737.8, SurfaceArea: 254.4},
		},
		Dt:       1,
		Steps:    2,
		TimeUnit: "hr",
		Policy:   "clamp",
		Outlet:   hydraulics.Outlet{Multiplicity: 2, Diameter: 3, LossCoefficient: 3},
		Initial:  drawdown.InitialCondition{Elevation: 2224, Head: 85},
		Metrics:  map[string]float64{"peak_discharge": 603.88},
	}
}

func sampleSummary() summary.Summary {
	return summary.Summary{
		Criterion: summary.Criterion{TargetElevation: 2209.6, Label: "10% head"},
		Target:    summary.Crossing{Step: -1},
		Drained:   summary.Crossing{Step: -1},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	res := sampleResult()
	meta := NewMetadata("baseline", "low-level-outlet", res, sampleSummary())

	id, err := st.Save(meta, res)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if id != RunID("baseline") {
		t.Errorf("run id should be derived from the tag, got %s", id)
	}

	got, err := st.Load("baseline")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got.Name != "low-level-outlet" || got.Outlet != res.Outlet || got.Criterion.Label != "10% head" {
		t.Errorf("metadata mismatch: %+v", got)
	}
	if got.Metrics["peak_discharge"] != 603.88 {
		t.Errorf("expected peak_discharge 603.88, got %v", got.Metrics["peak_discharge"])
	}
	if got.Target.Reached || got.Target.Step != -1 {
		t.Errorf("unexpected target crossing %+v", got.Target)
	}

	_, loaded, err := st.LoadResult("baseline")
	if err != nil {
		t.Fatalf("load result failed: %v", err)
	}
	if loaded.Len() != 2 {
		t.Fatalf("expected 2 states, got %d", loaded.Len())
	}
	ignoreArea := cmpopts.IgnoreFields(drawdown.State{}, "SurfaceArea")
	if diff := cmp.Diff(res.States, loaded.States, ignoreArea); diff != "" {
		t.Errorf("states changed on round trip (-saved +loaded):\n%s", diff)
	}
}

func TestRunIDDeterministic(t *testing.T) {
	if RunID("a") != RunID("a") {
		t.Error("same tag must give the same id")
	}
	if RunID("a") == RunID("b") {
		t.Error("different tags must give different ids")
	}
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	res := sampleResult()
	for _, tag := range []string{"k-2.0", "k-0.5", "k-1.0"} {
		if _, err := st.Save(NewMetadata(tag, "sweep", res, sampleSummary()), res); err != nil {
			t.Fatalf("save %s failed: %v", tag, err)
		}
	}
	if err := os.MkdirAll(filepath.Join(st.Dir(), "junk"), 0755); err != nil {
		t.Fatal(err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if runs[0].Tag != "k-0.5" || runs[2].Tag != "k-2.0" {
		t.Errorf("runs not sorted by tag: %s, %s, %s", runs[0].Tag, runs[1].Tag, runs[2].Tag)
	}
}

func TestStoreListMissingDir(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "absent"))
	runs, err := st.List()
	if err != nil || len(runs) != 0 {
		t.Errorf("expected empty list, got %v, %v", runs, err)
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	res := sampleResult()
	if _, err := st.Save(NewMetadata("test", "", res, sampleSummary()), res); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	for _, name := range []string{"metadata.json", "results.csv"} {
		if _, err := os.Stat(filepath.Join(tmpDir, "test", name)); os.IsNotExist(err) {
			t.Errorf("%s not created", name)
		}
	}
}

func TestWriteFileReportsErrors(t *testing.T) {
	dir := t.TempDir()

	errWrite := errors.New("disk full")
	if err := writeFile(filepath.Join(dir, "a"), func(io.Writer) error { return errWrite }); !errors.Is(err, errWrite) {
		t.Errorf("expected write error, got %v", err)
	}

	// a file closed underneath the writer makes the final Close fail
	err := writeFile(filepath.Join(dir, "b"), func(w io.Writer) error {
		return w.(*os.File).Close()
	})
	if !errors.Is(err, os.ErrClosed) {
		t.Errorf("expected close error, got %v", err)
	}

	if err := writeFile(filepath.Join(dir, "c"), func(w io.Writer) error {
		_, err := io.WriteString(w, "ok")
		return err
	}); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "c"))
	if err != nil || string(data) != "ok" {
		t.Errorf("unexpected contents %q: %v", data, err)
	}
}

func TestStoreSaveFailsOnUnwritableRun(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)
	res := sampleResult()

	// results.csv as a directory cannot be created as a file
	if err := os.MkdirAll(filepath.Join(dir, "blocked", "results.csv"), 0755); err != nil {
		t.Fatal(err)
	}
	if _, err := st.Save(NewMetadata("blocked", "", res, sampleSummary()), res); err == nil {
		t.Error("expected save to fail")
	}
}

func TestStoreRejectsBadTags(t *testing.T) {
	st := New(t.TempDir())
	res := sampleResult()

	for _, tag := range []string{"", "..", "../escape", "a/b", ".hidden"} {
		if _, err := st.Save(NewMetadata(tag, "", res, sampleSummary()), res); !errors.Is(err, ErrInvalidTag) {
			t.Errorf("tag %q: expected ErrInvalidTag, got %v", tag, err)
		}
	}
	if _, err := st.Load("missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestStoreDelete(t *testing.T) {
	st := New(t.TempDir())
	res := sampleResult()
	if _, err := st.Save(NewMetadata("gone", "", res, sampleSummary()), res); err != nil {
		t.Fatal(err)
	}
	if err := st.Delete("gone"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := st.Load("gone"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected run to be gone, got %v", err)
	}
}

func TestWriteCSVHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleResult()); err != nil {
		t.Fatalf("write: %v", err)
	}
	first := strings.SplitN(buf.String(), "\n", 2)[0]
	want := "time,elevation,head,storage_initial,discharge,velocity,volume_change,storage_final"
	if first != want {
		t.Errorf("header = %q, want %q", first, want)
	}
}

func TestReadCSVErrors(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("time,elev,head,a,b,c,d,e\n")); !errors.Is(err, ErrBadHeader) {
		t.Errorf("expected ErrBadHeader, got %v", err)
	}
	bad := "time,elevation,head,storage_initial,discharge,velocity,volume_change,storage_final\n1,2,3,4,x,6,7,8\n"
	if _, err := ReadCSV(strings.NewReader(bad)); err == nil {
		t.Error("expected parse error")
	}
}

func TestExportJSON(t *testing.T) {
	res := sampleResult()
	var buf bytes.Buffer
	if err := ExportJSON(&buf, NewMetadata("j", "json", res, sampleSummary()), res); err != nil {
		t.Fatalf("export: %v", err)
	}

	var got ExportData
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Run.Tag != "j" || len(got.States) != 2 || len(got.Columns) != 8 {
		t.Errorf("unexpected export: %+v", got)
	}
	if got.States[0].SurfaceArea != 255 {
		t.Errorf("json export should keep surface area, got %v", got.States[0].SurfaceArea)
	}
}
