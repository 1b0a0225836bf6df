package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/san-kum/drawdown/internal/drawdown"
	"github.com/san-kum/drawdown/internal/hydraulics"
	"github.com/san-kum/drawdown/internal/summary"
)

var (
	ErrInvalidTag  = errors.New("storage: tag must be letters, digits, '-', '_' or '.'")
	ErrRunNotFound = errors.New("storage: run not found")
)

// runNamespace scopes the name-based run IDs so the same tag always maps
// to the same ID.
var runNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("drawdown/runs"))

var tagPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

func ValidTag(tag string) error {
	if !tagPattern.MatchString(tag) {
		return fmt.Errorf("%w: %q", ErrInvalidTag, tag)
	}
	return nil
}

// RunID is the name-based UUID for a tag.
func RunID(tag string) string {
	return uuid.NewSHA1(runNamespace, []byte(tag)).String()
}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Dir() string { return s.baseDir }

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string                    `json:"id"`
	Tag       string                    `json:"tag"`
	Name      string                    `json:"name"`
	Timestamp time.Time                 `json:"timestamp"`
	Dt        float64                   `json:"dt"`
	Steps     int                       `json:"steps"`
	TimeUnit  string                    `json:"time_unit"`
	Policy    string                    `json:"policy"`
	Outlet    hydraulics.Outlet         `json:"outlet"`
	Initial   drawdown.InitialCondition `json:"initial"`
	Criterion summary.Criterion         `json:"criterion"`
	Target    summary.Crossing          `json:"target"`
	Drained   summary.Crossing          `json:"drained"`
	Metrics   map[string]float64        `json:"metrics"`
}

// NewMetadata fills the run fields from a result and its summary.
func NewMetadata(tag, name string, res *drawdown.Result, sum summary.Summary) RunMetadata {
	return RunMetadata{
		ID:        RunID(tag),
		Tag:       tag,
		Name:      name,
		Timestamp: time.Now().UTC(),
		Dt:        res.Dt,
		Steps:     res.Steps,
		TimeUnit:  res.TimeUnit,
		Policy:    res.Policy,
		Outlet:    res.Outlet,
		Initial:   res.Initial,
		Criterion: sum.Criterion,
		Target:    sum.Target,
		Drained:   sum.Drained,
		Metrics:   res.Metrics,
	}
}

func (s *Store) runDir(tag string) string { return filepath.Join(s.baseDir, tag) }

// Save writes <dir>/<tag>/metadata.json and results.csv, replacing any
// earlier run with the same tag.
func (s *Store) Save(meta RunMetadata, result *drawdown.Result) (string, error) {
	if err := ValidTag(meta.Tag); err != nil {
		return "", err
	}
	meta.ID = RunID(meta.Tag)

	runDir := s.runDir(meta.Tag)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeFile(filepath.Join(runDir, "metadata.json"), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(meta)
	}); err != nil {
		return "", fmt.Errorf("write metadata: %w", err)
	}

	if err := writeFile(filepath.Join(runDir, "results.csv"), func(w io.Writer) error {
		return WriteCSV(w, result)
	}); err != nil {
		return "", fmt.Errorf("write results: %w", err)
	}
	return meta.ID, nil
}

// writeFile creates path and reports the close error when write succeeded.
func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// List returns the stored runs sorted by tag. Directories without
// readable metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Tag < runs[j].Tag })
	return runs, nil
}

func (s *Store) Load(tag string) (*RunMetadata, error) {
	if err := ValidTag(tag); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.runDir(tag), "metadata.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, tag)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: metadata: %w", tag, err)
	}
	return &meta, nil
}

// LoadResult rebuilds the stored result table for a run.
func (s *Store) LoadResult(tag string) (*RunMetadata, *drawdown.Result, error) {
	meta, err := s.Load(tag)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(filepath.Join(s.runDir(tag), "results.csv"))
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	states, err := ReadCSV(f)
	if err != nil {
		return nil, nil, fmt.Errorf("run %s: %w", tag, err)
	}

	res := &drawdown.Result{
		States:   states,
		Dt:       meta.Dt,
		Steps:    meta.Steps,
		TimeUnit: meta.TimeUnit,
		Policy:   meta.Policy,
		Outlet:   meta.Outlet,
		Initial:  meta.Initial,
		Metrics:  meta.Metrics,
	}
	return meta, res, nil
}

// Delete removes a stored run.
func (s *Store) Delete(tag string) error {
	if _, err := s.Load(tag); err != nil {
		return err
	}
	return os.RemoveAll(s.runDir(tag))
}
