package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/drawdown/internal/drawdown"
)

var ErrBadHeader = errors.New("storage: unexpected results header")

func header() []string {
	h := make([]string, len(drawdown.Columns))
	for i, f := range drawdown.Columns {
		h[i] = f.String()
	}
	return h
}

// WriteCSV writes one row per state in drawdown.Columns order.
func WriteCSV(w io.Writer, result *drawdown.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header()); err != nil {
		return err
	}

	row := make([]string, len(drawdown.Columns))
	for _, st := range result.States {
		for i, f := range drawdown.Columns {
			row[i] = strconv.FormatFloat(st.Value(f), 'f', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a table written by WriteCSV. Step numbers are the row
// order.
func ReadCSV(r io.Reader) ([]drawdown.State, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(drawdown.Columns)

	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, name := range header() {
		if head[i] != name {
			return nil, fmt.Errorf("%w: column %d is %q, want %q", ErrBadHeader, i+1, head[i], name)
		}
	}

	states := make([]drawdown.State, 0, 256)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		vals := make([]float64, len(drawdown.Columns))
		for i := range drawdown.Columns {
			v, err := strconv.ParseFloat(rec[i], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d, %s: %w", len(states)+1, drawdown.Columns[i], err)
			}
			vals[i] = v
		}
		states = append(states, drawdown.State{
			Step:           len(states),
			Time:           vals[0],
			Elevation:      vals[1],
			Head:           vals[2],
			StorageInitial: vals[3],
			Discharge:      vals[4],
			Velocity:       vals[5],
			VolumeChange:   vals[6],
			StorageFinal:   vals[7],
		})
	}
	return states, nil
}

type ExportData struct {
	Run     RunMetadata      `json:"run"`
	Columns []string         `json:"columns"`
	States  []drawdown.State `json:"states"`
}

func ExportJSON(w io.Writer, meta RunMetadata, result *drawdown.Result) error {
	data := ExportData{
		Run:     meta,
		Columns: header(),
		States:  result.States,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
