package stats

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"ophion/internal/model"
)

// TelemetryRow is one generation's line in telemetry.csv.
type TelemetryRow struct {
	RunID      string  `csv:"run_id"`
	Generation int     `csv:"generation"`
	Best       float64 `csv:"best"`
	Mean       float64 `csv:"mean"`
	Std        float64 `csv:"std"`
	Median     float64 `csv:"median"`
	Worst      float64 `csv:"worst"`
}

// TelemetryWriter appends one CSV row per generation to telemetry.csv under
// the run's artifacts directory. The header is written with the first row.
// A nil writer discards everything, so callers can thread it through
// unconditionally.
type TelemetryWriter struct {
	runID         string
	file          *os.File
	headerWritten bool
}

// NewTelemetryWriter creates <baseDir>/<runID>/telemetry.csv, truncating any
// previous file for the run.
func NewTelemetryWriter(baseDir, runID string) (*TelemetryWriter, error) {
	if runID == "" {
		return nil, fmt.Errorf("run id is required")
	}
	runDir := filepath.Join(baseDir, runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, err
	}
	file, err := os.Create(filepath.Join(runDir, "telemetry.csv"))
	if err != nil {
		return nil, err
	}
	return &TelemetryWriter{runID: runID, file: file}, nil
}

// Append writes one generation's diagnostics as a CSV row.
func (w *TelemetryWriter) Append(d model.GenerationDiagnostics) error {
	if w == nil {
		return nil
	}
	rows := []TelemetryRow{{
		RunID:      w.runID,
		Generation: d.Generation,
		Best:       d.Best,
		Mean:       d.Mean,
		Std:        d.Std,
		Median:     d.Median,
		Worst:      d.Worst,
	}}
	if !w.headerWritten {
		if err := gocsv.Marshal(rows, w.file); err != nil {
			return fmt.Errorf("writing telemetry: %w", err)
		}
		w.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(rows, w.file); err != nil {
		return fmt.Errorf("writing telemetry: %w", err)
	}
	return nil
}

func (w *TelemetryWriter) Close() error {
	if w == nil || w.file == nil {
		return nil
	}
	return w.file.Close()
}

// ReadTelemetry loads a run's telemetry.csv back into rows, newest last.
func ReadTelemetry(baseDir, runID string) ([]TelemetryRow, bool, error) {
	path := filepath.Join(baseDir, runID, "telemetry.csv")
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	var rows []TelemetryRow
	if err := gocsv.Unmarshal(file, &rows); err != nil {
		return nil, false, fmt.Errorf("reading telemetry: %w", err)
	}
	return rows, true, nil
}
