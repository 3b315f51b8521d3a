// Package storage keeps simulation runs on disk, one directory per run
// with metadata.json and series.csv.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/san-kum/sfclab/internal/control"
	"github.com/san-kum/sfclab/internal/dynamo"
)

const (
	metadataFile = "metadata.json"
	seriesFile   = "series.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       int64              `json:"seed"`
	PeriodMs   uint32             `json:"period_ms"`
	DurationMs uint64             `json:"duration_ms"`
	JitterMs   uint32             `json:"jitter_ms"`
	Noise      float64            `json:"noise"`
	Rank       int                `json:"rank"`
	Model      control.Model      `json:"model"`
	Steps      int                `json:"steps"`
	Irregular  int                `json:"irregular"`
	Errors     []string           `json:"errors,omitempty"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Save writes meta and the recorded series. meta.ID and meta.Timestamp are
// filled in and the run ID is returned. On failure no run directory is
// left behind.
func (s *Store) Save(meta RunMetadata, result *dynamo.Result) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", meta.Name, now.UnixMilli())
	runDir := filepath.Join(s.baseDir, runID)
	for i := 1; ; i++ {
		if _, err := os.Stat(runDir); os.IsNotExist(err) {
			break
		}
		runID = fmt.Sprintf("%s_%d_%d", meta.Name, now.UnixMilli(), i)
		runDir = filepath.Join(s.baseDir, runID)
	}

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta.ID = runID
	meta.Timestamp = now
	meta.Rank = meta.Model.Rank()
	meta.Steps = result.StepsTaken
	meta.Irregular = result.Irregular
	meta.Metrics = result.Metrics
	for _, err := range result.Errors {
		meta.Errors = append(meta.Errors, err.Error())
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		os.RemoveAll(runDir)
		return "", errors.Wrap(err, "write metadata")
	}
	if err := writeSeries(filepath.Join(runDir, seriesFile), meta.Rank, result); err != nil {
		os.RemoveAll(runDir)
		return "", errors.Wrap(err, "write series")
	}
	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// SeriesHeader is the CSV header for a run of the given rank.
func SeriesHeader(rank int) []string {
	header := []string{"time", "interval_ms", "y", "u"}
	for i := 0; i < rank; i++ {
		header = append(header, fmt.Sprintf("x%d", i))
	}
	for i := 0; i < rank; i++ {
		header = append(header, fmt.Sprintf("xhat%d", i))
	}
	return header
}

// SeriesRow formats step i of result.
func SeriesRow(rank int, result *dynamo.Result, i int) []string {
	row := []string{
		strconv.FormatFloat(result.Times[i], 'f', 6, 64),
		strconv.FormatUint(uint64(result.Intervals[i]), 10),
		strconv.FormatFloat(result.Outputs[i], 'g', -1, 64),
		strconv.FormatFloat(result.Controls[i], 'g', -1, 64),
	}
	for _, series := range [][]dynamo.State{result.States, result.Estimates} {
		for j := 0; j < rank; j++ {
			val := 0.0
			if j < len(series[i]) {
				val = series[i][j]
			}
			row = append(row, strconv.FormatFloat(val, 'g', -1, 64))
		}
	}
	return row
}

func writeSeries(path string, rank int, result *dynamo.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(SeriesHeader(rank)); err != nil {
		return err
	}
	for i := range result.Times {
		if err := w.Write(SeriesRow(rank, result, i)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

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
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, errors.Wrapf(err, "run %s metadata", runID)
	}
	return &meta, nil
}

// LoadSeries reads the recorded series of a run back into a Result.
// Metrics come from the metadata.
func (s *Store) LoadSeries(runID string) (*dynamo.Result, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(s.baseDir, runID, seriesFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "run %s series", runID)
	}

	result := &dynamo.Result{Metrics: meta.Metrics, Irregular: meta.Irregular}
	if len(records) < 2 {
		return result, nil
	}

	rank := meta.Rank
	for line, record := range records[1:] {
		if len(record) != 4+2*rank {
			return nil, errors.Errorf("run %s line %d: %d fields, want %d", runID, line+2, len(record), 4+2*rank)
		}
		vals := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "run %s line %d", runID, line+2)
			}
			vals[j] = v
		}

		result.Times = append(result.Times, vals[0])
		result.Intervals = append(result.Intervals, uint32(vals[1]))
		result.Outputs = append(result.Outputs, vals[2])
		result.Controls = append(result.Controls, vals[3])
		result.States = append(result.States, dynamo.State(vals[4:4+rank]))
		result.Estimates = append(result.Estimates, dynamo.State(vals[4+rank:]))
	}
	result.StepsTaken = len(result.Times)
	return result, nil
}
