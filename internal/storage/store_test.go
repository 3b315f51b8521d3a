package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/san-kum/sfclab/internal/control"
	"github.com/san-kum/sfclab/internal/dynamo"
)

func testRun() (RunMetadata, *dynamo.Result) {
	meta := RunMetadata{
		Name:       "test",
		Seed:       42,
		PeriodMs:   10,
		DurationMs: 20,
		Model: control.Model{
			A: [][]float64{{1, 0.1}, {0, 1}},
			B: []float64{0, 0.1},
			C: []float64{1, 0},
			K: []float64{2, 1},
			L: []float64{0.5, 0.1},
		},
	}
	result := &dynamo.Result{
		Times:      []float64{0.01, 0.02},
		Intervals:  []uint32{10, 10},
		Outputs:    []float64{0, 0.05},
		Controls:   []float64{2, 1.8},
		States:     []dynamo.State{{0, 0}, {0.05, 0.2}},
		Estimates:  []dynamo.State{{0, 0}, {0, 0.2}},
		Metrics:    map[string]float64{"tracking_rms": 0.5},
		StepsTaken: 2,
		Errors:     []error{errors.New("boom")},
	}
	return meta, result
}

func TestStoreSaveCleansUpOnError(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}

	meta, result := testRun()
	result.Metrics["control_effort"] = math.Inf(1)
	if _, err := st.Save(meta, result); err == nil {
		t.Fatal("expected an encoding error for an infinite metric")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("failed save left %d entries behind", len(entries))
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	meta, result := testRun()
	runID, err := st.Save(meta, result)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if runID == "" {
		t.Error("expected non-empty run id")
	}

	loaded, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Name != "test" || loaded.Seed != 42 || loaded.Rank != 2 || loaded.Steps != 2 {
		t.Errorf("unexpected metadata: %+v", loaded)
	}
	if loaded.Metrics["tracking_rms"] != 0.5 {
		t.Errorf("expected tracking_rms 0.5, got %f", loaded.Metrics["tracking_rms"])
	}
	if len(loaded.Errors) != 1 || loaded.Errors[0] != "boom" {
		t.Errorf("errors not recorded: %v", loaded.Errors)
	}
	if loaded.Model.K[0] != 2 {
		t.Errorf("model not recorded: %+v", loaded.Model)
	}

	series, err := st.LoadSeries(runID)
	if err != nil {
		t.Fatalf("load series failed: %v", err)
	}
	if len(series.Times) != 2 || series.StepsTaken != 2 {
		t.Fatalf("expected 2 samples, got %d", len(series.Times))
	}
	if diff := cmp.Diff(result, series, cmpopts.IgnoreFields(dynamo.Result{}, "Errors")); diff != "" {
		t.Errorf("series mismatch (-want +got):\n%s", diff)
	}
}

func TestStoreList(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "runs"))

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	if err := st.Init(); err != nil {
		t.Fatal(err)
	}
	meta, result := testRun()
	if _, err := st.Save(meta, result); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, err := st.Save(meta, result); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(runs))
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}

	meta, result := testRun()
	runID, err := st.Save(meta, result)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	for _, name := range []string{metadataFile, seriesFile} {
		if _, err := os.Stat(filepath.Join(tmpDir, runID, name)); os.IsNotExist(err) {
			t.Errorf("%s not created", name)
		}
	}
}

func TestSeriesHeader(t *testing.T) {
	got := SeriesHeader(2)
	want := []string{"time", "interval_ms", "y", "u", "x0", "x1", "xhat0", "xhat1"}
	if len(got) != len(want) {
		t.Fatalf("header = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("header = %v, want %v", got, want)
		}
	}
}

func TestExportJSON(t *testing.T) {
	meta, result := testRun()

	var buf bytes.Buffer
	if err := ExportJSON(&buf, meta, result); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if data.Run.Name != "test" || len(data.Estimates) != 2 || data.Controls[0] != 2 {
		t.Errorf("unexpected export: %+v", data)
	}
}
