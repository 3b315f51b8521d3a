package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/sfclab/internal/dynamo"
)

type ExportData struct {
	Run       RunMetadata `json:"run"`
	Times     []float64   `json:"times"`
	Intervals []uint32    `json:"intervals_ms"`
	Outputs   []float64   `json:"outputs"`
	Controls  []float64   `json:"controls"`
	States    [][]float64 `json:"states"`
	Estimates [][]float64 `json:"estimates"`
}

// ExportJSON writes a run and its series as one JSON document.
func ExportJSON(w io.Writer, meta RunMetadata, result *dynamo.Result) error {
	data := ExportData{
		Run:       meta,
		Times:     result.Times,
		Intervals: result.Intervals,
		Outputs:   result.Outputs,
		Controls:  result.Controls,
		States:    make([][]float64, len(result.States)),
		Estimates: make([][]float64, len(result.Estimates)),
	}
	for i, s := range result.States {
		data.States[i] = s
	}
	for i, s := range result.Estimates {
		data.Estimates[i] = s
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
