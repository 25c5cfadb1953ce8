package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dshills/funnel/internal/filter"
	"github.com/dshills/funnel/internal/model"
	"github.com/dshills/funnel/internal/pipeline"
)

// JSONWriter outputs the report as JSON.
type JSONWriter struct{}

type jsonStats struct {
	Files      int          `json:"files"`
	Core       int          `json:"core"`
	Context    int          `json:"context"`
	Tests      int          `json:"tests"`
	Discarded  int          `json:"discarded"`
	Redacted   int          `json:"redacted"`
	CoreChunks int          `json:"coreChunks"`
	Filter     filter.Stats `json:"filter"`
}

type jsonFile struct {
	Path       string `json:"path"`
	Status     string `json:"status"`
	Report     string `json:"report"`
	Chunks     int    `json:"chunks"`
	Attempts   int    `json:"attempts"`
	Retrievals int    `json:"retrievals"`
	TokensUsed int    `json:"tokensUsed"`
	DurationMs int64  `json:"durationMs"`
}

type jsonReport struct {
	RunID       string            `json:"runId"`
	Repo        string            `json:"repo"`
	Branch      string            `json:"branch"`
	Stats       jsonStats         `json:"stats"`
	Summaries   map[string]string `json:"summaries,omitempty"`
	Files       []jsonFile        `json:"files"`
	Aggregate   string            `json:"aggregate"`
	Reduced     bool              `json:"reduced"`
	ReduceError string            `json:"reduceError,omitempty"`
	TokensUsed  int               `json:"tokensUsed"`
	DurationMs  int64             `json:"durationMs"`
}

type jsonTriage struct {
	Repo     string        `json:"repo"`
	Branch   string        `json:"branch"`
	Stats    jsonStats     `json:"stats"`
	Critical []model.Chunk `json:"critical"`
}

func statsOf(tri *pipeline.Triage) jsonStats {
	return jsonStats{
		Files:      tri.Files,
		Core:       tri.Core,
		Context:    tri.Context,
		Tests:      tri.Tests,
		Discarded:  tri.Discarded,
		Redacted:   tri.Redacted,
		CoreChunks: tri.CoreChunks,
		Filter:     tri.Filter,
	}
}

func (j *JSONWriter) Write(w io.Writer, report *pipeline.Report) error {
	res := report.Review
	doc := jsonReport{
		RunID:       res.RunID,
		Repo:        report.Triage.Repo,
		Branch:      report.Triage.Branch,
		Stats:       statsOf(&report.Triage),
		Summaries:   report.Summaries,
		Files:       make([]jsonFile, 0, len(res.Files)),
		Aggregate:   res.Aggregate,
		Reduced:     res.Reduced,
		ReduceError: res.ReduceErr,
		TokensUsed:  res.TokensUsed,
		DurationMs:  millis(report.Duration),
	}
	for _, f := range res.Files {
		doc.Files = append(doc.Files, jsonFile{
			Path:       f.Path,
			Status:     fileStatus(f),
			Report:     f.Report,
			Chunks:     f.Chunks,
			Attempts:   f.Attempts,
			Retrievals: f.Retrievals,
			TokensUsed: f.TokensUsed,
			DurationMs: millis(f.Duration),
		})
	}
	return encode(w, doc)
}

func (j *JSONWriter) WriteTriage(w io.Writer, tri *pipeline.Triage) error {
	critical := tri.Kept
	if critical == nil {
		critical = []model.Chunk{}
	}
	return encode(w, jsonTriage{
		Repo:     tri.Repo,
		Branch:   tri.Branch,
		Stats:    statsOf(tri),
		Critical: critical,
	})
}

func encode(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing JSON: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}
