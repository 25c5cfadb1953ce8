package review

import (
	"cmp"
	"maps"
	"slices"
	"time"

	"github.com/dshills/funnel/internal/model"
)

// AnalysisOutput is the JSON object the model returns from an analyze step.
type AnalysisOutput struct {
	IsComplete     bool     `json:"is_complete"`
	UnknownSymbols []string `json:"unknown_symbols"`
	Report         string   `json:"report"`
}

// FileReport is the outcome of one file's review.
type FileReport struct {
	Path       string        `json:"path"`
	Report     string        `json:"report"`
	Failed     bool          `json:"failed,omitempty"`
	Attempts   int           `json:"attempts"`
	Retrievals int           `json:"retrievals"`
	Chunks     int           `json:"chunks"`
	TokensUsed int           `json:"tokensUsed"`
	Duration   time.Duration `json:"durationNs"`
}

// Section renders the report the way it is fed to the reduction.
func (r FileReport) Section() string {
	body := r.Report
	if body == "" {
		body = NoReport
	}
	return "### File: " + r.Path + "\n" + body
}

// Result is the outcome of a batch run.
type Result struct {
	RunID      string        `json:"runId"`
	Files      []FileReport  `json:"files"`
	Aggregate  string        `json:"aggregate"`
	Reduced    bool          `json:"reduced"`
	ReduceErr  string        `json:"reduceError,omitempty"`
	TokensUsed int           `json:"tokensUsed"`
	Duration   time.Duration `json:"durationNs"`
}

// Failures counts files whose review faulted.
func (r Result) Failures() int {
	n := 0
	for _, f := range r.Files {
		if f.Failed {
			n++
		}
	}
	return n
}

// Degraded reports whether per-file reports exist but the reduction did not
// produce the aggregate.
func (r Result) Degraded() bool {
	return len(r.Files) > 0 && !r.Reduced
}

type severityTag int

const (
	tagComplexity severityTag = iota
	tagSecurity
)

// severity orders chunks within a file. A security hit outranks any
// complexity score; complexity scores compare numerically.
type severity struct {
	tag        severityTag
	complexity int
}

func severityOf(c model.Chunk) severity {
	if c.KeepReason == model.ReasonSecurity {
		return severity{tag: tagSecurity}
	}
	return severity{tag: tagComplexity, complexity: c.Complexity}
}

func compareSeverity(a, b severity) int {
	if a.tag != b.tag {
		return cmp.Compare(a.tag, b.tag)
	}
	return cmp.Compare(a.complexity, b.complexity)
}

// selectTargets returns at most limit chunks, most severe first. Ties keep
// source order.
func selectTargets(chunks []model.Chunk, limit int) []model.Chunk {
	sorted := slices.Clone(chunks)
	slices.SortStableFunc(sorted, func(a, b model.Chunk) int {
		return compareSeverity(severityOf(b), severityOf(a))
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// groupByFile groups chunks by source path in first-seen order.
func groupByFile(chunks []model.Chunk) ([]string, map[string][]model.Chunk) {
	var order []string
	groups := make(map[string][]model.Chunk)
	for _, c := range chunks {
		if _, ok := groups[c.Source]; !ok {
			order = append(order, c.Source)
		}
		groups[c.Source] = append(groups[c.Source], c)
	}
	return order, groups
}

func sortedKeys(m map[string]bool) []string {
	return slices.Sorted(maps.Keys(m))
}
