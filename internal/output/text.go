package output

import (
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dshills/funnel/internal/model"
	"github.com/dshills/funnel/internal/pipeline"
	"github.com/dshills/funnel/internal/review"
)

// TextWriter outputs a human-readable report.
type TextWriter struct{}

func (t *TextWriter) Write(w io.Writer, report *pipeline.Report) error {
	ew := &errWriter{w: w}
	res := report.Review

	ew.printf("Funnel Code Review: %s @ %s\n", report.Triage.Repo, report.Triage.Branch)
	if res.RunID != "" {
		ew.printf("Run: %s\n", res.RunID)
	}
	ew.println(strings.Repeat("─", 60))
	writeTriageStats(ew, &report.Triage)
	ew.println(strings.Repeat("─", 60))

	if len(res.Files) > 0 {
		ew.printf("\nFiles reviewed: %d (%d failed)\n", len(res.Files), res.Failures())
		for _, f := range res.Files {
			status := "[ok]"
			if f.Failed {
				status = "[failed]"
			}
			ew.printf("  %-8s %s  (%d chunks, %d attempts, %d retrievals)\n",
				status, f.Path, f.Chunks, f.Attempts, f.Retrievals)
		}
	}

	if res.Degraded() {
		ew.printf("\n[!] Aggregation failed: %s\n", res.ReduceErr)
	}
	ew.printf("\n%s\n", strings.TrimRight(res.Aggregate, "\n"))

	ew.printf("\n%s\n", strings.Repeat("─", 60))
	ew.printf("Completed in %dms, %d tokens\n", report.Duration.Milliseconds(), res.TokensUsed)
	return ew.err
}

func (t *TextWriter) WriteTriage(w io.Writer, tri *pipeline.Triage) error {
	ew := &errWriter{w: w}
	ew.printf("Funnel Triage: %s @ %s\n", tri.Repo, tri.Branch)
	ew.println(strings.Repeat("─", 60))
	writeTriageStats(ew, tri)
	ew.println(strings.Repeat("─", 60))

	critical := tri.Kept
	if len(critical) == 0 {
		ew.println("\nNo critical code found.")
		return ew.err
	}
	ew.println("\nCritical chunks:")
	for _, c := range critical {
		ew.printf("  %s:%d-%d  %s\n", c.Source, c.Lines.Start, c.Lines.End, describeReason(c))
	}
	return ew.err
}

func writeTriageStats(ew *errWriter, tri *pipeline.Triage) {
	ew.printf("Files: %d (%d core, %d context, %d tests, %d discarded)\n",
		tri.Files, tri.Core, tri.Context, tri.Tests, tri.Discarded)
	if tri.Redacted > 0 {
		ew.printf("Redacted by path: %d\n", tri.Redacted)
	}
	ew.printf("Core chunks: %d, kept %d, dropped %d (%.1f%% kept)\n",
		tri.Filter.Total, tri.Filter.Kept, tri.Filter.Dropped, tri.Filter.Ratio*100)
	if len(tri.Filter.ByReason) > 0 {
		ew.printf("Keep reasons: %s\n", formatReasons(tri.Filter.ByReason))
	}
}

func formatReasons(by map[model.KeepReason]int) string {
	reasons := make([]string, 0, len(by))
	for r := range by {
		reasons = append(reasons, string(r))
	}
	sort.Strings(reasons)
	parts := make([]string, len(reasons))
	for i, r := range reasons {
		parts[i] = r + "=" + strconv.Itoa(by[model.KeepReason(r)])
	}
	return strings.Join(parts, ", ")
}

func describeReason(c model.Chunk) string {
	if c.KeepReason == model.ReasonHighComplexity {
		return string(c.KeepReason) + " (CCN " + strconv.Itoa(c.Complexity) + ")"
	}
	return string(c.KeepReason)
}

func fileStatus(f review.FileReport) string {
	if f.Failed {
		return "failed"
	}
	return "ok"
}

func reportBody(f review.FileReport) string {
	if f.Report == "" {
		return review.NoReport
	}
	return f.Report
}

func millis(d time.Duration) int64 { return d.Milliseconds() }
