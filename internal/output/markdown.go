package output

import (
	"io"
	"strings"

	"github.com/dshills/funnel/internal/pipeline"
)

// MarkdownWriter outputs a markdown document.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, report *pipeline.Report) error {
	ew := &errWriter{w: w}
	res := report.Review

	ew.printf("## Funnel Code Review: `%s` @ `%s`\n\n", report.Triage.Repo, report.Triage.Branch)
	writeMarkdownStats(ew, &report.Triage)
	if len(res.Files) > 0 {
		ew.printf("| Files reviewed | %d |\n| Failed reviews | %d |\n", len(res.Files), res.Failures())
	}
	ew.println("")

	if res.Degraded() {
		ew.printf("> **Aggregation failed:** %s\n\n", res.ReduceErr)
	}
	ew.printf("%s\n\n", strings.TrimRight(res.Aggregate, "\n"))

	if len(res.Files) > 0 {
		ew.printf("<details>\n<summary>Per-file reports (%d)</summary>\n\n", len(res.Files))
		for _, f := range res.Files {
			ew.printf("### `%s`\n\n", f.Path)
			ew.printf("*%s | %d chunks | %d attempts | %d retrievals*\n\n",
				fileStatus(f), f.Chunks, f.Attempts, f.Retrievals)
			ew.printf("%s\n\n---\n\n", strings.TrimRight(reportBody(f), "\n"))
		}
		ew.printf("</details>\n\n")
	}

	ew.printf("*Run `%s` completed in %dms, %d tokens*\n",
		res.RunID, millis(report.Duration), res.TokensUsed)
	return ew.err
}

func (m *MarkdownWriter) WriteTriage(w io.Writer, tri *pipeline.Triage) error {
	ew := &errWriter{w: w}
	ew.printf("## Funnel Triage: `%s` @ `%s`\n\n", tri.Repo, tri.Branch)
	writeMarkdownStats(ew, tri)
	ew.println("")

	critical := tri.Kept
	if len(critical) == 0 {
		ew.println("No critical code found. :white_check_mark:")
		return ew.err
	}
	ew.println("| Location | Reason |")
	ew.println("|----------|--------|")
	for _, c := range critical {
		ew.printf("| `%s:%d-%d` | %s |\n", c.Source, c.Lines.Start, c.Lines.End, describeReason(c))
	}
	return ew.err
}

func writeMarkdownStats(ew *errWriter, tri *pipeline.Triage) {
	ew.println("| Stage | Count |")
	ew.println("|-------|-------|")
	ew.printf("| Files | %d |\n", tri.Files)
	ew.printf("| Core / context / tests | %d / %d / %d |\n", tri.Core, tri.Context, tri.Tests)
	ew.printf("| Discarded | %d |\n", tri.Discarded)
	ew.printf("| Critical chunks | %d of %d (%.1f%%) |\n", tri.Filter.Kept, tri.Filter.Total, tri.Filter.Ratio*100)
}
