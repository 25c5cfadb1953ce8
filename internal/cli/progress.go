package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/dshills/funnel/internal/pipeline"
	"github.com/dshills/funnel/internal/review"
)

// progress prints human-readable stage and file lines to stderr.
type progress struct {
	mu    sync.Mutex
	out   io.Writer
	quiet bool
	done  int
}

var stageLabels = map[string]string{
	pipeline.StagePartition: "Partitioning and splitting files",
	pipeline.StageFilter:    "Filtering critical code",
	pipeline.StageIndex:     "Indexing chunks for retrieval",
	pipeline.StageSummarize: "Summarizing files",
	pipeline.StageReview:    "Reviewing critical files",
}

func newProgress(out io.Writer, quiet bool) *progress {
	return &progress{out: out, quiet: quiet}
}

func (p *progress) stage(name string) {
	if p.quiet {
		return
	}
	label, ok := stageLabels[name]
	if !ok {
		label = name
	}
	cyan := color.New(color.FgCyan).SprintFunc()
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "%s %s\n", cyan("==>"), label)
}

func (p *progress) fileDone(r review.FileReport) {
	if p.quiet {
		return
	}
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	mark := green("✓")
	if r.Failed {
		mark = red("✗")
	}
	fmt.Fprintf(p.out, "  %s [%d] %s (%d attempts, %d retrievals)\n",
		mark, p.done, r.Path, r.Attempts, r.Retrievals)
}

func (p *progress) warn(format string, args ...any) {
	yellow := color.New(color.FgYellow).SprintFunc()
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "%s %s\n", yellow("WARNING:"), fmt.Sprintf(format, args...))
}
