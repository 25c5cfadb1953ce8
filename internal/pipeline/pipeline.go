// Package pipeline wires the review funnel end to end: partition, split,
// index, critical filter, summaries and the per-file review batch.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dshills/funnel/internal/filter"
	"github.com/dshills/funnel/internal/model"
	"github.com/dshills/funnel/internal/providers"
	"github.com/dshills/funnel/internal/redact"
	"github.com/dshills/funnel/internal/retrieval"
	"github.com/dshills/funnel/internal/review"
	"github.com/dshills/funnel/internal/source"
	"github.com/dshills/funnel/internal/summarize"
	"github.com/dshills/funnel/internal/syntax"
)

// Stage names reported through Options.OnStage.
const (
	StagePartition = "partition"
	StageIndex     = "index"
	StageFilter    = "filter"
	StageSummarize = "summarize"
	StageReview    = "review"
)

// Deps are the collaborators a Pipeline calls out to.
type Deps struct {
	// Reviewer serves the analyze and reduce calls.
	Reviewer providers.Client
	// Summarizer serves L2. Nil falls back to Reviewer.
	Summarizer providers.Client
	// Index backs symbol retrieval. Nil disables retrieval; every requested
	// symbol is then reported as not found.
	Index *retrieval.Index
	// Analyzer measures complexity. Nil selects syntax.NewAnalyzer.
	Analyzer syntax.Analyzer
}

// Options tunes a Pipeline. Zero values select each stage's default.
type Options struct {
	Threshold        int
	MaxChunksPerFile int
	Concurrency      int
	MaxAttempts      int
	MaxTokens        int
	RetrievalK       int
	Rules            *review.Rules
	RedactPaths      []string
	Logger           *slog.Logger

	OnStage    func(stage string)
	OnFileDone func(review.FileReport)
}

// Triage is the outcome of the model-free stages.
type Triage struct {
	Repo      string `json:"repo"`
	Branch    string `json:"branch"`
	Files     int    `json:"files"`
	Core      int    `json:"core"`
	Context   int    `json:"context"`
	Tests     int    `json:"tests"`
	Discarded int    `json:"discarded"`
	Redacted  int    `json:"redacted,omitempty"`
	// CoreChunks counts the chunks split from core files, the L1 input.
	CoreChunks int          `json:"coreChunks"`
	Filter     filter.Stats `json:"filter"`

	// Kept holds the chunks L1 retained, in input order.
	Kept []model.Chunk `json:"-"`

	partition filter.Partition
	all       []model.Chunk
}

// Report is the outcome of a full run.
type Report struct {
	Triage    Triage            `json:"triage"`
	Summaries map[string]string `json:"summaries,omitempty"`
	Review    review.Result     `json:"review"`
	Duration  time.Duration     `json:"duration"`
}

// Pipeline runs the funnel over a repository snapshot.
type Pipeline struct {
	deps   Deps
	opts   Options
	logger *slog.Logger
	critic *filter.Critical
}

// New creates a Pipeline.
func New(deps Deps, opts Options) *Pipeline {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if deps.Summarizer == nil {
		deps.Summarizer = deps.Reviewer
	}
	return &Pipeline{
		deps:   deps,
		opts:   opts,
		logger: opts.Logger,
		critic: filter.NewCritical(deps.Analyzer, opts.Threshold, opts.Logger),
	}
}

// Triage runs L0 and L1 without contacting a model.
func (p *Pipeline) Triage(ctx context.Context, snap source.Snapshot) Triage {
	files, withheld := redact.Files(snap.Files, p.opts.RedactPaths)
	if len(withheld) > 0 {
		p.logger.Info("withheld files by path policy", "files", len(withheld))
	}

	p.stage(StagePartition)
	part := filter.PartitionFiles(files)
	core := syntax.SplitAll(ctx, part.Core, model.CategoryCore)
	ctxChunks := syntax.SplitAll(ctx, part.Context, model.CategoryContext)
	testChunks := syntax.SplitAll(ctx, part.Tests, model.CategoryTest)

	p.logger.Info("partitioned files",
		"repo", snap.Repo,
		"core", len(part.Core),
		"context", len(part.Context),
		"tests", len(part.Tests),
		"discarded", len(part.Discarded),
		"core_chunks", len(core))

	p.stage(StageFilter)
	res := p.critic.Filter(core)

	all := make([]model.Chunk, 0, len(core)+len(ctxChunks)+len(testChunks))
	all = append(all, core...)
	all = append(all, ctxChunks...)
	all = append(all, testChunks...)

	return Triage{
		Repo:       snap.Repo,
		Branch:     snap.Branch,
		Files:      len(snap.Files),
		Core:       len(part.Core),
		Context:    len(part.Context),
		Tests:      len(part.Tests),
		Discarded:  len(part.Discarded),
		Redacted:   len(withheld),
		CoreChunks: len(core),
		Filter:     res.Stats,
		partition:  part,
		Kept:       res.Kept,
		all:        all,
	}
}

// Run executes every stage and always returns a report. The error is
// non-nil only when the retrieval index cannot be rebuilt or ctx ends first.
func (p *Pipeline) Run(ctx context.Context, snap source.Snapshot) (Report, error) {
	start := time.Now()
	tri := p.Triage(ctx, snap)
	report := Report{Triage: tri}

	if len(tri.Kept) == 0 {
		report.Review = p.orchestrator(nil).Run(ctx, review.Input{})
		report.Duration = time.Since(start)
		return report, nil
	}

	var resolver review.SymbolResolver
	if p.deps.Index != nil {
		p.stage(StageIndex)
		if err := p.reindex(ctx, snap.Repo, tri.all); err != nil {
			return report, err
		}
		resolver = retrieval.NewResolver(p.deps.Index.Repo(snap.Repo), p.opts.RetrievalK, p.logger)
	}

	p.stage(StageSummarize)
	candidates := summaryCandidates(tri.partition, tri.Kept)
	summarizer := summarize.New(p.deps.Summarizer, summarize.Options{
		Concurrency: p.opts.Concurrency,
		Logger:      p.logger,
	})
	report.Summaries = summarizer.Summarize(ctx, candidates)
	p.logger.Info("summaries complete", "files", len(report.Summaries))

	if err := ctx.Err(); err != nil {
		return report, err
	}

	p.stage(StageReview)
	report.Review = p.orchestrator(resolver).Run(ctx, review.Input{
		Chunks:    tri.Kept,
		Summaries: report.Summaries,
		Tree:      source.RenderTree(snap.Repo, snap.Branch, snap.Paths()),
	})
	report.Duration = time.Since(start)
	return report, nil
}

func (p *Pipeline) orchestrator(resolver review.SymbolResolver) *review.Orchestrator {
	runner := review.NewRunner(p.deps.Reviewer, resolver, review.RunnerOptions{
		MaxAttempts: p.opts.MaxAttempts,
		MaxTokens:   p.opts.MaxTokens,
		Rules:       p.opts.Rules,
		Logger:      p.logger,
	})
	return review.NewOrchestrator(runner, p.deps.Reviewer, review.Options{
		MaxChunksPerFile: p.opts.MaxChunksPerFile,
		Concurrency:      p.opts.Concurrency,
		MaxTokens:        p.opts.MaxTokens,
		Rules:            p.opts.Rules,
		Logger:           p.logger,
		OnFileDone:       p.opts.OnFileDone,
	})
}

func (p *Pipeline) reindex(ctx context.Context, repo string, chunks []model.Chunk) error {
	if err := p.deps.Index.Reset(ctx, repo); err != nil {
		return fmt.Errorf("resetting index: %w", err)
	}
	if err := p.deps.Index.Add(ctx, repo, chunks); err != nil {
		return fmt.Errorf("indexing chunks: %w", err)
	}
	p.logger.Info("indexed chunks", "repo", repo, "chunks", len(chunks))
	return nil
}

func (p *Pipeline) stage(name string) {
	if p.opts.OnStage != nil {
		p.opts.OnStage(name)
	}
}

// summaryCandidates returns the full core files that own at least one
// critical chunk, in core order, followed by every context and test file.
func summaryCandidates(part filter.Partition, kept []model.Chunk) []model.SourceFile {
	critical := make(map[string]bool, len(kept))
	for _, c := range kept {
		critical[c.Source] = true
	}
	var out []model.SourceFile
	for _, f := range part.Core {
		if critical[f.Path] {
			out = append(out, f)
		}
	}
	return append(out, part.ContextFiles()...)
}
