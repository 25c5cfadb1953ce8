package review

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/funnel/internal/model"
	"github.com/dshills/funnel/internal/providers"
)

const (
	// DefaultMaxChunksPerFile bounds the chunks one file review sees.
	DefaultMaxChunksPerFile = 5
	// DefaultConcurrency bounds concurrent file reviews.
	DefaultConcurrency = 10
)

// NoCriticalCode is the whole result when filtering left nothing to review.
const NoCriticalCode = "No review reports generated: no critical code after filtering."

// FileReviewer reviews one file to completion. *Runner satisfies it.
type FileReviewer interface {
	Review(ctx context.Context, st *State) FileReport
}

// Input is everything a batch run needs.
type Input struct {
	Chunks    []model.Chunk
	Summaries map[string]string
	Tree      string
}

// Options configures an Orchestrator.
type Options struct {
	MaxChunksPerFile int
	Concurrency      int
	MaxTokens        int
	Rules            *Rules
	Logger           *slog.Logger
	// OnFileDone is called after each file finishes, from the worker
	// goroutine.
	OnFileDone func(FileReport)
}

// Orchestrator runs file reviews concurrently and reduces them.
type Orchestrator struct {
	reviewer FileReviewer
	reducer  providers.Client
	opts     Options
	logger   *slog.Logger
	tracer   trace.Tracer
	newID    func() string
}

// NewOrchestrator creates an Orchestrator. reducer makes the final
// aggregation call.
func NewOrchestrator(reviewer FileReviewer, reducer providers.Client, opts Options) *Orchestrator {
	if opts.MaxChunksPerFile < 1 {
		opts.MaxChunksPerFile = DefaultMaxChunksPerFile
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = DefaultConcurrency
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		reviewer: reviewer,
		reducer:  reducer,
		opts:     opts,
		logger:   logger,
		tracer:   otel.Tracer(tracerName),
		newID:    func() string { return "batch_" + uuid.NewString() },
	}
}

// Run reviews every file in in.Chunks and returns the aggregate. It always
// produces text: per-file faults become stubs and a failed reduction falls
// back to the raw per-file reports.
func (o *Orchestrator) Run(ctx context.Context, in Input) Result {
	start := time.Now()
	runID := o.newID()

	ctx, span := o.tracer.Start(ctx, "review.batch", trace.WithAttributes(attribute.String("run_id", runID)))
	defer span.End()

	order, groups := groupByFile(in.Chunks)
	span.SetAttributes(attribute.Int("files", len(order)))
	if len(order) == 0 {
		o.logger.Info("nothing to review", "run_id", runID)
		return Result{RunID: runID, Aggregate: NoCriticalCode, Duration: time.Since(start)}
	}

	o.logger.Info("starting batch review", "run_id", runID, "files", len(order), "concurrency", o.opts.Concurrency)

	reports := make([]FileReport, len(order))
	var g errgroup.Group
	g.SetLimit(o.opts.Concurrency)
	for i, path := range order {
		targets := selectTargets(groups[path], o.opts.MaxChunksPerFile)
		st := NewState(path, targets, GlobalContext(in.Tree, in.Summaries[path]))
		g.Go(func() error {
			reports[i] = o.reviewFile(ctx, st)
			o.notify(reports[i])
			return nil
		})
	}
	_ = g.Wait()

	res := Result{RunID: runID, Files: reports}
	for _, r := range reports {
		res.TokensUsed += r.TokensUsed
	}
	res.Aggregate, res.Reduced, res.ReduceErr = o.reduce(ctx, reports, &res.TokensUsed)
	res.Duration = time.Since(start)

	if !res.Reduced {
		span.SetStatus(codes.Error, res.ReduceErr)
	}
	o.logger.Info("batch review finished",
		"run_id", runID,
		"files", len(reports),
		"failed", res.Failures(),
		"reduced", res.Reduced,
		"tokens", res.TokensUsed,
		"duration", res.Duration.Round(time.Millisecond),
	)
	return res
}

// reviewFile isolates one file: a panic becomes a failure stub.
func (o *Orchestrator) reviewFile(ctx context.Context, st *State) (report FileReport) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("file review panicked", "file", st.File, "panic", r)
			report = FileReport{
				Path:     st.File,
				Report:   fmt.Sprintf("Review failed: %v", r),
				Failed:   true,
				Attempts: st.Attempts,
				Chunks:   len(st.Targets),
				Duration: time.Since(start),
			}
		}
	}()

	report = o.reviewer.Review(ctx, st)
	if report.Path == "" {
		report.Path = st.File
	}
	o.logger.Info("file reviewed",
		"file", report.Path,
		"attempts", report.Attempts,
		"retrievals", report.Retrievals,
		"failed", report.Failed,
	)
	return report
}

// notify passes a finished report to OnFileDone. A panicking callback is
// logged and does not affect the batch.
func (o *Orchestrator) notify(report FileReport) {
	if o.opts.OnFileDone == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("file callback panicked", "file", report.Path, "panic", r)
		}
	}()
	o.opts.OnFileDone(report)
}

func (o *Orchestrator) reduce(ctx context.Context, reports []FileReport, tokens *int) (string, bool, string) {
	ctx, span := o.tracer.Start(ctx, "review.reduce")
	defer span.End()

	sections := make([]string, len(reports))
	for i, r := range reports {
		sections[i] = r.Section()
	}
	combined := strings.Join(sections, "\n\n")

	resp, err := o.reducer.Generate(ctx, providers.Request{
		SystemPrompt: reduceSystemPrompt,
		UserPrompt:   BuildReducePrompt(sections, o.opts.Rules),
		MaxTokens:    o.opts.MaxTokens,
	})
	*tokens += resp.TokensUsed
	if err == nil && strings.TrimSpace(resp.Content) == "" {
		err = fmt.Errorf("empty aggregate report")
	}
	if err != nil {
		span.RecordError(err)
		o.logger.Warn("aggregate report failed, returning raw reports", "error", err)
		return fmt.Sprintf("Aggregate report generation failed: %v\n\nRaw per-file reports:\n%s", err, combined), false, err.Error()
	}
	return resp.Content, true, ""
}
