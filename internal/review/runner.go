package review

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dshills/funnel/internal/providers"
	"github.com/dshills/funnel/internal/retrieval"
)

const tracerName = "github.com/dshills/funnel/internal/review"

// SymbolResolver turns a symbol into one context entry.
// *retrieval.Resolver satisfies it.
type SymbolResolver interface {
	Resolve(ctx context.Context, symbol string) (entry string, found bool)
}

type noResolver struct{}

func (noResolver) Resolve(_ context.Context, symbol string) (string, bool) {
	return retrieval.MissingEntry(symbol), false
}

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	MaxAttempts int
	MaxTokens   int
	Rules       *Rules
	Logger      *slog.Logger
}

// Runner drives the per-file state machine. It holds no per-file state and is
// safe for concurrent use.
type Runner struct {
	client      providers.Client
	resolver    SymbolResolver
	maxAttempts int
	maxTokens   int
	rules       *Rules
	logger      *slog.Logger
	tracer      trace.Tracer
}

// NewRunner creates a Runner. A nil resolver reports every symbol as not
// found.
func NewRunner(client providers.Client, resolver SymbolResolver, opts RunnerOptions) *Runner {
	if resolver == nil {
		resolver = noResolver{}
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Runner{
		client:      client,
		resolver:    resolver,
		maxAttempts: opts.MaxAttempts,
		maxTokens:   opts.MaxTokens,
		rules:       opts.Rules,
		logger:      opts.Logger,
		tracer:      otel.Tracer(tracerName),
	}
}

// Review runs st to completion. It always returns a report; faults become
// failure reports.
func (r *Runner) Review(ctx context.Context, st *State) FileReport {
	ctx, span := r.tracer.Start(ctx, "review.file", trace.WithAttributes(
		attribute.String("file", st.File),
		attribute.Int("chunks", len(st.Targets)),
	))
	defer span.End()

	start := time.Now()
	var tokens int
	for st.Phase != PhaseDone {
		switch st.Phase {
		case PhaseAnalyzing:
			tokens += r.analyze(ctx, st)
			st.Phase = st.next(r.maxAttempts)
		case PhaseRetrieving:
			r.retrieve(ctx, st)
			st.Phase = PhaseAnalyzing
		}
	}

	if st.FinalReport == "" && st.Draft != "" {
		st.FinalReport = st.Draft
	}

	span.SetAttributes(
		attribute.Int("attempts", st.Attempts),
		attribute.Int("retrieved", len(st.Retrieved)),
	)
	if st.Failed {
		span.SetStatus(codes.Error, st.FinalReport)
	}

	return FileReport{
		Path:       st.File,
		Report:     st.FinalReport,
		Failed:     st.Failed,
		Attempts:   st.Attempts,
		Retrievals: len(st.Retrieved),
		Chunks:     len(st.Targets),
		TokensUsed: tokens,
		Duration:   time.Since(start),
	}
}

// analyze makes one model call and updates st. It returns tokens used.
func (r *Runner) analyze(ctx context.Context, st *State) int {
	st.Attempts++
	final := st.Attempts >= r.maxAttempts

	out, resp, err := providers.GenerateJSON[AnalysisOutput](ctx, r.client, providers.Request{
		SystemPrompt: analysisSystemPrompt,
		UserPrompt:   BuildAnalysisPrompt(st, final, r.rules),
		MaxTokens:    r.maxTokens,
	})
	if err != nil {
		r.logger.Warn("analysis failed", "file", st.File, "attempt", st.Attempts, "error", err)
		st.FinalReport = fmt.Sprintf("Review failed: %v", err)
		st.Failed = true
		st.UnknownSymbols = nil
		return resp.TokensUsed
	}

	report := strings.TrimSpace(out.Report)
	switch {
	case out.IsComplete:
		st.UnknownSymbols = nil
		st.FinalReport = report
		if st.FinalReport == "" {
			st.FinalReport = "No issues reported."
		}
	case final && report != "":
		// Out of attempts but the model wrote something; keep it.
		st.UnknownSymbols = nil
		st.FinalReport = report
	default:
		st.UnknownSymbols = cleanSymbols(out.UnknownSymbols)
		st.LoopCount++
		if report != "" {
			st.Draft = report
		}
	}

	r.logger.Debug("analysis step",
		"file", st.File,
		"attempt", st.Attempts,
		"complete", out.IsComplete,
		"unknown", st.UnknownSymbols,
	)
	return resp.TokensUsed
}

// retrieve appends exactly one entry per unknown symbol. Symbols that already
// failed are not searched again.
func (r *Runner) retrieve(ctx context.Context, st *State) {
	ctx, span := r.tracer.Start(ctx, "review.retrieve", trace.WithAttributes(
		attribute.String("file", st.File),
		attribute.StringSlice("symbols", st.UnknownSymbols),
	))
	defer span.End()

	for _, sym := range st.UnknownSymbols {
		var entry string
		switch {
		case st.missing[sym]:
			entry = retrieval.RepeatedEntry(sym)
		case st.found[sym]:
			entry = fmt.Sprintf("--- %s ---\n(definition already provided above)", sym)
		default:
			var ok bool
			entry, ok = r.resolver.Resolve(ctx, sym)
			if ok {
				st.found[sym] = true
			} else {
				st.missing[sym] = true
			}
		}
		st.Retrieved = append(st.Retrieved, entry)
	}
}

// cleanSymbols trims names and drops blanks and duplicates, keeping order.
func cleanSymbols(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		s = strings.Trim(strings.TrimSpace(s), "`()")
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
