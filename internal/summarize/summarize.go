// Package summarize writes a one-sentence responsibility summary for each
// file from its skeleton.
package summarize

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/dshills/funnel/internal/model"
	"github.com/dshills/funnel/internal/providers"
	"github.com/dshills/funnel/internal/syntax"
)

// Unavailable is the summary recorded when a file could not be summarized.
const Unavailable = "summary unavailable"

// DefaultConcurrency bounds concurrent summary requests.
const DefaultConcurrency = 10

const summaryTokens = 256

const promptTemplate = `You are a codebase navigator. From the skeleton of the file below (signatures and comments only), summarize the file's main responsibility in one sentence.

[File path]
%PATH%

[Skeleton]
%SKELETON%

[Requirements]
1. Output format: ` + "`[file name]: responsibility`" + `
2. Keep it short, e.g. "handles user login and JWT issuing" or "defines the database models".
3. Leave out implementation details.
4. State only what the code shows; do not guess.`

// Options configures a Summarizer.
type Options struct {
	Concurrency int
	Logger      *slog.Logger
}

// Summarizer produces per-file summaries. It is safe for concurrent use.
type Summarizer struct {
	client      providers.Client
	concurrency int
	logger      *slog.Logger
}

// New creates a Summarizer backed by client.
func New(client providers.Client, opts Options) *Summarizer {
	if opts.Concurrency < 1 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Summarizer{client: client, concurrency: opts.Concurrency, logger: opts.Logger}
}

// Summarize returns a summary for every file, keyed by path. Files that fail
// get Unavailable; the batch itself never fails.
func (s *Summarizer) Summarize(ctx context.Context, files []model.SourceFile) map[string]string {
	summaries := make(map[string]string, len(files))
	if len(files) == 0 {
		return summaries
	}
	start := time.Now()

	reqs := make([]providers.Request, len(files))
	for i, f := range files {
		reqs[i] = providers.Request{
			UserPrompt: BuildPrompt(f.Path, syntax.Skeleton(ctx, f.Path, f.Content)),
			MaxTokens:  summaryTokens,
		}
	}

	failed := 0
	for i, res := range providers.Batch(ctx, s.client, reqs, s.concurrency) {
		path := files[i].Path
		summary := firstLine(res.Response.Content)
		if res.Err != nil || summary == "" {
			failed++
			s.logger.Warn("summary failed", "file", path, "error", res.Err)
			summary = Unavailable
		}
		summaries[path] = summary
	}

	s.logger.Info("summaries generated",
		"files", len(files),
		"failed", failed,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return summaries
}

// BuildPrompt renders the summary prompt for one file.
func BuildPrompt(path, skeleton string) string {
	return strings.NewReplacer("%PATH%", path, "%SKELETON%", skeleton).Replace(promptTemplate)
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.Trim(strings.TrimSpace(line), "`")
		if line != "" {
			return line
		}
	}
	return ""
}
