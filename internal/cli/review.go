package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dshills/funnel/internal/cache"
	"github.com/dshills/funnel/internal/config"
	"github.com/dshills/funnel/internal/output"
	"github.com/dshills/funnel/internal/pipeline"
	"github.com/dshills/funnel/internal/providers"
	"github.com/dshills/funnel/internal/retrieval"
	"github.com/dshills/funnel/internal/review"
	"github.com/dshills/funnel/internal/source"
)

// Shared review flags
var (
	flagProvider     string
	flagModel        string
	flagSummaryModel string
	flagBranch       string
	flagFormat       string
	flagOut          string
	flagRules        string
	flagThreshold    int
	flagConcurrency  int
	flagMaxChunks    int
	flagIndex        string
	flagNoRedact     bool
	flagNoCache      bool
	flagRedactPaths  string
)

func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagBranch, "branch", "", "Branch to fetch for owner/repo targets (default: main)")
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagFormat, "format", "", "Output format (text, json, markdown)")
	cmd.Flags().StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
	cmd.Flags().IntVar(&flagThreshold, "threshold", 0, "Cyclomatic complexity at or above which code is critical")
}

func addReviewFlags(cmd *cobra.Command) {
	addSourceFlags(cmd)
	addOutputFlags(cmd)
	cmd.Flags().StringVar(&flagProvider, "provider", "", "LLM provider (anthropic, openai, deepseek, gemini, ollama)")
	cmd.Flags().StringVar(&flagModel, "model", "", "Review model name")
	cmd.Flags().StringVar(&flagSummaryModel, "summary-model", "", "Model used for file summaries (default: review model)")
	cmd.Flags().StringVar(&flagRules, "rules", "", "Rules file path (YAML or JSON)")
	cmd.Flags().IntVar(&flagConcurrency, "concurrency", 0, "Maximum concurrent file reviews")
	cmd.Flags().IntVar(&flagMaxChunks, "max-chunks", 0, "Maximum critical chunks reviewed per file")
	cmd.Flags().StringVar(&flagIndex, "index", "", "Retrieval index path (\":memory:\" for no persistence)")
	cmd.Flags().BoolVar(&flagNoRedact, "no-redact", false, "Disable secret redaction (use with caution)")
	cmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "Bypass the response cache")
	cmd.Flags().StringVar(&flagRedactPaths, "redact-paths", "", "Comma-separated globs of files never sent to a model")
}

func buildOverrides() map[string]string {
	m := make(map[string]string)
	set := func(key, v string) {
		if v != "" {
			m[key] = v
		}
	}
	setInt := func(key string, n int) {
		if n > 0 {
			m[key] = strconv.Itoa(n)
		}
	}
	set("provider", flagProvider)
	set("model", flagModel)
	set("summaryModel", flagSummaryModel)
	set("branch", flagBranch)
	set("format", flagFormat)
	set("rulesFile", flagRules)
	set("index", flagIndex)
	set("privacy.redactPaths", flagRedactPaths)
	setInt("threshold", flagThreshold)
	setInt("concurrency", flagConcurrency)
	setInt("maxChunksPerFile", flagMaxChunks)
	return m
}

// loadSnapshot reads a local directory, or an owner/repo target from GitHub.
func loadSnapshot(ctx context.Context, target, branch string, logger *slog.Logger) (source.Snapshot, error) {
	var loader source.Loader
	if source.IsRemote(target) {
		gh, err := source.NewGitHub(target, branch, logger)
		if err != nil {
			return source.Snapshot{}, err
		}
		loader = gh
	} else {
		loader = source.NewLocal(target, logger)
	}
	return loader.Load(ctx)
}

// buildClient creates a provider client wrapped, innermost first, in rate
// limiting, a concurrency cap, the response cache and secret redaction.
func buildClient(cfg config.Config, provider, model string, store *cache.Cache, logger *slog.Logger) (providers.Client, error) {
	c, err := providers.New(provider, model)
	if err != nil {
		return nil, err
	}
	c = providers.RateLimited(c, cfg.RPS, 1)
	c = providers.Concurrency(c, cfg.Concurrency)
	if store.Enabled() {
		c = providers.Cached(c, store, model, logger)
	}
	if cfg.Privacy.RedactSecrets {
		c = providers.Redacting(c)
	}
	return c, nil
}

// indexPath resolves where the retrieval index lives.
func indexPath(cfg config.Config) (string, error) {
	if cfg.Index != "" {
		return cfg.Index, nil
	}
	dir := cfg.Cache.Dir
	if dir == "" {
		d, err := cache.DefaultDir()
		if err != nil {
			return "", err
		}
		dir = d
	}
	return filepath.Join(dir, "index.db"), nil
}

// exitFor maps an error to an exit code.
func exitFor(err error) int {
	switch {
	case errors.Is(err, source.ErrMissingToken),
		errors.Is(err, source.ErrInvalidRepo),
		errors.Is(err, config.ErrInvalid),
		errors.Is(err, config.ErrUnknownKey):
		return ExitUsageError
	case providers.IsAuthError(err):
		return ExitAuthError
	default:
		return ExitRuntimeError
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	exitCode = exitFor(err)
}

func runReview(target string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	logger := slog.Default()
	prog := newProgress(os.Stderr, flagQuiet)

	cfg, err := config.Load(buildOverrides())
	if err != nil {
		fail(err)
		return
	}
	if flagNoRedact {
		cfg.Privacy.RedactSecrets = false
		prog.warn("secret redaction is disabled")
	}
	rules, err := review.LoadRules(cfg.RulesFile)
	if err != nil {
		fail(fmt.Errorf("%w: %v", config.ErrInvalid, err))
		return
	}

	store, err := cache.New(cfg.Cache.Enabled && !flagNoCache, cfg.Cache.Dir, cfg.Cache.TTL())
	if err != nil {
		fail(fmt.Errorf("opening cache: %w", err))
		return
	}
	reviewer, err := buildClient(cfg, cfg.Provider, cfg.Model, store, logger)
	if err != nil {
		fail(fmt.Errorf("%w: %v", config.ErrInvalid, err))
		return
	}
	summarizer := reviewer
	if sp, sm := cfg.SummaryClient(); sp != cfg.Provider || sm != cfg.Model {
		if summarizer, err = buildClient(cfg, sp, sm, store, logger); err != nil {
			fail(fmt.Errorf("%w: %v", config.ErrInvalid, err))
			return
		}
	}

	snap, err := loadSnapshot(ctx, target, cfg.Branch, logger)
	if err != nil {
		fail(err)
		return
	}

	path, err := indexPath(cfg)
	if err != nil {
		fail(err)
		return
	}
	idx, err := retrieval.Open(ctx, path, logger)
	if err != nil {
		fail(err)
		return
	}
	defer idx.Close()

	p := pipeline.New(pipeline.Deps{
		Reviewer:   reviewer,
		Summarizer: summarizer,
		Index:      idx,
	}, pipeline.Options{
		Threshold:        cfg.Threshold,
		MaxChunksPerFile: cfg.MaxChunks,
		Concurrency:      cfg.Concurrency,
		MaxAttempts:      cfg.MaxAttempts,
		MaxTokens:        cfg.MaxTokens,
		RetrievalK:       cfg.RetrievalK,
		Rules:            rules,
		RedactPaths:      cfg.Privacy.RedactPaths,
		Logger:           logger,
		OnStage:          prog.stage,
		OnFileDone:       prog.fileDone,
	})

	report, err := p.Run(ctx, snap)
	if err != nil {
		fail(err)
		return
	}

	if err := output.WriteReport(&report, cfg.Format, flagOut); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		exitCode = ExitRuntimeError
		return
	}

	if report.Review.Degraded() {
		prog.warn("aggregate report could not be generated; per-file reports were returned instead")
		exitCode = ExitDegraded
	}
}

var reviewCmd = &cobra.Command{
	Use:   "review <path | owner/repo>",
	Short: "Review a repository",
	Long: `Review a local directory or a GitHub repository.

The repository is narrowed in stages: files are partitioned by path, code
units are kept only when they look security sensitive, are complex, or are
long function-free blocks, and each remaining file is reviewed by an
analyze/retrieve loop before all file reports are combined.

GitHub targets need GITHUB_ACCESS_TOKEN or GITHUB_TOKEN.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runReview(args[0])
	},
}

func init() {
	addReviewFlags(reviewCmd)
}
