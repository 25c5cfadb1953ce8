package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/dshills/funnel/internal/config"
	"github.com/dshills/funnel/internal/output"
	"github.com/dshills/funnel/internal/pipeline"
)

func runTriage(target string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	logger := slog.Default()

	cfg, err := config.Load(buildOverrides())
	if err != nil {
		fail(err)
		return
	}
	snap, err := loadSnapshot(ctx, target, cfg.Branch, logger)
	if err != nil {
		fail(err)
		return
	}

	p := pipeline.New(pipeline.Deps{}, pipeline.Options{
		Threshold:   cfg.Threshold,
		RedactPaths: cfg.Privacy.RedactPaths,
		Logger:      logger,
	})
	tri := p.Triage(ctx, snap)
	if err := output.WriteTriage(&tri, cfg.Format, flagOut); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		exitCode = ExitRuntimeError
	}
}

func runTree(target string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load(buildOverrides())
	if err != nil {
		fail(err)
		return
	}
	snap, err := loadSnapshot(ctx, target, cfg.Branch, slog.Default())
	if err != nil {
		fail(err)
		return
	}
	fmt.Fprint(os.Stdout, snap.Tree())
}

var triageCmd = &cobra.Command{
	Use:   "triage <path | owner/repo>",
	Short: "Run the path and complexity filters without calling a model",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runTriage(args[0])
	},
}

var treeCmd = &cobra.Command{
	Use:   "tree <path | owner/repo>",
	Short: "Print the repository file tree",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runTree(args[0])
	},
}

func init() {
	addSourceFlags(triageCmd)
	addOutputFlags(triageCmd)
	addSourceFlags(treeCmd)
}
