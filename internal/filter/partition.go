package filter

import (
	"regexp"

	"github.com/dshills/funnel/internal/model"
)

// Class is the L0 verdict for one path.
type Class int

const (
	ClassCore Class = iota
	ClassContext
	ClassTest
	ClassDiscard
)

func (c Class) String() string {
	switch c {
	case ClassCore:
		return "core"
	case ClassContext:
		return "context"
	case ClassTest:
		return "test"
	case ClassDiscard:
		return "discard"
	default:
		return "unknown"
	}
}

// Category maps a kept class to its chunk category.
func (c Class) Category() model.Category {
	switch c {
	case ClassContext:
		return model.CategoryContext
	case ClassTest:
		return model.CategoryTest
	default:
		return model.CategoryCore
	}
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

// Build output, vendored dependencies, binary assets, lockfiles and editor
// or VCS metadata.
var discardPatterns = compileAll(
	`(^|/)node_modules/`,
	`(^|/)\.git/`,
	`(^|/)\.idea/`,
	`(^|/)\.vscode/`,
	`(^|/)__pycache__/`,
	`(^|/)dist/`,
	`(^|/)build/`,
	`(^|/)\.?venv/`,
	`(^|/)vendor/`,
	`\.min\.js$`,
	`\.(svg|png|jpe?g|gif|ico|webp|pdf|zip|gz)$`,
	`package-lock\.json$`,
	`yarn\.lock$`,
	`poetry\.lock$`,
	`go\.sum$`,
)

// Environment, build configuration and documentation.
var contextPatterns = compileAll(
	`dockerfile`,
	`docker-compose`,
	`requirements\.txt$`,
	`pyproject\.toml$`,
	`package\.json$`,
	`go\.mod$`,
	`readme`,
	`license`,
	`\.env\.example$`,
	`makefile`,
)

var testPatterns = compileAll(
	`(^|/)tests?/`,
	`_test\.(py|go)$`,
	`(^|/)test_[^/]*\.py$`,
	`\.(spec|test)\.[jt]sx?$`,
)

// Classify returns the L0 class for a repository-relative path.
func Classify(path string) Class {
	switch {
	case matchAny(discardPatterns, path):
		return ClassDiscard
	case matchAny(contextPatterns, path):
		return ClassContext
	case matchAny(testPatterns, path):
		return ClassTest
	default:
		return ClassCore
	}
}

func matchAny(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// Partition is the L0 split of a repository's files.
type Partition struct {
	Core      []model.SourceFile
	Context   []model.SourceFile
	Tests     []model.SourceFile
	Discarded []string
}

// ContextFiles returns the context bucket, which includes test files.
func (p Partition) ContextFiles() []model.SourceFile {
	out := make([]model.SourceFile, 0, len(p.Context)+len(p.Tests))
	out = append(out, p.Context...)
	return append(out, p.Tests...)
}

// Total is the number of files partitioned.
func (p Partition) Total() int {
	return len(p.Core) + len(p.Context) + len(p.Tests) + len(p.Discarded)
}

// PartitionFiles assigns every file to exactly one bucket, preserving input
// order within each bucket.
func PartitionFiles(files []model.SourceFile) Partition {
	var p Partition
	for _, f := range files {
		switch Classify(f.Path) {
		case ClassDiscard:
			p.Discarded = append(p.Discarded, f.Path)
		case ClassContext:
			p.Context = append(p.Context, f)
		case ClassTest:
			p.Tests = append(p.Tests, f)
		default:
			p.Core = append(p.Core, f)
		}
	}
	return p
}
