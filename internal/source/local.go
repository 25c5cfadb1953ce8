package source

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/dshills/funnel/internal/model"
)

var skipDirs = map[string]struct{}{
	".git":          {},
	".hg":           {},
	".svn":          {},
	"node_modules":  {},
	"vendor":        {},
	"__pycache__":   {},
	"venv":          {},
	".venv":         {},
	".tox":          {},
	".mypy_cache":   {},
	".pytest_cache": {},
	".idea":         {},
	".vscode":       {},
}

// Local loads files from a directory on disk.
type Local struct {
	Root   string
	Logger *slog.Logger
}

// NewLocal creates a loader rooted at dir.
func NewLocal(dir string, logger *slog.Logger) *Local {
	if logger == nil {
		logger = slog.Default()
	}
	return &Local{Root: dir, Logger: logger}
}

// Load walks the directory, skipping VCS and dependency folders, anything
// matched by the root .gitignore, binaries, oversized files and unsupported
// file types. Files are returned sorted by path.
func (l *Local) Load(ctx context.Context) (Snapshot, error) {
	root, err := filepath.Abs(l.Root)
	if err != nil {
		return Snapshot{}, fmt.Errorf("resolving %s: %w", l.Root, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return Snapshot{}, fmt.Errorf("reading %s: %w", l.Root, err)
	}
	if !info.IsDir() {
		return Snapshot{}, fmt.Errorf("%s is not a directory", l.Root)
	}

	gi, _ := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))

	var files []model.SourceFile
	var skipped int
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if p == root {
				return nil
			}
			if _, skip := skipDirs[d.Name()]; skip {
				return filepath.SkipDir
			}
			if gi != nil && gi.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&os.ModeSymlink != 0 || !Supported(rel) {
			return nil
		}
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}

		data, readErr := readSource(p)
		if readErr != nil {
			skipped++
			l.Logger.Debug("skipping file", "path", rel, "reason", readErr)
			return nil
		}
		files = append(files, model.SourceFile{Path: rel, Content: string(data)})
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	snap := Snapshot{
		Repo:   filepath.Base(root),
		Branch: gitBranch(ctx, root),
		Files:  files,
	}
	l.Logger.Info("loaded local repository",
		"root", root, "branch", snap.Branch, "files", len(files), "skipped", skipped)
	return snap, nil
}

func readSource(p string) ([]byte, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if info.Size() > maxFileBytes {
		return nil, fmt.Errorf("larger than %d bytes", maxFileBytes)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	if isBinary(data) {
		return nil, fmt.Errorf("binary content")
	}
	return data, nil
}

// isBinary looks for a NUL byte in the first 8000 bytes, the same sniff git
// uses.
func isBinary(data []byte) bool {
	if len(data) > 8000 {
		data = data[:8000]
	}
	return bytes.IndexByte(data, 0) >= 0
}

// gitBranch returns the checked-out branch of dir, or "local" outside a
// repository or on a detached HEAD.
func gitBranch(ctx context.Context, dir string) string {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--abbrev-ref", "HEAD")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "local"
	}
	branch := strings.TrimSpace(string(out))
	if branch == "" || branch == "HEAD" {
		return "local"
	}
	return branch
}
