package source

import (
	"context"
	"errors"
	"os"
	"path"
	"strings"

	"github.com/dshills/funnel/internal/model"
)

var (
	// ErrMissingToken is returned when a GitHub target has no access token.
	ErrMissingToken = errors.New("no GitHub access token: set GITHUB_ACCESS_TOKEN or GITHUB_TOKEN")
	// ErrInvalidRepo is returned for a remote target that is not owner/repo.
	ErrInvalidRepo = errors.New("invalid repository name: expected owner/repo")
)

// DefaultBranch is used for remote targets when no branch is given.
const DefaultBranch = "main"

// maxFileBytes skips generated blobs and data dumps.
const maxFileBytes = 1 << 20

var supportedExts = map[string]bool{
	".py": true, ".js": true, ".java": true, ".go": true, ".rb": true,
	".cpp": true, ".c": true, ".cs": true, ".ts": true, ".rst": true,
	".rs": true, ".md": true, ".txt": true, ".json": true,
	".toml": true, ".yaml": true, ".yml": true, ".h": true, ".hpp": true,
}

var supportedNames = map[string]bool{
	"Dockerfile": true,
	"Makefile":   true,
}

// Supported reports whether a slash-separated path is a file type funnel
// ingests.
func Supported(p string) bool {
	base := path.Base(p)
	if supportedNames[base] {
		return true
	}
	return supportedExts[strings.ToLower(path.Ext(base))]
}

// Snapshot is a loaded repository.
type Snapshot struct {
	Repo   string
	Branch string
	Files  []model.SourceFile
}

// Paths returns the file paths in load order.
func (s Snapshot) Paths() []string {
	out := make([]string, len(s.Files))
	for i, f := range s.Files {
		out[i] = f.Path
	}
	return out
}

// Tree renders the snapshot's project structure.
func (s Snapshot) Tree() string {
	return RenderTree(s.Repo, s.Branch, s.Paths())
}

// Loader produces a Snapshot.
type Loader interface {
	Load(ctx context.Context) (Snapshot, error)
}

// IsRemote reports whether target names a GitHub repository rather than a
// local directory. Existing directories always win.
func IsRemote(target string) bool {
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		return false
	}
	return strings.Count(target, "/") == 1 && !strings.HasPrefix(target, ".") && !strings.HasPrefix(target, "/")
}
