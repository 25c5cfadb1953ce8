package source

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/funnel/internal/model"
)

const (
	defaultAPIURL      = "https://api.github.com"
	defaultDownloads   = 8
	githubAcceptHeader = "application/vnd.github+json"
)

// GitHub loads a repository through the GitHub REST API.
type GitHub struct {
	owner   string
	repo    string
	branch  string
	token   string
	apiURL  string
	httpCli *http.Client
	logger  *slog.Logger

	// Downloads bounds concurrent blob fetches.
	Downloads int
}

// NewGitHub creates a loader for "owner/repo". The token is read from
// GITHUB_ACCESS_TOKEN, then GITHUB_TOKEN; GITHUB_API_URL overrides the API
// endpoint. An empty branch selects DefaultBranch.
func NewGitHub(fullName, branch string, logger *slog.Logger) (*GitHub, error) {
	owner, repo, ok := strings.Cut(strings.TrimSpace(fullName), "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRepo, fullName)
	}

	token := os.Getenv("GITHUB_ACCESS_TOKEN")
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}
	if token == "" {
		return nil, ErrMissingToken
	}

	apiURL := os.Getenv("GITHUB_API_URL")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	if branch == "" {
		branch = DefaultBranch
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &GitHub{
		owner:     owner,
		repo:      repo,
		branch:    branch,
		token:     token,
		apiURL:    strings.TrimRight(apiURL, "/"),
		httpCli:   &http.Client{Timeout: 60 * time.Second},
		logger:    logger,
		Downloads: defaultDownloads,
	}, nil
}

// FullName returns "owner/repo".
func (g *GitHub) FullName() string { return g.owner + "/" + g.repo }

// Load lists the branch tree and downloads every supported blob. A blob that
// fails to download is logged and skipped; a tree that cannot be listed
// fails the load.
func (g *GitHub) Load(ctx context.Context) (Snapshot, error) {
	entries, err := g.listTree(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	var (
		mu    sync.Mutex
		files []model.SourceFile
	)
	eg, egCtx := errgroup.WithContext(ctx)
	limit := g.Downloads
	if limit < 1 {
		limit = defaultDownloads
	}
	eg.SetLimit(limit)
	for _, e := range entries {
		eg.Go(func() error {
			content, err := g.blob(egCtx, e.SHA)
			if err != nil {
				if egCtx.Err() != nil {
					return egCtx.Err()
				}
				g.logger.Warn("skipping file", "path", e.Path, "error", err)
				return nil
			}
			if isBinary([]byte(content)) {
				return nil
			}
			mu.Lock()
			files = append(files, model.SourceFile{Path: e.Path, Content: content})
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return Snapshot{}, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	g.logger.Info("loaded GitHub repository",
		"repo", g.FullName(), "branch", g.branch, "files", len(files))
	return Snapshot{Repo: g.FullName(), Branch: g.branch, Files: files}, nil
}

type treeEntry struct {
	Path string `json:"path"`
	Type string `json:"type"`
	SHA  string `json:"sha"`
	Size int    `json:"size"`
}

type treeResponse struct {
	Tree      []treeEntry `json:"tree"`
	Truncated bool        `json:"truncated"`
}

func (g *GitHub) listTree(ctx context.Context) ([]treeEntry, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/git/trees/%s?recursive=1",
		g.apiURL, g.owner, g.repo, url.PathEscape(g.branch))

	var tree treeResponse
	if err := g.getJSON(ctx, endpoint, &tree); err != nil {
		return nil, fmt.Errorf("listing %s@%s: %w", g.FullName(), g.branch, err)
	}
	if tree.Truncated {
		g.logger.Warn("repository tree truncated by the API", "repo", g.FullName())
	}

	var out []treeEntry
	for _, e := range tree.Tree {
		if e.Type != "blob" || !Supported(e.Path) || e.Size > maxFileBytes {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

type blobResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

func (g *GitHub) blob(ctx context.Context, sha string) (string, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/git/blobs/%s", g.apiURL, g.owner, g.repo, sha)

	var b blobResponse
	if err := g.getJSON(ctx, endpoint, &b); err != nil {
		return "", err
	}
	if b.Encoding != "base64" {
		return b.Content, nil
	}
	raw := strings.NewReplacer("\n", "", "\r", "").Replace(b.Content)
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return "", fmt.Errorf("decoding blob %s: %w", sha, err)
	}
	return string(data), nil
}

func (g *GitHub) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.token)
	req.Header.Set("Accept", githubAcceptHeader)

	resp, err := g.httpCli.Do(req)
	if err != nil {
		return fmt.Errorf("calling GitHub API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("not found: %s", endpoint)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("authentication failed: %s", string(body))
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("GitHub API error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
