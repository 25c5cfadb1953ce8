package retrieval

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/dshills/funnel/internal/model"
)

// MemoryPath opens a private in-memory index.
const MemoryPath = ":memory:"

const schema = `CREATE VIRTUAL TABLE IF NOT EXISTS chunks USING fts5(
	content,
	source UNINDEXED,
	kind UNINDEXED,
	repo UNINDEXED,
	start_line UNINDEXED,
	end_line UNINDEXED,
	tokenize = "unicode61 tokenchars '_'"
)`

var queryTermRe = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Index is a full-text index of chunks, partitioned by repository.
type Index struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens or creates the index at path. Use MemoryPath for a throwaway
// index.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating index directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing index schema: %w", err)
	}
	return &Index{db: db, logger: logger}, nil
}

// Close releases the database.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// Add indexes chunks under repo in one transaction.
func (ix *Index) Add(ctx context.Context, repo string, chunks []model.Chunk) error {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning index transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (content, source, kind, repo, start_line, end_line) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.Content, c.Source, string(c.Kind), repo, c.Lines.Start, c.Lines.End); err != nil {
			return fmt.Errorf("indexing %s: %w", c.Source, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing index: %w", err)
	}
	ix.logger.Debug("indexed chunks", "repo", repo, "count", len(chunks))
	return nil
}

// Reset removes every chunk stored under repo.
func (ix *Index) Reset(ctx context.Context, repo string) error {
	if _, err := ix.db.ExecContext(ctx, `DELETE FROM chunks WHERE repo = ?`, repo); err != nil {
		return fmt.Errorf("resetting index for %s: %w", repo, err)
	}
	return nil
}

// Count returns the number of chunks stored under repo.
func (ix *Index) Count(ctx context.Context, repo string) (int, error) {
	var n int
	if err := ix.db.QueryRowContext(ctx, `SELECT count(*) FROM chunks WHERE repo = ?`, repo).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// Repo returns a Backend that searches only chunks stored under repo.
func (ix *Index) Repo(repo string) Backend {
	return &repoBackend{ix: ix, repo: repo}
}

type repoBackend struct {
	ix   *Index
	repo string
}

func (b *repoBackend) SimilaritySearch(ctx context.Context, query string, k int) ([]Result, error) {
	match := matchExpr(query)
	if match == "" || k <= 0 {
		return nil, nil
	}

	rows, err := b.ix.db.QueryContext(ctx,
		`SELECT content, source, kind, start_line, end_line, rank
		 FROM chunks WHERE chunks MATCH ? AND repo = ?
		 ORDER BY rank LIMIT ?`, match, b.repo, k)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var (
			r    Result
			kind string
			rank float64
		)
		if err := rows.Scan(&r.Content, &r.Metadata.Source, &kind, &r.Metadata.Lines.Start, &r.Metadata.Lines.End, &rank); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		r.Metadata.Kind = model.UnitKind(kind)
		// bm25 ranks are negative; smaller is better.
		r.Score = -rank
		out = append(out, r)
	}
	return out, rows.Err()
}

// matchExpr turns free text into an FTS5 query that ORs every term, each
// quoted so punctuation and keywords like NEAR are taken literally.
func matchExpr(query string) string {
	terms := queryTermRe.FindAllString(query, -1)
	if len(terms) == 0 {
		return ""
	}
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + t + `"`
	}
	return strings.Join(quoted, " OR ")
}
