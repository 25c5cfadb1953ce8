package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// DefaultK is how many candidates the resolver inspects per symbol.
const DefaultK = 5

// Resolver finds the best definition for a symbol.
type Resolver struct {
	backend Backend
	k       int
	logger  *slog.Logger
}

// NewResolver creates a Resolver. k below 1 selects DefaultK.
func NewResolver(backend Backend, k int, logger *slog.Logger) *Resolver {
	if k < 1 {
		k = DefaultK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{backend: backend, k: k, logger: logger}
}

// Resolve returns one context entry for symbol and whether a candidate was
// found. Candidates are preferred in this order: a definition chunk that
// mentions the symbol, a chunk where a definition keyword introduces the
// symbol, the top-ranked hit. With no hits the entry is a not-found
// placeholder. Backend errors are logged and treated as no hits.
func (r *Resolver) Resolve(ctx context.Context, symbol string) (string, bool) {
	results, err := r.backend.SimilaritySearch(ctx, symbol, r.k)
	if err != nil {
		r.logger.Warn("retrieval failed", "symbol", symbol, "error", err)
		results = nil
	}

	best, how := pick(symbol, results)
	if best == nil {
		r.logger.Debug("symbol not found", "symbol", symbol, "candidates", len(results))
		return MissingEntry(symbol), false
	}
	r.logger.Debug("symbol resolved", "symbol", symbol, "source", best.Metadata.Source, "match", how)
	return FoundEntry(symbol, best.Metadata.Source, best.Content), true
}

func pick(symbol string, results []Result) (*Result, string) {
	if len(results) == 0 {
		return nil, ""
	}
	for i := range results {
		if strings.Contains(string(results[i].Metadata.Kind), "definition") && strings.Contains(results[i].Content, symbol) {
			return &results[i], "definition"
		}
	}
	re := definitionPattern(symbol)
	for i := range results {
		if re.MatchString(results[i].Content) {
			return &results[i], "keyword"
		}
	}
	return &results[0], "top"
}

// definitionPattern matches a definition keyword introducing the symbol's
// last path segment, including Go methods with a receiver.
func definitionPattern(symbol string) *regexp.Regexp {
	name := symbol
	if i := strings.LastIndexAny(name, ".:"); i >= 0 {
		name = name[i+1:]
	}
	return regexp.MustCompile(`\b(?:def|class|func|function|fn|fun|interface|struct|type|trait|impl|enum|module|object|record)\s+(?:\([^)]*\)\s*)?` +
		regexp.QuoteMeta(name) + `\b`)
}

// FoundEntry formats a resolved definition for the review context.
func FoundEntry(symbol, source, content string) string {
	return fmt.Sprintf("--- %s definition (from %s) ---\n%s", symbol, source, content)
}

// MissingEntry formats the placeholder for an unresolved symbol.
func MissingEntry(symbol string) string {
	return fmt.Sprintf("--- %s ---\n(definition not found in core codebase)", symbol)
}

// RepeatedEntry formats the placeholder for a symbol that was already
// searched without success.
func RepeatedEntry(symbol string) string {
	return fmt.Sprintf("--- %s ---\n(definition still not found; already searched)", symbol)
}
