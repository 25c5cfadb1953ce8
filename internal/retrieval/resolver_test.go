package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/funnel/internal/model"
)

type fakeBackend struct {
	results []Result
	err     error
	queries []string
}

func (f *fakeBackend) SimilaritySearch(_ context.Context, query string, k int) ([]Result, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) > k {
		return f.results[:k], nil
	}
	return f.results, nil
}

func hit(source string, kind model.UnitKind, content string) Result {
	return Result{Content: content, Metadata: Metadata{Source: source, Kind: kind}}
}

func TestResolver_PrefersDefinitionKind(t *testing.T) {
	b := &fakeBackend{results: []Result{
		hit("use.py", model.KindText, "x = parse_token(y)"),
		hit("lex.py", model.KindFunction, "def parse_token(s):\n    return s"),
	}}
	entry, found := NewResolver(b, 5, nil).Resolve(context.Background(), "parse_token")

	assert.True(t, found)
	assert.Equal(t, "--- parse_token definition (from lex.py) ---\ndef parse_token(s):\n    return s", entry)
}

func TestResolver_DefinitionKindMustMentionSymbol(t *testing.T) {
	b := &fakeBackend{results: []Result{
		hit("a.py", model.KindFunction, "def unrelated(): pass"),
		hit("b.go", model.KindText, "func (s *Store) Flush() error {\n\treturn nil\n}"),
	}}
	entry, found := NewResolver(b, 5, nil).Resolve(context.Background(), "Store.Flush")

	assert.True(t, found)
	assert.True(t, strings.Contains(entry, "(from b.go)"), entry)
}

func TestResolver_KeywordMatch(t *testing.T) {
	b := &fakeBackend{results: []Result{
		hit("call.js", model.KindText, "const v = buildTree(x)"),
		hit("tree.js", model.KindText, "function buildTree(nodes) { return nodes }"),
	}}
	entry, _ := NewResolver(b, 5, nil).Resolve(context.Background(), "buildTree")
	assert.Contains(t, entry, "(from tree.js)")
}

func TestResolver_FallsBackToTopRanked(t *testing.T) {
	b := &fakeBackend{results: []Result{
		hit("first.rb", model.KindText, "helper.call(1)"),
		hit("second.rb", model.KindText, "helper.call(2)"),
	}}
	entry, found := NewResolver(b, 5, nil).Resolve(context.Background(), "call")
	assert.True(t, found)
	assert.Contains(t, entry, "(from first.rb)")
}

func TestResolver_NotFound(t *testing.T) {
	b := &fakeBackend{}
	entry, found := NewResolver(b, 5, nil).Resolve(context.Background(), "Ghost")
	assert.False(t, found)
	assert.Equal(t, "--- Ghost ---\n(definition not found in core codebase)", entry)
}

func TestResolver_BackendErrorIsNotFound(t *testing.T) {
	b := &fakeBackend{err: errors.New("disk on fire")}
	entry, found := NewResolver(b, 5, nil).Resolve(context.Background(), "X")
	assert.False(t, found)
	assert.Equal(t, MissingEntry("X"), entry)
}

func TestResolver_DefaultK(t *testing.T) {
	r := NewResolver(&fakeBackend{}, 0, nil)
	assert.Equal(t, DefaultK, r.k)
}

func TestResolver_AgainstIndex(t *testing.T) {
	ctx := context.Background()
	ix := openMemory(t)
	if err := ix.Add(ctx, "r", sampleChunks); err != nil {
		t.Fatal(err)
	}
	entry, found := NewResolver(ix.Repo("r"), 5, nil).Resolve(ctx, "load_config")
	assert.True(t, found)
	assert.Contains(t, entry, "(from app/config.py)")
}
