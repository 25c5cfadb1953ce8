package syntax

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/funnel/internal/model"
)

const pySource = `import os


class Store:
    """Keeps things."""

    def get(self, key):
        """Return the value for key."""
        if key in self.items:
            return self.items[key]
        return None


def helper(a, b):
    if a and b:
        return 1
    for x in range(3):
        if x:
            pass
    return 0
`

func TestSplit_Python(t *testing.T) {
	t.Parallel()
	chunks := Split(context.Background(), model.SourceFile{Path: "pkg/store.py", Content: pySource}, model.CategoryCore)
	require.Len(t, chunks, 3)

	assert.Equal(t, model.KindClass, chunks[0].Kind)
	assert.Equal(t, 4, chunks[0].Lines.Start)
	assert.Equal(t, model.KindFunction, chunks[1].Kind)
	assert.True(t, strings.HasPrefix(chunks[1].Content, "def get(self, key):"))
	assert.Equal(t, model.KindFunction, chunks[2].Kind)
	assert.True(t, strings.HasPrefix(chunks[2].Content, "def helper(a, b):"))

	for i := 1; i < len(chunks); i++ {
		assert.LessOrEqual(t, chunks[i-1].StartByte, chunks[i].StartByte)
	}
	for _, c := range chunks {
		assert.Equal(t, "pkg/store.py", c.Source)
		assert.Equal(t, model.CategoryCore, c.Category)
		assert.Equal(t, pySource[c.StartByte:c.EndByte], c.Content)
	}
}

func TestSplit_Fallbacks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	md := Split(ctx, model.SourceFile{Path: "README.md", Content: "# Title\n\nbody\n"}, model.CategoryContext)
	require.Len(t, md, 1)
	assert.Equal(t, model.KindText, md[0].Kind)
	assert.Equal(t, 1, md[0].Lines.Start)
	assert.Equal(t, 4, md[0].Lines.End)

	consts := Split(ctx, model.SourceFile{Path: "settings.py", Content: "A = 1\nB = 2\n"}, model.CategoryCore)
	require.Len(t, consts, 1)
	assert.Equal(t, model.KindText, consts[0].Kind)

	assert.Empty(t, Split(ctx, model.SourceFile{Path: "empty.go", Content: "  \n"}, model.CategoryCore))
}

func TestSkeleton_CollapsesBodies(t *testing.T) {
	t.Parallel()
	got := Skeleton(context.Background(), "store.py", pySource)

	assert.Contains(t, got, "class Store:")
	assert.Contains(t, got, "def get(self, key):")
	assert.Contains(t, got, `"""Return the value for key."""`)
	assert.Contains(t, got, "def helper(a, b):")
	assert.Contains(t, got, BodyMarker)
	assert.NotContains(t, got, "return self.items[key]")
	assert.NotContains(t, got, "for x in range(3)")
}

func TestSkeleton_Go(t *testing.T) {
	t.Parallel()
	src := "package p\n\n// Add sums.\nfunc Add(a, b int) int {\n\tsum := a + b\n\treturn sum\n}\n\nfunc Tiny() {}\n"
	got := Skeleton(context.Background(), "p.go", src)

	assert.Contains(t, got, "// Add sums.")
	assert.Contains(t, got, "func Add(a, b int) int { "+BodyMarker+" }")
	assert.Contains(t, got, "func Tiny() {}")
	assert.NotContains(t, got, "sum := a + b")
}

func TestSkeleton_UnsupportedTruncates(t *testing.T) {
	t.Parallel()
	long := strings.Repeat("x", PrefixLimit+50)
	got := Skeleton(context.Background(), "notes.txt", long)
	assert.True(t, strings.HasPrefix(got, strings.Repeat("x", PrefixLimit)))
	assert.True(t, strings.HasSuffix(got, "...(truncated)..."))

	short := "just a note"
	assert.Equal(t, short, Skeleton(context.Background(), "notes.txt", short))
}

func TestGrammarAnalyzer(t *testing.T) {
	t.Parallel()
	fns, err := GrammarAnalyzer{}.Analyze("store.py", pySource)
	require.NoError(t, err)

	byName := map[string]int{}
	for _, f := range fns {
		byName[f.Name] = f.CCN
	}
	// if
	assert.Equal(t, 2, byName["get"])
	// if, and, for, if
	assert.Equal(t, 5, byName["helper"])
	assert.Equal(t, 5, MaxCCN(fns))
}

func TestGrammarAnalyzer_NoFunctions(t *testing.T) {
	t.Parallel()
	fns, err := GrammarAnalyzer{}.Analyze("settings.py", "A = 1\nB = 2\n")
	require.NoError(t, err)
	assert.Empty(t, fns)
	assert.Equal(t, 0, MaxCCN(fns))
}

func TestGrammarAnalyzer_MethodFragment(t *testing.T) {
	t.Parallel()
	fragment := "public int pick(int a) {\n  if (a > 0 || a < -5) {\n    return 1;\n  }\n  return 0;\n}"
	fns, err := GrammarAnalyzer{}.Analyze("src/Picker.java", fragment)
	require.NoError(t, err)
	require.Len(t, fns, 1)
	assert.Equal(t, "pick", fns[0].Name)
	assert.Equal(t, 3, fns[0].CCN)
	assert.Equal(t, 1, fns[0].Line)
}

func TestGrammarAnalyzer_Unparseable(t *testing.T) {
	t.Parallel()
	_, err := GrammarAnalyzer{}.Analyze("broken.go", "}}}} ((( ;;; ))")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnparseable))
}

func TestTokenAnalyzer(t *testing.T) {
	t.Parallel()
	src := "<?php\nfunction check($a) {\n  if ($a && $b) { return 1; }\n  while ($a) { $a--; }\n  return 0;\n}\n"
	fns, err := TokenAnalyzer{}.Analyze("check.php", src)
	require.NoError(t, err)
	require.Len(t, fns, 1)
	assert.Equal(t, "check", fns[0].Name)
	assert.Equal(t, 4, fns[0].CCN)
}

func TestNewAnalyzer_Dispatch(t *testing.T) {
	t.Parallel()
	a := NewAnalyzer()

	fns, err := a.Analyze("x.go", "package x\nfunc A(b bool) { if b { return } }\n")
	require.NoError(t, err)
	require.Len(t, fns, 1)
	assert.Equal(t, 2, fns[0].CCN)

	fns, err = a.Analyze("docs/guide.md", "# Guide\n\nSome prose about the system.\n")
	require.NoError(t, err)
	assert.Empty(t, fns)
}
