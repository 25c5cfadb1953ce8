package syntax

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/dshills/funnel/internal/lang"
)

// ErrUnparseable is returned when a snippet cannot be analyzed.
var ErrUnparseable = errors.New("unparseable code")

// FunctionComplexity is the cyclomatic complexity of one function.
type FunctionComplexity struct {
	Name string
	CCN  int
	Line int
}

// Analyzer measures per-function cyclomatic complexity. The path selects the
// language; the code may be a fragment of that file.
type Analyzer interface {
	Analyze(path, code string) ([]FunctionComplexity, error)
}

// MaxCCN returns the highest complexity in fns, or 0 when empty.
func MaxCCN(fns []FunctionComplexity) int {
	best := 0
	for _, f := range fns {
		if f.CCN > best {
			best = f.CCN
		}
	}
	return best
}

// NewAnalyzer returns an Analyzer that uses tree-sitter when a grammar is
// registered for the path and a token scan otherwise.
func NewAnalyzer() Analyzer {
	return autoAnalyzer{}
}

type autoAnalyzer struct {
	grammar GrammarAnalyzer
	tokens  TokenAnalyzer
}

func (a autoAnalyzer) Analyze(path, code string) ([]FunctionComplexity, error) {
	if lang.ForPath(path) != nil {
		return a.grammar.Analyze(path, code)
	}
	return a.tokens.Analyze(path, code)
}

// GrammarAnalyzer counts decision nodes in a tree-sitter syntax tree.
// Complexity is 1 plus the number of branch points inside each function;
// nested functions are scored separately.
type GrammarAnalyzer struct{}

func (GrammarAnalyzer) Analyze(path, code string) ([]FunctionComplexity, error) {
	l := lang.ForPath(path)
	if l == nil {
		return nil, fmt.Errorf("no grammar for %s", path)
	}

	fns, hasErr, err := measure(l, []byte(code), 0)
	if err != nil {
		return nil, err
	}
	if len(fns) == 0 && l.Wrap[0] != "" {
		// methods cut out of a class do not parse at top level
		wrapped := l.Wrap[0] + code + l.Wrap[1]
		offset := strings.Count(l.Wrap[0], "\n")
		if wfns, _, werr := measure(l, []byte(wrapped), offset); werr == nil && len(wfns) > 0 {
			return wfns, nil
		}
	}
	if len(fns) == 0 && hasErr {
		return nil, fmt.Errorf("%s: %w", path, ErrUnparseable)
	}
	return fns, nil
}

func measure(l *lang.Language, src []byte, lineOffset int) ([]FunctionComplexity, bool, error) {
	tree, err := l.Parse(context.Background(), src)
	if err != nil {
		return nil, false, err
	}
	defer tree.Close()

	var fns []*FunctionComplexity
	var walk func(n *sitter.Node, cur *FunctionComplexity)
	walk = func(n *sitter.Node, cur *FunctionComplexity) {
		if l.IsFunction(n) {
			name := lang.NodeName(n, src)
			if name == "" {
				name = "(anonymous)"
			}
			fc := &FunctionComplexity{
				Name: name,
				CCN:  1,
				Line: int(n.StartPoint().Row) + 1 - lineOffset,
			}
			fns = append(fns, fc)
			cur = fc
		} else if cur != nil && l.IsDecision(n) {
			cur.CCN++
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i), cur)
		}
	}
	root := tree.RootNode()
	walk(root, nil)

	out := make([]FunctionComplexity, len(fns))
	for i, f := range fns {
		out[i] = *f
	}
	return out, root.HasError(), nil
}

var (
	functionIntroducers = map[string]struct{}{
		"def": {}, "func": {}, "function": {}, "fn": {}, "fun": {}, "sub": {}, "proc": {},
	}
	decisionKeywords = map[string]struct{}{
		"if": {}, "elif": {}, "elsif": {}, "for": {}, "foreach": {}, "while": {},
		"until": {}, "unless": {}, "case": {}, "when": {}, "catch": {},
		"except": {}, "rescue": {},
	}
	decisionOperators = map[string]struct{}{
		"&&": {}, "||": {}, "?": {}, "and": {}, "or": {},
	}
)

// TokenAnalyzer approximates complexity from a chroma token stream for
// languages without a grammar. A function starts at an introducer keyword
// and runs until the next one. Unknown file types are lexed as C.
type TokenAnalyzer struct{}

func (TokenAnalyzer) Analyze(path, code string) ([]FunctionComplexity, error) {
	lexer := lexers.Match(filepath.Base(path))
	if lexer == nil {
		lexer = lexers.Get("c")
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	it, err := chroma.Coalesce(lexer).Tokenise(nil, code)
	if err != nil {
		return nil, fmt.Errorf("tokenising %s: %w", path, err)
	}

	var fns []FunctionComplexity
	cur := -1
	needName := false
	line := 1
	for _, tok := range it.Tokens() {
		word := strings.TrimSpace(tok.Value)
		switch {
		case word == "":
		case tok.Type.InCategory(chroma.Keyword) && isIn(functionIntroducers, word):
			fns = append(fns, FunctionComplexity{CCN: 1, Line: line})
			cur = len(fns) - 1
			needName = true
		case needName && tok.Type.InCategory(chroma.Name):
			fns[cur].Name = word
			needName = false
		case cur < 0:
		case tok.Type.InCategory(chroma.Keyword) && isIn(decisionKeywords, word):
			fns[cur].CCN++
		case tok.Type.InCategory(chroma.Operator) && isIn(decisionOperators, word):
			fns[cur].CCN++
		}
		line += strings.Count(tok.Value, "\n")
	}
	for i := range fns {
		if fns[i].Name == "" {
			fns[i].Name = "(anonymous)"
		}
	}
	return fns, nil
}

func isIn(set map[string]struct{}, word string) bool {
	_, ok := set[word]
	return ok
}
