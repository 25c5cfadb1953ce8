// Package lang provides a language registry mapping file extensions to
// tree-sitter grammars and the node types each language uses for units,
// function scopes, and decision points.
package lang

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/dshills/funnel/internal/model"
)

// Language holds tree-sitter configuration for a supported language.
type Language struct {
	Name       string
	Extensions []string
	lang       *sitter.Language

	// Units maps named node types to the chunk kind they produce.
	Units map[string]model.UnitKind

	// Functions are named node types that open a complexity scope and whose
	// "body" field is collapsed in a skeleton.
	Functions map[string]struct{}

	// Decisions are named node types that add one to cyclomatic complexity.
	Decisions map[string]struct{}

	// Operators are anonymous tokens (short-circuit operators) that add one.
	Operators map[string]struct{}

	// Docstrings keeps a leading string statement when a body is collapsed.
	Docstrings bool

	// Wrap encloses a fragment that cannot stand alone at top level, such as a
	// Java method, so it can be re-parsed. Empty when not needed.
	Wrap [2]string
}

// GetLanguage returns the tree-sitter Language pointer.
func (l *Language) GetLanguage() *sitter.Language {
	return l.lang
}

// NewParser creates a fresh tree-sitter parser for this language.
// Parsers are not safe for concurrent use; create one per call.
func (l *Language) NewParser() *sitter.Parser {
	p := sitter.NewParser()
	p.SetLanguage(l.lang)
	return p
}

// Parse parses source into a syntax tree.
func (l *Language) Parse(ctx context.Context, source []byte) (*sitter.Tree, error) {
	tree, err := l.NewParser().ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", l.Name, err)
	}
	return tree, nil
}

// UnitKind returns the chunk kind for a node, if the node is a unit.
func (l *Language) UnitKind(n *sitter.Node) (model.UnitKind, bool) {
	if !n.IsNamed() {
		return "", false
	}
	k, ok := l.Units[n.Type()]
	return k, ok
}

// IsFunction reports whether n opens a function scope.
func (l *Language) IsFunction(n *sitter.Node) bool {
	if !n.IsNamed() {
		return false
	}
	_, ok := l.Functions[n.Type()]
	return ok
}

// IsDecision reports whether n is a branch point.
func (l *Language) IsDecision(n *sitter.Node) bool {
	if n.IsNamed() {
		_, ok := l.Decisions[n.Type()]
		return ok
	}
	_, ok := l.Operators[n.Type()]
	return ok
}

// Languages maps language names to their configuration.
// Populated by init() functions in per-language files.
var Languages = map[string]*Language{}

var extensionMap map[string]*Language
var extensionOnce sync.Once

func getExtensionMap() map[string]*Language {
	extensionOnce.Do(func() {
		extensionMap = make(map[string]*Language)
		for _, l := range Languages {
			for _, ext := range l.Extensions {
				extensionMap[ext] = l
			}
		}
	})
	return extensionMap
}

// ForExtension returns the language for a file extension, or nil if no
// grammar is registered for it.
func ForExtension(ext string) *Language {
	return getExtensionMap()[strings.ToLower(ext)]
}

// ForPath returns the language for a file path, or nil.
func ForPath(path string) *Language {
	return ForExtension(filepath.Ext(path))
}

// NodeText returns the source text of a tree-sitter node.
func NodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}

// NodeName returns the text of a node's "name" field, or "" when absent.
func NodeName(node *sitter.Node, source []byte) string {
	if name := node.ChildByFieldName("name"); name != nil {
		return NodeText(name, source)
	}
	return ""
}

func set(types ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(types))
	for _, t := range types {
		m[t] = struct{}{}
	}
	return m
}
