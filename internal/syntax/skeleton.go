package syntax

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/dshills/funnel/internal/lang"
)

const (
	// BodyMarker replaces collapsed implementation bodies.
	BodyMarker = "... (impl hidden) ..."

	// PrefixLimit is how much of an unsupported file a skeleton keeps.
	PrefixLimit = 2000

	truncatedMarker = "\n...(truncated)..."

	// Bodies shorter than this are left in place.
	minBodyBytes = 20
)

type edit struct {
	start, end int
	text       string
}

// Skeleton returns code with function bodies collapsed to BodyMarker,
// keeping signatures, declarations, comments and Python docstrings. Files
// without a grammar get the first PrefixLimit characters instead.
func Skeleton(ctx context.Context, path, code string) string {
	l := lang.ForPath(path)
	if l == nil {
		return Prefix(code)
	}
	src := []byte(code)
	tree, err := l.Parse(ctx, src)
	if err != nil {
		return Prefix(code)
	}
	defer tree.Close()

	var edits []edit
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if l.IsFunction(n) {
			if body := n.ChildByFieldName("body"); body != nil && collapsible(body, src) {
				edits = append(edits, edit{
					start: int(body.StartByte()),
					end:   int(body.EndByte()),
					text:  collapsedBody(l, body, src),
				})
				return
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(tree.RootNode())

	if len(edits) == 0 {
		return code
	}
	var b strings.Builder
	last := 0
	for _, e := range edits {
		b.Write(src[last:e.start])
		b.WriteString(e.text)
		last = e.end
	}
	b.Write(src[last:])
	return b.String()
}

// Prefix truncates code to PrefixLimit runes, marking the cut.
func Prefix(code string) string {
	runes := []rune(code)
	if len(runes) <= PrefixLimit {
		return code
	}
	return string(runes[:PrefixLimit]) + truncatedMarker
}

func collapsible(body *sitter.Node, src []byte) bool {
	if body.EndByte()-body.StartByte() < minBodyBytes {
		return false
	}
	// expression-bodied lambdas and arrows have nothing to hide
	return body.Type() == "block" || strings.HasPrefix(lang.NodeText(body, src), "{")
}

func collapsedBody(l *lang.Language, body *sitter.Node, src []byte) string {
	if strings.HasPrefix(lang.NodeText(body, src), "{") {
		return "{ " + BodyMarker + " }"
	}
	indent := strings.Repeat(" ", int(body.StartPoint().Column))
	if l.Docstrings {
		if doc := docstring(body, src); doc != "" {
			return doc + "\n" + indent + BodyMarker
		}
	}
	return BodyMarker
}

// docstring returns the leading string statement of a block, if any.
func docstring(body *sitter.Node, src []byte) string {
	if body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}
	if first.NamedChild(0).Type() != "string" {
		return ""
	}
	return lang.NodeText(first, src)
}
