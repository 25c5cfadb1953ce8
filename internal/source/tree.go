package source

import (
	"fmt"
	"sort"
	"strings"
)

type treeNode struct {
	children map[string]*treeNode
}

func (n *treeNode) child(name string) *treeNode {
	if n.children == nil {
		n.children = make(map[string]*treeNode)
	}
	c, ok := n.children[name]
	if !ok {
		c = &treeNode{}
		n.children[name] = c
	}
	return c
}

// RenderTree draws slash-separated paths as an indented tree under the
// header "Project Structure (repo @ branch):". Entries at each level are
// sorted by name with directories and files interleaved.
func RenderTree(repo, branch string, paths []string) string {
	root := &treeNode{}
	for _, p := range paths {
		node := root
		for _, part := range strings.Split(strings.Trim(p, "/"), "/") {
			if part == "" {
				continue
			}
			node = node.child(part)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Project Structure (%s @ %s):\n", repo, branch)
	writeLevel(&b, root, "")
	return b.String()
}

func writeLevel(b *strings.Builder, n *treeNode, prefix string) {
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)

	for i, name := range names {
		last := i == len(names)-1
		connector, next := "├── ", "│   "
		if last {
			connector, next = "└── ", "    "
		}
		b.WriteString(prefix + connector + name + "\n")
		writeLevel(b, n.children[name], prefix+next)
	}
}
