package syntax

import (
	"context"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/dshills/funnel/internal/lang"
	"github.com/dshills/funnel/internal/model"
)

// Split breaks a file into structural code units ordered by position.
// Nested units (a method inside a class) are emitted alongside their parent.
// Files without a grammar, or whose tree yields no units, come back as one
// KindText chunk covering the whole file. Blank files produce no chunks.
func Split(ctx context.Context, file model.SourceFile, cat model.Category) []model.Chunk {
	if strings.TrimSpace(file.Content) == "" {
		return nil
	}
	l := lang.ForPath(file.Path)
	if l == nil {
		return []model.Chunk{wholeFile(file, cat)}
	}

	src := []byte(file.Content)
	tree, err := l.Parse(ctx, src)
	if err != nil {
		return []model.Chunk{wholeFile(file, cat)}
	}
	defer tree.Close()

	var chunks []model.Chunk
	seen := make(map[[2]uint32]struct{})

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if kind, ok := l.UnitKind(n); ok {
			key := [2]uint32{n.StartByte(), n.EndByte()}
			if _, dup := seen[key]; !dup {
				seen[key] = struct{}{}
				chunks = append(chunks, model.Chunk{
					Content:   lang.NodeText(n, src),
					Source:    file.Path,
					StartByte: int(n.StartByte()),
					EndByte:   int(n.EndByte()),
					Lines: model.LineRange{
						Start: int(n.StartPoint().Row) + 1,
						End:   int(n.EndPoint().Row) + 1,
					},
					Category: cat,
					Kind:     kind,
				})
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(tree.RootNode())

	if len(chunks) == 0 {
		return []model.Chunk{wholeFile(file, cat)}
	}
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].StartByte < chunks[j].StartByte
	})
	return chunks
}

// SplitAll splits every file into chunks of the given category.
func SplitAll(ctx context.Context, files []model.SourceFile, cat model.Category) []model.Chunk {
	var out []model.Chunk
	for _, f := range files {
		out = append(out, Split(ctx, f, cat)...)
	}
	return out
}

func wholeFile(file model.SourceFile, cat model.Category) model.Chunk {
	return model.Chunk{
		Content:   file.Content,
		Source:    file.Path,
		StartByte: 0,
		EndByte:   len(file.Content),
		Lines: model.LineRange{
			Start: 1,
			End:   strings.Count(file.Content, "\n") + 1,
		},
		Category: cat,
		Kind:     model.KindText,
	}
}
