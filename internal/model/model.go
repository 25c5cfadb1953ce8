// Package model defines the shared data types that flow through the review
// funnel: source files, code chunks, and the classification tags attached to
// them by the filters.
package model

import (
	"path/filepath"
	"strings"
)

// Category is the L0 bucket a file or chunk belongs to.
type Category string

const (
	CategoryCore    Category = "core"
	CategoryContext Category = "context"
	CategoryTest    Category = "test"
)

// UnitKind is the structural kind a splitter assigns to a chunk.
type UnitKind string

const (
	KindFunction  UnitKind = "function_definition"
	KindClass     UnitKind = "class_definition"
	KindInterface UnitKind = "interface_definition"
	KindModule    UnitKind = "module_definition"
	KindImpl      UnitKind = "impl_definition"
	KindText      UnitKind = "text"
	KindUnknown   UnitKind = "unknown"
)

// IsDefinition reports whether the kind names a definition.
func (k UnitKind) IsDefinition() bool {
	return strings.Contains(string(k), "definition")
}

// KeepReason records why the L1 filter retained a chunk.
type KeepReason string

const (
	ReasonNone           KeepReason = ""
	ReasonSecurity       KeepReason = "security_heuristic"
	ReasonLength         KeepReason = "length"
	ReasonHighComplexity KeepReason = "high_complexity"
	ReasonAnalysisError  KeepReason = "analysis_error"
)

// SourceFile is one ingested file.
type SourceFile struct {
	Path    string // relative to the repository root, slash separated
	Content string
}

// Ext returns the lowercased file extension including the dot.
func (f SourceFile) Ext() string {
	return strings.ToLower(filepath.Ext(f.Path))
}

// LineRange is an inclusive, 1-based line span.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Chunk is a contiguous, structurally meaningful slice of one source file.
// Chunks are values; filters return annotated copies rather than mutating.
type Chunk struct {
	Content   string    `json:"content"`
	Source    string    `json:"source"`
	StartByte int       `json:"startByte"`
	EndByte   int       `json:"endByte"`
	Lines     LineRange `json:"lines"`
	Category  Category  `json:"category"`
	Kind      UnitKind  `json:"kind"`

	// Complexity is the maximum cyclomatic complexity measured by L1.
	// Zero means not measured; a measured function is always at least 1.
	Complexity int        `json:"complexity,omitempty"`
	KeepReason KeepReason `json:"keepReason,omitempty"`
}

// Ext returns the lowercased extension of the chunk's source file.
func (c Chunk) Ext() string {
	return strings.ToLower(filepath.Ext(c.Source))
}

// Annotated returns a copy of c carrying the given keep reason and complexity.
func (c Chunk) Annotated(reason KeepReason, complexity int) Chunk {
	c.KeepReason = reason
	c.Complexity = complexity
	return c
}

// WithCategory returns a copy of c in the given category.
func (c Chunk) WithCategory(cat Category) Chunk {
	c.Category = cat
	return c
}
