// Package syntax wraps the structural-parsing collaborators used by the
// funnel: splitting files into code units, extracting skeletons for cheap
// summarization, and measuring cyclomatic complexity.
//
// Languages with a registered tree-sitter grammar (see package lang) are
// handled structurally. Everything else degrades: the splitter returns the
// whole file as one unit, the skeleton becomes a fixed-length prefix, and
// complexity falls back to a chroma token scan.
package syntax
