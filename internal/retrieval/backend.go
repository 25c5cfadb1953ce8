package retrieval

import (
	"context"

	"github.com/dshills/funnel/internal/model"
)

// Metadata describes where a result came from.
type Metadata struct {
	Source string
	Kind   model.UnitKind
	Lines  model.LineRange
}

// Result is one search hit. Score is higher for better matches.
type Result struct {
	Content  string
	Metadata Metadata
	Score    float64
}

// Backend answers similarity queries over previously ingested chunks.
// Results are ordered best first and never exceed k.
type Backend interface {
	SimilaritySearch(ctx context.Context, query string, k int) ([]Result, error)
}
