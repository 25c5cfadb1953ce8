package providers

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// BatchResult is the outcome of one request in a Batch call, at the same
// index as its request.
type BatchResult struct {
	Response Response
	Err      error
}

// Batch runs reqs concurrently with at most limit calls in flight. Failures
// are reported per request and never cancel the others.
func Batch(ctx context.Context, c Client, reqs []Request, limit int) []BatchResult {
	results := make([]BatchResult, len(reqs))
	if limit < 1 {
		limit = 1
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, req := range reqs {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					results[i] = BatchResult{Err: fmt.Errorf("panic: %v", r)}
				}
			}()
			resp, err := c.Generate(ctx, req)
			results[i] = BatchResult{Response: resp, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
