// Package filter implements the deterministic front of the review funnel.
//
// L0 (Partition) sorts files by path into discarded, context, test and core
// buckets. Discard patterns win over context patterns, which win over test
// patterns; anything unmatched is core. Tests are reported separately but
// belong to the context bucket and are never deep-reviewed.
//
// L1 (Critical) decides which core chunks deserve an LLM review. A chunk that
// matches a sensitive pattern is kept unconditionally. Otherwise its maximum
// cyclomatic complexity is compared with a threshold, long function-free
// blobs are kept by length, and chunks the analyzer cannot parse are kept
// conservatively.
package filter
