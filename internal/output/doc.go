// Package output renders pipeline reports.
//
// Three formats are available:
//   - text: a terminal summary with stage statistics, per-file outcomes and
//     the aggregate report
//   - json: a stable machine-readable document with the run id
//   - markdown: a document suitable for a PR comment or wiki page
//
// Each format also renders the model-free triage result.
package output
