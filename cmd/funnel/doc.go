// Funnel reviews a whole repository with an LLM through a staged triage funnel.
//
// Files are partitioned by path, code units are filtered by security heuristics
// and cyclomatic complexity, each surviving file is summarized, and every
// critical file is reviewed by a bounded analyze/retrieve loop before the
// per-file reports are reduced into one aggregate report.
//
// Usage:
//
//	funnel review ./path/to/repo          # review a local checkout
//	funnel review owner/repo --branch dev # review a GitHub repository
//	funnel triage ./repo                  # run the filters only, no LLM calls
//	funnel tree owner/repo                # print the file tree
package main
