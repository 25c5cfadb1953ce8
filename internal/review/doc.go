// Package review runs the per-file review loop and the batch around it.
//
// A [Runner] drives one file through the analyze/retrieve state machine: the
// model either returns a report or names internal symbols it needs, the
// resolver appends one context entry per symbol, and the loop repeats until a
// report exists or the attempt budget is spent.
//
// An [Orchestrator] groups critical chunks by file, keeps the most severe
// ones, runs every file concurrently with failures isolated per file, and
// reduces the per-file reports into one project report.
//
// Rules packs (rules.go) add focus areas, required checks and a scoring
// rubric to the prompts.
package review
