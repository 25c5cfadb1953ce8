// Package cli wires together the Cobra command tree for the funnel binary.
//
// It defines the root command and all subcommands (review, triage, tree,
// config, models, cache, version), binds flags, reads configuration, builds
// the provider middleware stack and the pipeline, and returns deterministic
// exit codes for CI gating.
package cli
