// Package cache stores model completions on disk.
//
// Entries are keyed by a SHA-256 hash of the provider, model, system prompt
// and user prompt (see [CompletionKey]), so a rerun over unchanged code
// answers from disk. Prompts are redacted before they reach the cache.
//
// The default directory is $XDG_CACHE_HOME/funnel or the platform
// equivalent.
package cache
