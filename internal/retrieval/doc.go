// Package retrieval looks up definitions of symbols the reviewer could not
// resolve from the code in front of it.
//
// [Index] keeps every ingested chunk of a repository in a SQLite FTS5 table
// and answers bm25-ranked queries through the [Backend] interface.
// [Resolver] turns a symbol into exactly one context entry, preferring
// definition chunks over any other match.
package retrieval
