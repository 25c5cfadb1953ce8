// Package source acquires the files of a repository under review, either
// from a local checkout or from GitHub, and renders the project tree that
// the reviewer sees as global context.
package source
