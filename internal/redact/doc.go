// Package redact scrubs credentials from text before it is sent to a model
// provider.
//
// Secrets are found by regular expressions for common credential shapes:
// cloud and provider API keys, JWTs, bearer tokens, PEM private keys, chat
// tokens and quoted password assignments. Files whose path matches a
// configured glob are withheld from the review instead of being
// scanned.
package redact
