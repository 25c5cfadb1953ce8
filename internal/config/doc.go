// Package config loads and merges funnel configuration.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (FUNNEL_PROVIDER, FUNNEL_MODEL, FUNNEL_THRESHOLD, ...),
//     including those loaded from a .env file in the working directory
//  3. Config file ($XDG_CONFIG_HOME/funnel/config.yaml)
//  4. Built-in defaults
//
// Use [Load] to obtain a merged [Config], [Save] to write one, and
// [SetField] to change a single key.
package config
