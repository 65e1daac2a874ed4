// Package config loads, normalizes, and validates crate's TOML
// configuration.
//
// Load resolves the config path (explicit flag, then the user config
// dir, then a project-local crate.toml), fills defaults, expands ~ in
// path fields, and fails fast on inconsistent settings so later code
// can trust the values it receives.
package config
