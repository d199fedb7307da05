// Package config loads, normalizes, and validates binfill configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// BINFILL_BIN_DIR and BINFILL_ITEMS. The Config type centralizes the
// classification table, group definitions, and placement limits so the engine
// receives a single, sanitized view of a run.
//
// Always obtain settings through this package so downstream code receives
// expanded paths, canonical group definitions, and clear validation errors.
package config
