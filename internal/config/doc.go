// Package config loads, normalizes, and validates mixdown configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// MIXDOWN_API_BIND. The Config type centralizes every knob the daemon and CLI
// need, from workspace directories to external tool binaries.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
