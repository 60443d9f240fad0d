// Package config loads, normalizes, and validates ftumix configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// FTUMIX_SOCKET. The Config type centralizes every knob the daemon and CLI
// need: card selection, startup mutations, watcher timing, socket locations,
// and log routing.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
