// Package config loads, normalizes, and validates dialer configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads an optional .env file, and honours
// environment fallbacks such as DIALER_BASE_URL. The Config type centralizes
// every knob the CLI and the watch session need, so the backend address,
// state directory and reconnect cadence are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
