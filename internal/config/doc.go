// Package config loads, normalizes, and validates skyreel configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads a .env file when present, and honours
// environment overrides such as INSTAGRAM_USERNAME and POSTING_TIME. The Config
// type centralizes every knob the scheduler and CLI need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
