// Package config loads, normalizes, and validates coverforge configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and centralizes every knob the pipeline and
// CLI need: output/cache directories, engine binary names, separation model
// checkpoints, and the default conversion/reverb/mix tunables.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
