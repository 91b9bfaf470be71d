// Package config loads, normalizes, and validates cashcue configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CASHCUE_INFERENCE_URL. The Config type centralizes every knob the daemon and
// CLI need: the denomination allow list and confidence threshold, the
// confirmation window, live polling cadence, camera capture, and speech.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
