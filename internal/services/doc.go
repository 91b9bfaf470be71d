// Package services defines shared helpers consumed by the detection pipeline
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp session IDs, detection modes, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that let callers decide
//     whether a failure is swallowed (transient inference errors) or surfaced
//     to the user (source acquisition errors).
//
// Use these helpers when wiring new collaborators so error classification and
// observability stay uniform across the pipeline.
package services
