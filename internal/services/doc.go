// Package services defines shared utilities consumed by the pipeline stages
// and the external engine integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that tag failures with the
//     pipeline's error taxonomy (invalid reference, fetch, missing artifact,
//     stage execution, model not found).
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability) stays uniform across the pipeline.
package services
