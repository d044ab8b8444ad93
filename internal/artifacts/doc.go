// Package artifacts maps pipeline stages and their parameters to
// deterministic file paths inside a per-song run directory.
//
// Path resolution is pure string construction; existence checks are the only
// I/O. Every tunable that affects an artifact's bytes is encoded into its
// filename, so changing any parameter lands on a fresh path and stale results
// are never silently reused. Stages publish outputs with a write-to-partial
// then rename step so a half-written file is never mistaken for a completed
// artifact.
package artifacts
