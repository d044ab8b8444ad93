// Package manifest persists per-run stage completion records in SQLite.
//
// Bare file existence is a fragile completion signal: a crash mid-write
// leaves a plausible-looking artifact behind. The manifest closes that gap:
// a stage counts as cached only when its record says completed AND all of its
// declared outputs are still present on disk. The database lives at the root
// of the artifact cache and spans every run.
package manifest
