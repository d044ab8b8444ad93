package preflight

import (
	"context"

	"coverforge/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Output directory (always checked)
	results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))

	// Voice model directory (when configured)
	if cfg.Paths.VoiceModelsDir != "" {
		results = append(results, CheckDirectoryAccess("Voice models directory", cfg.Paths.VoiceModelsDir))
	}

	if cfg.Preflight.MinFreeGiB > 0 {
		results = append(results, CheckFreeSpace(cfg.Paths.OutputDir, cfg.Preflight.MinFreeGiB))
	}

	return results
}

// Failures filters results down to checks that did not pass.
func Failures(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
