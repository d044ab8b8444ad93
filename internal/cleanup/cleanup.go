// Package cleanup removes strictly-intermediate artifacts after a
// successful run. The four discovery artifacts and the two terminal
// mixes are never deleted: the discovery artifacts are the cache that
// lets a future run for the same song skip separation entirely.
package cleanup

import (
	"log/slog"

	"coverforge/internal/artifacts"
	"coverforge/internal/fileutil"
	"coverforge/internal/logging"
)

// Plan names the files to delete and the files that must survive even if
// they appear in the delete list.
type Plan struct {
	Delete  []string
	Protect []string
}

// PlanFor computes the intermediate artifacts of one run: the raw and
// de-reverbed vocal stems, the reverb residual, the post-effects vocal
// files, and the transposed duplicates when a global pitch shift was
// applied. Converted AI vocals are kept: their filenames encode the full
// parameter tuple, so they are safe to reuse.
func PlanFor(run artifacts.Run, key artifacts.ConvertKey, pitchAll int, model, format string) Plan {
	deletions := []string{
		run.RawVocals(),
		run.NoReverbVocals(),
		run.ReverbResidual(),
		artifacts.WithEffects(run.Converted(artifacts.PartLead, key)),
		artifacts.WithEffects(run.Converted(artifacts.PartBacking, key)),
	}
	if pitchAll != 0 {
		deletions = append(deletions,
			artifacts.PitchShifted(run.Instrumental(), pitchAll),
			artifacts.PitchShifted(run.BackupVocals(), pitchAll),
		)
	}

	protected := append(run.Discovery(),
		run.Cover(model, format),
		run.CoverWithBacking(model, format),
	)
	return Plan{Delete: deletions, Protect: protected}
}

// Run deletes the planned files. Failures are logged and swallowed:
// cleanup is best-effort and never fails the pipeline.
func Run(logger *slog.Logger, plan Plan) {
	if logger == nil {
		logger = logging.NewNop()
	}
	protected := make(map[string]struct{}, len(plan.Protect))
	for _, path := range plan.Protect {
		protected[path] = struct{}{}
	}
	for _, path := range plan.Delete {
		if _, ok := protected[path]; ok {
			continue
		}
		if err := fileutil.RemoveIfExists(path); err != nil {
			logger.Warn("failed to remove intermediate file",
				logging.String("path", path),
				logging.Error(err),
			)
		}
	}
}
