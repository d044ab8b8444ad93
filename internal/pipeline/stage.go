// Package pipeline sequences the cover-generation stages: fetch,
// stereo normalization, three separation passes, two voice conversions,
// effects, optional transposition, and the two terminal mixes. The
// executor records completion in the run manifest and skips stages whose
// outputs are already cached.
package pipeline

import "context"

// Stage keys recorded in the run manifest.
const (
	StageFetch             = "fetch"
	StageNormalizeStereo   = "normalize_stereo"
	StageSeparateVocals    = "separate_vocals"
	StageSeparateDereverb  = "separate_dereverb"
	StageSeparateKaraoke   = "separate_karaoke"
	StageConvertLead       = "convert_lead"
	StageConvertBacking    = "convert_backing"
	StageEffectsLead       = "effects_lead"
	StageEffectsBacking    = "effects_backing"
	StagePitchInstrumental = "pitch_instrumental"
	StagePitchBackup       = "pitch_backup"
	StageMixLead           = "mix_lead"
	StageMixBacking        = "mix_backing"
)

// Stage is one unit of pipeline work with declared inputs and outputs.
// Inputs and Outputs are closures because the early stages bind paths at
// run time: the song's base name is unknown until the fetch completes.
type Stage struct {
	Key      string
	Label    string
	Fraction float64

	// AlwaysRun disables output-based skipping. The effect chain and the
	// mixes carry tunables (reverb, gains) that are not encoded in their
	// filenames, so a cached file cannot be trusted to reflect them.
	AlwaysRun bool

	Inputs  func() []string
	Outputs func() []string
	Run     func(ctx context.Context) error
}
