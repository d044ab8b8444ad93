package artifacts

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Voice part labels used in converted-vocal filenames.
const (
	PartLead    = "lead"
	PartBacking = "backing"
)

const (
	instrumentalSuffix = "_Instrumental.wav"
	rawVocalsSuffix    = "_Vocals.wav"
	noReverbSuffix     = "_Vocals (No Reverb).wav"
	reverbSuffix       = "_Vocals (Reverb).wav"
	mainVocalsSuffix   = "_Vocals_Main_DeReverb.wav"
	backupVocalsSuffix = "_Vocals_Backup.wav"
)

// Run resolves artifact paths for one song inside its run directory. Dir is
// the run directory keyed by the run identifier; Base is the song's filename
// stem, shared by every artifact of the run.
type Run struct {
	Dir  string
	Base string
}

// Original is the stereo original song, one of the four discovery artifacts.
func (r Run) Original() string { return r.join(r.Base + ".wav") }

// Instrumental is the separated instrumental stem.
func (r Run) Instrumental() string { return r.join(r.Base + instrumentalSuffix) }

// RawVocals is the first-pass vocal stem before de-reverb.
func (r Run) RawVocals() string { return r.join(r.Base + rawVocalsSuffix) }

// NoReverbVocals is the de-echoed vocal stem from the second separation pass.
func (r Run) NoReverbVocals() string { return r.join(r.Base + noReverbSuffix) }

// ReverbResidual is the discarded reverb tail from the second pass.
func (r Run) ReverbResidual() string { return r.join(r.Base + reverbSuffix) }

// MainVocals is the dereverbed lead vocal stem, a discovery artifact.
func (r Run) MainVocals() string { return r.join(r.Base + mainVocalsSuffix) }

// BackupVocals is the backing vocal stem, a discovery artifact.
func (r Run) BackupVocals() string { return r.join(r.Base + backupVocalsSuffix) }

// Converted is the AI vocal for the given part under the given key.
func (r Run) Converted(part string, key ConvertKey) string {
	return r.join(fmt.Sprintf("%s_%s_%s.wav", r.Base, part, key.Encode()))
}

// WithEffects derives the post-effect-chain path for a converted vocal.
func WithEffects(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + "_mixed.wav"
}

// PitchShifted derives the transposed duplicate of an artifact.
func PitchShifted(path string, semitones int) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + fmt.Sprintf("_p%d.wav", semitones)
}

// Cover is the terminal lead-only mix.
func (r Run) Cover(model, format string) string {
	return r.join(fmt.Sprintf("%s (%s Ver).%s", r.Base, model, format))
}

// CoverWithBacking is the terminal mix that includes AI backing vocals.
func (r Run) CoverWithBacking(model, format string) string {
	return r.join(fmt.Sprintf("%s (%s Ver With Backing).%s", r.Base, model, format))
}

// Discovery returns the four artifacts that anchor cache reuse: the original
// song, the instrumental, the main dereverbed vocals, and the backup vocals.
func (r Run) Discovery() []string {
	return []string{r.Original(), r.Instrumental(), r.MainVocals(), r.BackupVocals()}
}

func (r Run) join(name string) string {
	return filepath.Join(r.Dir, name)
}
