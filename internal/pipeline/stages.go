package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"coverforge/internal/artifacts"
	"coverforge/internal/fileutil"
	"coverforge/internal/services"
	"coverforge/internal/services/fx"
	"coverforge/internal/services/rvc"
	"coverforge/internal/songid"
)

// discoveryStages builds the fetch/normalize/separate chain. These stages
// bind the run's base name while executing, so inputs and outputs are
// closures over the shared run and binding state.
func (c *Controller) discoveryStages(ref songid.Reference, run *artifacts.Run, bind *binding) []Stage {
	fetch := Stage{
		Key:      StageFetch,
		Label:    "Fetching song",
		Fraction: 0,
		Inputs: func() []string {
			if ref.Kind == songid.KindLocal {
				return []string{ref.Input}
			}
			return nil
		},
		Outputs: func() []string {
			if bind.fetched == "" {
				return nil
			}
			return []string{bind.fetched}
		},
		Run: func(ctx context.Context) error {
			if ref.Kind == songid.KindRemote {
				// Trailing &-parameters (playlists, timestamps) break
				// single-video extraction.
				url := strings.SplitN(ref.Input, "&", 2)[0]
				path, err := c.engines.Fetcher.Fetch(ctx, url, run.Dir)
				if err != nil {
					return services.Wrap(services.ErrFetch, StageFetch, "download", "", err)
				}
				bind.fetched = path
			} else {
				dest := filepath.Join(run.Dir, filepath.Base(ref.Input))
				if dest != ref.Input {
					if err := fileutil.CopyFile(ref.Input, dest); err != nil {
						return services.Wrap(services.ErrFetch, StageFetch, "copy local song", "", err)
					}
				}
				bind.fetched = dest
			}
			run.Base = stem(bind.fetched)
			return nil
		},
	}

	normalize := Stage{
		Key:      StageNormalizeStereo,
		Label:    "Normalizing audio to stereo",
		Fraction: 0.05,
		Inputs:   func() []string { return []string{bind.fetched} },
		Outputs:  func() []string { return []string{run.Original()} },
		Run: func(ctx context.Context) error {
			channels, err := c.engines.FX.Channels(ctx, bind.fetched)
			if err != nil {
				return services.Wrap(services.ErrStageExecution, StageNormalizeStereo, "probe channels", "", err)
			}
			target := run.Original()
			if bind.fetched == target && channels == 2 {
				return nil
			}
			partial := artifacts.PartialPath(target)
			if channels == 2 && strings.EqualFold(filepath.Ext(bind.fetched), ".wav") {
				if err := fileutil.CopyFile(bind.fetched, partial); err != nil {
					return services.Wrap(services.ErrStageExecution, StageNormalizeStereo, "copy stereo source", "", err)
				}
			} else if err := c.engines.FX.ToStereo(ctx, bind.fetched, partial); err != nil {
				return services.Wrap(services.ErrStageExecution, StageNormalizeStereo, "transcode", "", err)
			}
			return artifacts.Commit(target)
		},
	}

	separateVocals := Stage{
		Key:      StageSeparateVocals,
		Label:    "Separating vocals from instrumental",
		Fraction: 0.1,
		Inputs:   func() []string { return []string{run.Original()} },
		Outputs:  func() []string { return []string{run.Instrumental(), run.RawVocals()} },
		Run: func(ctx context.Context) error {
			instrumental, vocals, err := c.engines.Separator.Separate(ctx, run.Original(), c.cfg.Separation.VocalModel, run.Dir)
			if err != nil {
				return services.Wrap(services.ErrStageExecution, StageSeparateVocals, "separate", "", err)
			}
			if err := fileutil.MoveFile(instrumental, run.Instrumental()); err != nil {
				return services.Wrap(services.ErrStageExecution, StageSeparateVocals, "rename instrumental", "", err)
			}
			if err := fileutil.MoveFile(vocals, run.RawVocals()); err != nil {
				return services.Wrap(services.ErrStageExecution, StageSeparateVocals, "rename vocals", "", err)
			}
			return nil
		},
	}

	separateDereverb := Stage{
		Key:      StageSeparateDereverb,
		Label:    "Removing reverb from vocals",
		Fraction: 0.15,
		Inputs:   func() []string { return []string{run.RawVocals()} },
		Outputs:  func() []string { return []string{run.NoReverbVocals()} },
		Run: func(ctx context.Context) error {
			noReverb, residual, err := c.engines.Separator.Separate(ctx, run.RawVocals(), c.cfg.Separation.DereverbModel, run.Dir)
			if err != nil {
				return services.Wrap(services.ErrStageExecution, StageSeparateDereverb, "separate", "", err)
			}
			if err := fileutil.MoveFile(noReverb, run.NoReverbVocals()); err != nil {
				return services.Wrap(services.ErrStageExecution, StageSeparateDereverb, "rename vocals", "", err)
			}
			if err := fileutil.MoveFile(residual, run.ReverbResidual()); err != nil {
				return services.Wrap(services.ErrStageExecution, StageSeparateDereverb, "rename residual", "", err)
			}
			return nil
		},
	}

	separateKaraoke := Stage{
		Key:      StageSeparateKaraoke,
		Label:    "Splitting lead and backing vocals",
		Fraction: 0.2,
		Inputs:   func() []string { return []string{run.NoReverbVocals()} },
		Outputs:  func() []string { return []string{run.BackupVocals(), run.MainVocals()} },
		Run: func(ctx context.Context) error {
			backup, main, err := c.engines.Separator.Separate(ctx, run.NoReverbVocals(), c.cfg.Separation.KaraokeModel, run.Dir)
			if err != nil {
				return services.Wrap(services.ErrStageExecution, StageSeparateKaraoke, "separate", "", err)
			}
			if err := fileutil.MoveFile(backup, run.BackupVocals()); err != nil {
				return services.Wrap(services.ErrStageExecution, StageSeparateKaraoke, "rename backup vocals", "", err)
			}
			if err := fileutil.MoveFile(main, run.MainVocals()); err != nil {
				return services.Wrap(services.ErrStageExecution, StageSeparateKaraoke, "rename main vocals", "", err)
			}
			return nil
		},
	}

	return []Stage{fetch, normalize, separateVocals, separateDereverb, separateKaraoke}
}

// renderStages builds the conversion/effects/transposition/mix chain. The
// base name is bound by the time these run, so all paths are static.
func (c *Controller) renderStages(req Request, run artifacts.Run, key artifacts.ConvertKey) []Stage {
	leadPath := run.Converted(artifacts.PartLead, key)
	backingPath := run.Converted(artifacts.PartBacking, key)
	leadMixed := artifacts.WithEffects(leadPath)
	backingMixed := artifacts.WithEffects(backingPath)

	backupTrack := run.BackupVocals()
	instTrack := run.Instrumental()
	if req.PitchAll != 0 {
		backupTrack = artifacts.PitchShifted(run.BackupVocals(), req.PitchAll)
		instTrack = artifacts.PitchShifted(run.Instrumental(), req.PitchAll)
	}

	reverb := fx.ReverbParams{
		RoomSize: req.ReverbRoomSize,
		Wetness:  req.ReverbWetness,
		Dryness:  req.ReverbDryness,
		Damping:  req.ReverbDamping,
	}

	stages := []Stage{
		c.convertStage(StageConvertLead, "Converting lead vocals", 0.5, req, key, run.MainVocals(), leadPath),
		c.convertStage(StageConvertBacking, "Converting backing vocals", 0.65, req, key, run.BackupVocals(), backingPath),
		c.effectsStage(StageEffectsLead, "Applying audio effects to lead vocals", 0.8, leadPath, leadMixed, reverb),
		c.effectsStage(StageEffectsBacking, "Applying audio effects to backing vocals", 0.82, backingPath, backingMixed, reverb),
	}

	if req.PitchAll != 0 {
		stages = append(stages,
			c.pitchStage(StagePitchInstrumental, "Transposing instrumental", 0.85, run.Instrumental(), instTrack, req.PitchAll),
			c.pitchStage(StagePitchBackup, "Transposing backup vocals", 0.87, run.BackupVocals(), backupTrack, req.PitchAll),
		)
	}

	stages = append(stages,
		c.mixStage(StageMixLead, "Mixing AI cover", 0.9, req,
			[]fx.Track{
				{Path: leadMixed, GainDB: float64(mixLeadTrimDB + req.MainGain)},
				{Path: backupTrack, GainDB: float64(mixBackupTrimDB + req.BackupGain)},
				{Path: instTrack, GainDB: float64(mixInstTrimDB + req.InstGain)},
			},
			run.Cover(req.Model, req.OutputFormat)),
		c.mixStage(StageMixBacking, "Mixing AI cover with backing vocals", 0.92, req,
			[]fx.Track{
				{Path: leadMixed, GainDB: float64(mixLeadTrimDB + req.MainGain)},
				{Path: backingMixed, GainDB: float64(mixBackupTrimDB + req.BackupGain)},
				{Path: instTrack, GainDB: float64(mixInstTrimDB + req.InstGain)},
			},
			run.CoverWithBacking(req.Model, req.OutputFormat)),
	)

	return stages
}

func (c *Controller) convertStage(stageKey, label string, fraction float64, req Request, key artifacts.ConvertKey, input, output string) Stage {
	return Stage{
		Key:      stageKey,
		Label:    label,
		Fraction: fraction,
		Inputs:   func() []string { return []string{input} },
		Outputs:  func() []string { return []string{output} },
		Run: func(ctx context.Context) error {
			err := c.engines.Converter.Convert(ctx, rvc.ConvertRequest{
				ModelDir:     c.cfg.VoiceModelDir(req.Model),
				Input:        input,
				Output:       artifacts.PartialPath(output),
				Pitch:        key.Pitch,
				F0Method:     req.F0Method,
				IndexRate:    req.IndexRate,
				FilterRadius: req.FilterRadius,
				RMSMixRate:   req.RMSMixRate,
				Protect:      req.Protect,
				HopLength:    req.CrepeHopLength,
			})
			if err != nil {
				if errors.Is(err, services.ErrModelNotFound) {
					return err
				}
				return services.Wrap(services.ErrStageExecution, stageKey, "convert", "", err)
			}
			return artifacts.Commit(output)
		},
	}
}

func (c *Controller) effectsStage(stageKey, label string, fraction float64, input, output string, params fx.ReverbParams) Stage {
	return Stage{
		Key:       stageKey,
		Label:     label,
		Fraction:  fraction,
		AlwaysRun: true,
		Inputs:    func() []string { return []string{input} },
		Outputs:   func() []string { return []string{output} },
		Run: func(ctx context.Context) error {
			if err := c.engines.FX.ApplyEffects(ctx, input, artifacts.PartialPath(output), params); err != nil {
				return services.Wrap(services.ErrStageExecution, stageKey, "apply effects", "", err)
			}
			return artifacts.Commit(output)
		},
	}
}

// pitchStage writes directly to the final path: the shifter contract
// treats the output path itself as the cache key, and sox derives the
// output encoding from the file extension.
func (c *Controller) pitchStage(stageKey, label string, fraction float64, input, output string, semitones int) Stage {
	return Stage{
		Key:      stageKey,
		Label:    label,
		Fraction: fraction,
		Inputs:   func() []string { return []string{input} },
		Outputs:  func() []string { return []string{output} },
		Run: func(ctx context.Context) error {
			if err := c.engines.Shifter.Shift(ctx, input, output, semitones); err != nil {
				return services.Wrap(services.ErrStageExecution, stageKey, "pitch shift", "", err)
			}
			return nil
		},
	}
}

func (c *Controller) mixStage(stageKey, label string, fraction float64, req Request, tracks []fx.Track, output string) Stage {
	inputs := make([]string, 0, len(tracks))
	for _, track := range tracks {
		inputs = append(inputs, track.Path)
	}
	return Stage{
		Key:       stageKey,
		Label:     label,
		Fraction:  fraction,
		AlwaysRun: true,
		Inputs:    func() []string { return inputs },
		Outputs:   func() []string { return []string{output} },
		Run: func(ctx context.Context) error {
			if err := c.engines.FX.Mix(ctx, tracks, artifacts.PartialPath(output), req.OutputFormat); err != nil {
				return services.Wrap(services.ErrStageExecution, stageKey, "mix", "", err)
			}
			return artifacts.Commit(output)
		},
	}
}
