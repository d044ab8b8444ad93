package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"coverforge/internal/artifacts"
	"coverforge/internal/config"
	"coverforge/internal/logging"
	"coverforge/internal/manifest"
	"coverforge/internal/pipeline"
	"coverforge/internal/preflight"
	"coverforge/internal/progress"
	"coverforge/internal/services/fx"
	"coverforge/internal/services/pitch"
	"coverforge/internal/services/rvc"
	"coverforge/internal/services/separator"
	"coverforge/internal/services/ytdlp"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var (
		model          string
		pitchSemitones int
		pitchAll       int

		indexRate      float64
		filterRadius   int
		rmsMixRate     float64
		f0Method       string
		crepeHopLength int
		protect        float64

		mainGain   int
		backupGain int
		instGain   int

		roomSize float64
		wetness  float64
		dryness  float64
		damping  float64

		outputFormat     string
		keepIntermediate bool
		skipPreflight    bool
	)

	cmd := &cobra.Command{
		Use:   "generate <song>",
		Short: "Generate an AI cover of a song with a trained voice model",
		Long: "Generate runs the full cover pipeline: fetch or copy the source audio,\n" +
			"separate vocals from the instrumental, convert the lead and backing\n" +
			"vocals with the selected voice model, apply reverb, and mix the final\n" +
			"covers. The song argument is a YouTube URL, video ID, or local file path.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			logger, err := logging.NewForDir(cfg.Paths.LogDir, cfg.Logging.Level, cfg.Logging.Format)
			if err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}

			if !skipPreflight {
				if err := runPreflight(cmd, cfg); err != nil {
					return err
				}
			}

			man, err := manifest.Open(cfg.Paths.OutputDir)
			if err != nil {
				return fmt.Errorf("open run manifest: %w", err)
			}
			defer man.Close()

			store := artifacts.NewStore(cfg.Paths.OutputDir)
			sink := progress.New(os.Stderr)
			defer sink.Close()

			engines := pipeline.Engines{
				Fetcher:   ytdlp.NewCLI(ytdlp.WithBinary(cfg.Engines.YtDlp), ytdlp.WithCookies(cfg.Paths.CookiesFile)),
				Separator: separator.NewCLI(separator.WithBinary(cfg.Engines.Separator), separator.WithModelsDir(cfg.Paths.SeparationModelsDir)),
				Converter: rvc.NewCLI(rvc.WithBinary(cfg.Engines.RVC)),
				FX:        fx.NewCLI(fx.WithBinary(cfg.Engines.FFmpeg)),
				Shifter:   pitch.NewCLI(pitch.WithBinary(cfg.Engines.Sox)),
			}

			req := pipeline.RequestFromConfig(cfg)
			req.Song = strings.TrimSpace(args[0])
			req.Model = strings.TrimSpace(model)
			req.Pitch = pitchSemitones
			req.PitchAll = pitchAll
			req.KeepIntermediate = keepIntermediate

			flags := cmd.Flags()
			if flags.Changed("index-rate") {
				req.IndexRate = indexRate
			}
			if flags.Changed("filter-radius") {
				req.FilterRadius = filterRadius
			}
			if flags.Changed("rms-mix-rate") {
				req.RMSMixRate = rmsMixRate
			}
			if flags.Changed("f0-method") {
				req.F0Method = f0Method
			}
			if flags.Changed("crepe-hop-length") {
				req.CrepeHopLength = crepeHopLength
			}
			if flags.Changed("protect") {
				req.Protect = protect
			}
			if flags.Changed("main-gain") {
				req.MainGain = mainGain
			}
			if flags.Changed("backup-gain") {
				req.BackupGain = backupGain
			}
			if flags.Changed("inst-gain") {
				req.InstGain = instGain
			}
			if flags.Changed("room-size") {
				req.ReverbRoomSize = roomSize
			}
			if flags.Changed("reverb-wetness") {
				req.ReverbWetness = wetness
			}
			if flags.Changed("reverb-dryness") {
				req.ReverbDryness = dryness
			}
			if flags.Changed("reverb-damping") {
				req.ReverbDamping = damping
			}
			if flags.Changed("output-format") {
				req.OutputFormat = outputFormat
			}

			controller := pipeline.New(cfg, store, man, engines, logger, sink)
			result, err := controller.Run(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Cover generated in %s\n", result.RunDir)
			fmt.Fprintf(out, "  Lead cover:         %s\n", result.Cover)
			fmt.Fprintf(out, "  With backing cover: %s\n", result.CoverWithBacking)
			return nil
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "", "Voice model directory name under the voice models path (required)")
	cmd.Flags().IntVarP(&pitchSemitones, "pitch", "p", 0, "Pitch shift for converted vocals in semitones")
	cmd.Flags().IntVar(&pitchAll, "pitch-all", 0, "Pitch shift applied to the whole mix in semitones")

	cmd.Flags().Float64Var(&indexRate, "index-rate", 0, "Feature index blend rate (0-1)")
	cmd.Flags().IntVar(&filterRadius, "filter-radius", 0, "Median filter radius applied to the pitch curve")
	cmd.Flags().Float64Var(&rmsMixRate, "rms-mix-rate", 0, "Volume envelope mix rate (0-1)")
	cmd.Flags().StringVar(&f0Method, "f0-method", "", "Pitch detection method (rmvpe or mangio-crepe)")
	cmd.Flags().IntVar(&crepeHopLength, "crepe-hop-length", 0, "Hop length when f0 method is mangio-crepe")
	cmd.Flags().Float64Var(&protect, "protect", 0, "Voiceless consonant protection (0-0.5)")

	cmd.Flags().IntVar(&mainGain, "main-gain", 0, "Lead vocal gain in dB")
	cmd.Flags().IntVar(&backupGain, "backup-gain", 0, "Backup vocal gain in dB")
	cmd.Flags().IntVar(&instGain, "inst-gain", 0, "Instrumental gain in dB")

	cmd.Flags().Float64Var(&roomSize, "room-size", 0, "Reverb room size (0-1)")
	cmd.Flags().Float64Var(&wetness, "reverb-wetness", 0, "Reverb wet level (0-1)")
	cmd.Flags().Float64Var(&dryness, "reverb-dryness", 0, "Reverb dry level (0-1)")
	cmd.Flags().Float64Var(&damping, "reverb-damping", 0, "Reverb damping (0-1)")

	cmd.Flags().StringVarP(&outputFormat, "output-format", "f", "", "Final cover format (mp3 or wav)")
	cmd.Flags().BoolVarP(&keepIntermediate, "keep-intermediate", "k", false, "Keep intermediate audio files in the run directory")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip environment checks before running")

	_ = cmd.MarkFlagRequired("model")

	return cmd
}

func runPreflight(cmd *cobra.Command, cfg *config.Config) error {
	results := preflight.RunAll(cmd.Context(), cfg)
	results = append(results, engineResults(cfg)...)
	failures := preflight.Failures(results)
	if len(failures) == 0 {
		return nil
	}
	for _, failure := range failures {
		fmt.Fprintf(cmd.ErrOrStderr(), "preflight: %s: %s\n", failure.Name, failure.Detail)
	}
	return fmt.Errorf("%d preflight check(s) failed", len(failures))
}

func engineResults(cfg *config.Config) []preflight.Result {
	statuses := preflight.CheckEngines(cfg)
	results := make([]preflight.Result, 0, len(statuses))
	for _, status := range statuses {
		results = append(results, preflight.Result{
			Name:   status.Name,
			Passed: status.Available || status.Optional,
			Detail: status.Detail,
		})
	}
	return results
}
