package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"coverforge/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if ctx.configPath != "" {
				fmt.Fprintf(out, "Configuration file: %s\n", ctx.configPath)
			} else {
				fmt.Fprintln(out, "Configuration file: (defaults, no file found)")
			}

			rows := [][]string{
				{"output_dir", cfg.Paths.OutputDir},
				{"voice_models_dir", cfg.Paths.VoiceModelsDir},
				{"separation_models_dir", cfg.Paths.SeparationModelsDir},
				{"log_dir", cfg.Paths.LogDir},
				{"cookies_file", cfg.Paths.CookiesFile},
				{"ytdlp", cfg.Engines.YtDlp},
				{"ffmpeg", cfg.Engines.FFmpeg},
				{"sox", cfg.Engines.Sox},
				{"separator", cfg.Engines.Separator},
				{"rvc", cfg.Engines.RVC},
				{"vocal_model", cfg.Separation.VocalModel},
				{"dereverb_model", cfg.Separation.DereverbModel},
				{"karaoke_model", cfg.Separation.KaraokeModel},
				{"f0_method", cfg.Conversion.F0Method},
				{"index_rate", strconv.FormatFloat(cfg.Conversion.IndexRate, 'f', -1, 64)},
				{"output_format", cfg.Output.Format},
				{"log_level", cfg.Logging.Level},
				{"log_format", cfg.Logging.Format},
				{"min_free_gib", strconv.Itoa(cfg.Preflight.MinFreeGiB)},
			}

			table := renderTable(
				[]string{"Setting", "Value"},
				rows,
				[]columnAlignment{alignLeft, alignLeft},
			)
			fmt.Fprintln(out, table)
			return nil
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if _, err := os.Stat(target); err == nil {
				if !overwrite {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				}
				if err := os.Remove(target); err != nil {
					return fmt.Errorf("remove existing config: %w", err)
				}
			} else if !os.IsNotExist(err) {
				return fmt.Errorf("check config path: %w", err)
			}

			if err := config.WriteSample(target); err != nil {
				return fmt.Errorf("write sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to point voice_models_dir at your trained RVC models before generating covers.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")

	return cmd
}
