package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeEngines()
	c.normalizeSeparation()
	c.normalizeOutput()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.VoiceModelsDir) == "" {
		c.Paths.VoiceModelsDir = defaultVoiceModelsDir
	}
	if c.Paths.VoiceModelsDir, err = expandPath(c.Paths.VoiceModelsDir); err != nil {
		return fmt.Errorf("paths.voice_models_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SeparationModelsDir) == "" {
		c.Paths.SeparationModelsDir = defaultSeparationModelsDir
	}
	if c.Paths.SeparationModelsDir, err = expandPath(c.Paths.SeparationModelsDir); err != nil {
		return fmt.Errorf("paths.separation_models_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CookiesFile) != "" {
		if c.Paths.CookiesFile, err = expandPath(c.Paths.CookiesFile); err != nil {
			return fmt.Errorf("paths.cookies_file: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeEngines() {
	if strings.TrimSpace(c.Engines.YtDlp) == "" {
		c.Engines.YtDlp = defaultYtDlpBinary
	}
	if strings.TrimSpace(c.Engines.FFmpeg) == "" {
		c.Engines.FFmpeg = defaultFFmpegBinary
	}
	if strings.TrimSpace(c.Engines.Sox) == "" {
		c.Engines.Sox = defaultSoxBinary
	}
	if strings.TrimSpace(c.Engines.Separator) == "" {
		c.Engines.Separator = defaultSeparatorBinary
	}
	if strings.TrimSpace(c.Engines.RVC) == "" {
		c.Engines.RVC = defaultRVCBinary
	}
}

func (c *Config) normalizeSeparation() {
	if strings.TrimSpace(c.Separation.VocalModel) == "" {
		c.Separation.VocalModel = defaultVocalModel
	}
	if strings.TrimSpace(c.Separation.DereverbModel) == "" {
		c.Separation.DereverbModel = defaultDereverbModel
	}
	if strings.TrimSpace(c.Separation.KaraokeModel) == "" {
		c.Separation.KaraokeModel = defaultKaraokeModel
	}
}

func (c *Config) normalizeOutput() {
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	if c.Output.Format == "" {
		c.Output.Format = defaultOutputFormat
	}
	c.Conversion.F0Method = strings.ToLower(strings.TrimSpace(c.Conversion.F0Method))
	if c.Conversion.F0Method == "" {
		c.Conversion.F0Method = defaultF0Method
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
