package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir          string `toml:"output_dir"`
	VoiceModelsDir     string `toml:"voice_models_dir"`
	SeparationModelsDir string `toml:"separation_models_dir"`
	LogDir             string `toml:"log_dir"`
	CookiesFile        string `toml:"cookies_file"`
}

// Engines names the external binaries the pipeline shells out to.
type Engines struct {
	YtDlp     string `toml:"ytdlp"`
	FFmpeg    string `toml:"ffmpeg"`
	Sox       string `toml:"sox"`
	Separator string `toml:"separator"`
	RVC       string `toml:"rvc"`
}

// Separation carries the model checkpoint used by each separation pass.
type Separation struct {
	VocalModel    string `toml:"vocal_model"`
	DereverbModel string `toml:"dereverb_model"`
	KaraokeModel  string `toml:"karaoke_model"`
}

// Conversion holds the default voice-conversion tunables. Every field here is
// part of the artifact cache key.
type Conversion struct {
	IndexRate      float64 `toml:"index_rate"`
	FilterRadius   int     `toml:"filter_radius"`
	RMSMixRate     float64 `toml:"rms_mix_rate"`
	F0Method       string  `toml:"f0_method"`
	CrepeHopLength int     `toml:"crepe_hop_length"`
	Protect        float64 `toml:"protect"`
}

// Reverb holds the default post-conversion effect chain parameters.
type Reverb struct {
	RoomSize float64 `toml:"room_size"`
	Wetness  float64 `toml:"wetness"`
	Dryness  float64 `toml:"dryness"`
	Damping  float64 `toml:"damping"`
}

// Output holds the default mixdown settings.
type Output struct {
	Format     string `toml:"format"`
	MainGain   int    `toml:"main_gain"`
	BackupGain int    `toml:"backup_gain"`
	InstGain   int    `toml:"inst_gain"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Preflight contains thresholds for pre-run environment checks.
type Preflight struct {
	MinFreeGiB int `toml:"min_free_gib"`
}

// Config encapsulates all configuration values for coverforge.
type Config struct {
	Paths      Paths      `toml:"paths"`
	Engines    Engines    `toml:"engines"`
	Separation Separation `toml:"separation"`
	Conversion Conversion `toml:"conversion"`
	Reverb     Reverb     `toml:"reverb"`
	Output     Output     `toml:"output"`
	Logging    Logging    `toml:"logging"`
	Preflight  Preflight  `toml:"preflight"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/coverforge/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// WriteSample writes the embedded sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the directories the pipeline writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// VoiceModelDir resolves the directory holding one named voice model.
func (c *Config) VoiceModelDir(model string) string {
	return filepath.Join(c.Paths.VoiceModelsDir, model)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
