package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateConversion(); err != nil {
		return err
	}
	if err := c.validateReverb(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.Preflight.MinFreeGiB < 0 {
		return errors.New("preflight.min_free_gib must not be negative")
	}
	return nil
}

func (c *Config) validateConversion() error {
	if c.Conversion.IndexRate < 0 || c.Conversion.IndexRate > 1 {
		return errors.New("conversion.index_rate must be between 0 and 1")
	}
	if c.Conversion.FilterRadius < 0 || c.Conversion.FilterRadius > 7 {
		return errors.New("conversion.filter_radius must be between 0 and 7")
	}
	if c.Conversion.RMSMixRate < 0 || c.Conversion.RMSMixRate > 1 {
		return errors.New("conversion.rms_mix_rate must be between 0 and 1")
	}
	if c.Conversion.Protect < 0 || c.Conversion.Protect > 0.5 {
		return errors.New("conversion.protect must be between 0 and 0.5")
	}
	if c.Conversion.CrepeHopLength <= 0 {
		return errors.New("conversion.crepe_hop_length must be positive")
	}
	switch c.Conversion.F0Method {
	case "rmvpe", "mangio-crepe", "crepe", "harvest":
	default:
		return fmt.Errorf("conversion.f0_method: unsupported value %q", c.Conversion.F0Method)
	}
	return nil
}

func (c *Config) validateReverb() error {
	for name, value := range map[string]float64{
		"reverb.room_size": c.Reverb.RoomSize,
		"reverb.wetness":   c.Reverb.Wetness,
		"reverb.dryness":   c.Reverb.Dryness,
		"reverb.damping":   c.Reverb.Damping,
	} {
		if value < 0 || value > 1 {
			return fmt.Errorf("%s must be between 0 and 1", name)
		}
	}
	return nil
}

func (c *Config) validateOutput() error {
	switch c.Output.Format {
	case "mp3", "wav", "flac", "ogg":
		return nil
	default:
		return fmt.Errorf("output.format: unsupported value %q", c.Output.Format)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
