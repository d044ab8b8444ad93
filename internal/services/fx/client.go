// Package fx wraps ffmpeg for the DSP work the pipeline needs: stereo
// normalization, the post-conversion effect chain, and the final mixdown.
package fx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

var commandContext = exec.CommandContext

// ReverbParams tunes the reverb applied to converted vocals.
type ReverbParams struct {
	RoomSize float64
	Wetness  float64
	Dryness  float64
	Damping  float64
}

// Track is one mixdown input with its gain adjustment in dB.
type Track struct {
	Path   string
	GainDB float64
}

// Client defines the DSP behaviour the pipeline consumes.
type Client interface {
	Channels(ctx context.Context, path string) (int, error)
	ToStereo(ctx context.Context, input, output string) error
	ApplyEffects(ctx context.Context, input, output string, params ReverbParams) error
	Mix(ctx context.Context, tracks []Track, output, format string) error
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the ffmpeg binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// WithProbeBinary overrides the ffprobe binary name.
func WithProbeBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.probe = binary
		}
	}
}

// CLI wraps the ffmpeg and ffprobe command-line tools.
type CLI struct {
	binary string
	probe  string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "ffmpeg", probe: "ffprobe"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Channels probes the channel count of the first audio stream.
func (c *CLI) Channels(ctx context.Context, path string) (int, error) {
	if strings.TrimSpace(path) == "" {
		return 0, errors.New("input path required")
	}
	args := []string{
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=channels",
		"-of", "csv=p=0",
		path,
	}
	cmd := commandContext(ctx, c.probe, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe failed: %s", firstNonEmpty(stderr.String(), err.Error()))
	}
	channels, err := strconv.Atoi(strings.TrimSpace(stdout.String()))
	if err != nil {
		return 0, fmt.Errorf("parse channel count %q: %w", strings.TrimSpace(stdout.String()), err)
	}
	return channels, nil
}

// ToStereo re-encodes input as a two-channel wav at output.
func (c *CLI) ToStereo(ctx context.Context, input, output string) error {
	if strings.TrimSpace(input) == "" || strings.TrimSpace(output) == "" {
		return errors.New("input and output paths required")
	}
	return c.run(ctx,
		"-y", "-loglevel", "error",
		"-i", input,
		"-ac", "2",
		"-f", "wav",
		output,
	)
}

// ApplyEffects runs the vocal chain: highpass, compression, then reverb.
func (c *CLI) ApplyEffects(ctx context.Context, input, output string, params ReverbParams) error {
	if strings.TrimSpace(input) == "" || strings.TrimSpace(output) == "" {
		return errors.New("input and output paths required")
	}
	// Reverb via aecho: room size scales the delays, damping shortens the
	// tail, wet/dry set the echo and input levels.
	delay1 := 20 + int(params.RoomSize*200)
	delay2 := delay1 * 2
	decay := params.Wetness * (1 - params.Damping/2)
	if decay <= 0 {
		decay = 0.05
	}
	filter := strings.Join([]string{
		"highpass=f=100",
		"acompressor=ratio=4:threshold=-15dB",
		fmt.Sprintf("aecho=%s:%s:%d|%d:%s|%s",
			formatFloat(params.Dryness), formatFloat(params.Wetness),
			delay1, delay2,
			formatFloat(decay), formatFloat(decay/2)),
	}, ",")
	return c.run(ctx,
		"-y", "-loglevel", "error",
		"-i", input,
		"-af", filter,
		"-f", "wav",
		output,
	)
}

// Mix overlays the tracks with their gain adjustments and encodes the result
// in the requested format.
func (c *CLI) Mix(ctx context.Context, tracks []Track, output, format string) error {
	if len(tracks) == 0 {
		return errors.New("at least one track required")
	}
	if strings.TrimSpace(output) == "" {
		return errors.New("output path required")
	}

	args := []string{"-y", "-loglevel", "error"}
	for _, track := range tracks {
		args = append(args, "-i", track.Path)
	}

	var filter strings.Builder
	labels := make([]string, 0, len(tracks))
	for i, track := range tracks {
		label := fmt.Sprintf("[t%d]", i)
		fmt.Fprintf(&filter, "[%d:a]volume=%sdB%s;", i, formatFloat(track.GainDB), label)
		labels = append(labels, label)
	}
	fmt.Fprintf(&filter, "%samix=inputs=%d:normalize=0[mix]", strings.Join(labels, ""), len(tracks))

	args = append(args,
		"-filter_complex", filter.String(),
		"-map", "[mix]",
		"-f", format,
		output,
	)
	return c.run(ctx, args...)
}

func (c *CLI) run(ctx context.Context, args ...string) error {
	cmd := commandContext(ctx, c.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed: %s", firstNonEmpty(stderr.String(), err.Error()))
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

var _ Client = (*CLI)(nil)
