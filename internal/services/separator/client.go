// Package separator wraps the audio-separator command-line tool that splits a
// track into two stems using a named model checkpoint. The pipeline invokes
// it three times with three different models to realize the separation
// passes.
package separator

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

var commandContext = exec.CommandContext

// Client defines stem separation behaviour.
type Client interface {
	Separate(ctx context.Context, input, modelFilename, outputDir string) (string, string, error)
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// WithModelsDir points the separator at the checkpoint download directory.
func WithModelsDir(dir string) Option {
	return func(c *CLI) {
		c.modelsDir = strings.TrimSpace(dir)
	}
}

// CLI wraps the audio-separator command-line tool.
type CLI struct {
	binary    string
	modelsDir string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "audio-separator"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Separate runs one separation pass and returns the two stem paths in the
// order the tool reports them. The caller renames them to canonical artifact
// names; which stem is which depends on the model.
func (c *CLI) Separate(ctx context.Context, input, modelFilename, outputDir string) (string, string, error) {
	if strings.TrimSpace(input) == "" {
		return "", "", errors.New("input path required")
	}
	if strings.TrimSpace(modelFilename) == "" {
		return "", "", errors.New("model filename required")
	}
	if strings.TrimSpace(outputDir) == "" {
		return "", "", errors.New("output directory required")
	}

	args := []string{
		input,
		"--model_filename", modelFilename,
		"--output_dir", outputDir,
		"--output_format", "wav",
	}
	if c.modelsDir != "" {
		args = append(args, "--model_file_dir", c.modelsDir)
	}

	cmd := commandContext(ctx, c.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return "", "", fmt.Errorf("audio-separator failed: %s", detail)
	}

	stems := parseStemPaths(&stdout, outputDir)
	if len(stems) != 2 {
		return "", "", fmt.Errorf("expected 2 stems from %s, got %d", modelFilename, len(stems))
	}
	return stems[0], stems[1], nil
}

// parseStemPaths collects the wav files the tool reports, resolving bare
// filenames against the output directory.
func parseStemPaths(buf *bytes.Buffer, outputDir string) []string {
	var stems []string
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasSuffix(strings.ToLower(line), ".wav") {
			continue
		}
		if !filepath.IsAbs(line) {
			line = filepath.Join(outputDir, line)
		}
		stems = append(stems, line)
	}
	return stems
}

var _ Client = (*CLI)(nil)
