// Package rvc wraps the RVC voice-conversion command-line tool that
// re-synthesizes a vocal stem in a target timbre.
package rvc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"coverforge/internal/services"
)

var commandContext = exec.CommandContext

// ConvertRequest carries everything one conversion needs. Every tunable here
// is part of the output artifact's cache key.
type ConvertRequest struct {
	ModelDir     string
	Input        string
	Output       string
	Pitch        int
	F0Method     string
	IndexRate    float64
	FilterRadius int
	RMSMixRate   float64
	Protect      float64
	HopLength    int
}

// Client defines voice conversion behaviour.
type Client interface {
	Convert(ctx context.Context, req ConvertRequest) error
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

// CLI wraps the rvc command-line tool.
type CLI struct {
	binary string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "rvc"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// LocateModel finds the weights (.pth) and optional feature index (.index)
// files inside a voice model directory.
func LocateModel(modelDir string) (string, string, error) {
	entries, err := os.ReadDir(modelDir)
	if err != nil {
		return "", "", services.Wrap(services.ErrModelNotFound, "convert", "locate model",
			fmt.Sprintf("model directory %s does not exist", modelDir), err)
	}

	var weights, index string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".pth":
			weights = filepath.Join(modelDir, entry.Name())
		case ".index":
			index = filepath.Join(modelDir, entry.Name())
		}
	}
	if weights == "" {
		return "", "", services.Wrap(services.ErrModelNotFound, "convert", "locate model",
			fmt.Sprintf("no model file exists in %s", modelDir), nil)
	}
	return weights, index, nil
}

// Convert runs one voice conversion, writing the re-synthesized vocal to
// req.Output.
func (c *CLI) Convert(ctx context.Context, req ConvertRequest) error {
	if strings.TrimSpace(req.Input) == "" {
		return errors.New("input path required")
	}
	if strings.TrimSpace(req.Output) == "" {
		return errors.New("output path required")
	}

	weights, index, err := LocateModel(req.ModelDir)
	if err != nil {
		return err
	}

	args := []string{
		"infer",
		"--model", weights,
		"--input", req.Input,
		"--output", req.Output,
		"--pitch", strconv.Itoa(req.Pitch),
		"--f0-method", req.F0Method,
		"--index-rate", strconv.FormatFloat(req.IndexRate, 'f', -1, 64),
		"--filter-radius", strconv.Itoa(req.FilterRadius),
		"--rms-mix-rate", strconv.FormatFloat(req.RMSMixRate, 'f', -1, 64),
		"--protect", strconv.FormatFloat(req.Protect, 'f', -1, 64),
	}
	if index != "" {
		args = append(args, "--index", index)
	}
	if req.F0Method == "mangio-crepe" {
		args = append(args, "--hop-length", strconv.Itoa(req.HopLength))
	}

	cmd := commandContext(ctx, c.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return fmt.Errorf("rvc infer failed: %s", detail)
	}
	return nil
}

var _ Client = (*CLI)(nil)
