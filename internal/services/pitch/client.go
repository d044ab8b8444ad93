// Package pitch wraps sox for whole-track transposition. Shifts are cached by
// output path: if the target already exists the shift is a no-op, matching
// how the pipeline reuses shifted duplicates across mixes.
package pitch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

var commandContext = exec.CommandContext

// Client defines pitch shifting behaviour.
type Client interface {
	Shift(ctx context.Context, input, output string, semitones int) error
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

// CLI wraps the sox command-line tool.
type CLI struct {
	binary string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "sox"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Shift transposes input by the given semitones into output. sox's pitch
// effect takes cents, so the semitone count is scaled by 100.
func (c *CLI) Shift(ctx context.Context, input, output string, semitones int) error {
	if strings.TrimSpace(input) == "" || strings.TrimSpace(output) == "" {
		return errors.New("input and output paths required")
	}
	if _, err := os.Stat(output); err == nil {
		return nil
	}

	cmd := commandContext(ctx, c.binary, input, output, "pitch", strconv.Itoa(semitones*100))
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return fmt.Errorf("sox pitch failed: %s", detail)
	}
	return nil
}

var _ Client = (*CLI)(nil)
