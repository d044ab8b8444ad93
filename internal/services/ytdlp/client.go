// Package ytdlp wraps the yt-dlp command-line downloader used to fetch the
// audio of a remote song reference.
package ytdlp

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

// Client defines remote audio fetching behaviour.
type Client interface {
	Fetch(ctx context.Context, url, destDir string) (string, error)
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

// WithCookies points yt-dlp at a Netscape-format cookies file.
func WithCookies(path string) Option {
	return func(c *CLI) {
		c.cookies = strings.TrimSpace(path)
	}
}

// CLI wraps the yt-dlp downloader.
type CLI struct {
	binary  string
	cookies string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "yt-dlp"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Fetch downloads the best audio stream as mp3 into destDir and returns the
// downloaded file path, which yt-dlp prints after post-processing.
func (c *CLI) Fetch(ctx context.Context, url, destDir string) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", errors.New("url required")
	}
	if strings.TrimSpace(destDir) == "" {
		return "", errors.New("destination directory required")
	}

	args := []string{
		"--format", "bestaudio",
		"--extract-audio",
		"--audio-format", "mp3",
		"--no-check-certificate",
		"--no-simulate",
		"--print", "after_move:filepath",
		"--output", filepath.Join(destDir, "%(title)s.%(ext)s"),
	}
	if c.cookies != "" {
		args = append(args, "--cookies", c.cookies)
	}
	args = append(args, url)

	cmd := commandContext(ctx, c.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return "", fmt.Errorf("yt-dlp failed: %s", detail)
	}

	path := lastLine(&stdout)
	if path == "" {
		return "", errors.New("yt-dlp reported no output file")
	}
	return path, nil
}

func lastLine(buf *bytes.Buffer) string {
	var last string
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			last = line
		}
	}
	return last
}

var _ Client = (*CLI)(nil)
