// Package deps reports the availability of the external engines the
// pipeline shells out to.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"coverforge/internal/config"
)

// Requirement defines an external tool coverforge relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements builds the dependency list for the configured engine
// commands.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{Name: "yt-dlp", Command: cfg.Engines.YtDlp, Description: "Downloads source audio from YouTube"},
		{Name: "ffmpeg", Command: cfg.Engines.FFmpeg, Description: "Normalizes, applies effects, and mixes audio"},
		{Name: "sox", Command: cfg.Engines.Sox, Description: "Pitch-shifts whole tracks"},
		{Name: "audio-separator", Command: cfg.Engines.Separator, Description: "Separates vocals, instrumentals, and reverb stems"},
		{Name: "rvc", Command: cfg.Engines.RVC, Description: "Converts vocals with a trained voice model"},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}
