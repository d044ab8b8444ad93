package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// CheckFFprobe reports the ffprobe binary the mixer will execute.
//
// ffprobe ships alongside ffmpeg in every distribution package, so the
// lookup prefers an ffprobe that sits next to the resolved ffmpeg binary
// and falls back to resolving "ffprobe" from PATH. This keeps status
// output aligned with what the mixer actually runs when ffmpeg is pinned
// to a non-PATH location.
func CheckFFprobe(ffmpegCommand string) Status {
	result := Status{
		Name:        "ffprobe",
		Description: "Inspects channel layout before stereo normalization",
	}

	ffmpegBinary := strings.TrimSpace(ffmpegCommand)
	if ffmpegBinary != "" {
		if resolved, err := exec.LookPath(ffmpegBinary); err == nil {
			if candidate, ok := siblingCandidate(resolved, "ffprobe"); ok {
				if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
					result.Command = candidate
					result.Available = true
					return result
				}
			}
		}
	}

	probeName := "ffprobe"
	if probePath, err := exec.LookPath(probeName); err == nil {
		result.Command = probePath
		result.Available = true
		return result
	}

	result.Command = probeName
	result.Available = false
	result.Detail = fmt.Sprintf("binary %q not found", probeName)
	return result
}

func siblingCandidate(resolvedPath, name string) (string, bool) {
	if resolvedPath == "" {
		return "", false
	}
	dir := filepath.Dir(resolvedPath)
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(dir, name), true
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
