// Package songid derives the deterministic run identifier for a song
// reference. A remote reference resolves to the platform video ID extracted
// from the URL; a local reference resolves to a truncated BLAKE2b digest of
// the file contents. The identifier keys the per-song artifact cache
// directory and nothing else.
package songid

import (
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"golang.org/x/crypto/blake2b"

	"coverforge/internal/services"
)

// hashPrefixLen balances readable directory names against collision risk:
// 11 hex characters gives a ~2^44 space, plenty for one user's library.
const hashPrefixLen = 11

// Kind distinguishes remote links from local files.
type Kind string

const (
	KindRemote Kind = "remote"
	KindLocal  Kind = "local"
)

// Reference is a resolved song input.
type Reference struct {
	Kind  Kind
	Input string
	RunID string
}

// Resolve classifies the raw song input and derives its run identifier.
// HTTPS inputs must be recognizable video URLs; anything else is treated as a
// local file path that must exist.
func Resolve(raw string) (Reference, error) {
	trimmed := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), `"`))
	if trimmed == "" {
		return Reference{}, services.Wrap(services.ErrInvalidInput, "resolve", "", "song input is empty", nil)
	}

	if parsed, err := url.Parse(trimmed); err == nil && (parsed.Scheme == "https" || parsed.Scheme == "http") {
		// Drop any extra query parameters after the first (mirrors stripping
		// playlist state from shared links).
		link := trimmed
		if idx := strings.IndexByte(link, '&'); idx >= 0 {
			link = link[:idx]
		}
		id := VideoID(trimmed)
		if id == "" {
			return Reference{}, services.Wrap(services.ErrInvalidReference, "resolve", "parse url",
				fmt.Sprintf("no video id found in %q", trimmed), nil)
		}
		return Reference{Kind: KindRemote, Input: link, RunID: id}, nil
	}

	if _, err := os.Stat(trimmed); err != nil {
		return Reference{}, services.Wrap(services.ErrInvalidReference, "resolve", "stat input",
			fmt.Sprintf("%s does not exist", trimmed), err)
	}
	id, err := HashFile(trimmed)
	if err != nil {
		return Reference{}, services.Wrap(services.ErrInvalidReference, "resolve", "hash input", "", err)
	}
	return Reference{Kind: KindLocal, Input: trimmed, RunID: id}, nil
}

// VideoID extracts the YouTube video identifier from the URL forms the
// fetcher understands: youtu.be short links, /watch?v=, /watch/<id>,
// /embed/<id>, and /v/<id>. Returns "" when no identifier is present.
func VideoID(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(parsed.Hostname())
	path := parsed.Path

	if host == "youtu.be" {
		return strings.TrimPrefix(path, "/")
	}

	switch host {
	case "www.youtube.com", "youtube.com", "music.youtube.com":
	default:
		return ""
	}

	if path == "/watch" {
		return parsed.Query().Get("v")
	}
	for _, prefix := range []string{"/watch/", "/embed/", "/v/"} {
		if strings.HasPrefix(path, prefix) {
			rest := strings.TrimPrefix(path, prefix)
			if idx := strings.IndexByte(rest, '/'); idx >= 0 {
				rest = rest[:idx]
			}
			return rest
		}
	}
	return ""
}

// HashFile streams the file through BLAKE2b and returns the truncated hex
// digest used as the run identifier for local inputs.
func HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher, err := blake2b.New512(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil))[:hashPrefixLen], nil
}
