// Package sidecar loads lyric files stored next to a media file
package sidecar

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"lyrics-parser-go/logcolors"
	"lyrics-parser-go/services/lyrics"
	"lyrics-parser-go/services/parsers"

	log "github.com/sirupsen/logrus"
)

var ErrNoSidecar = errors.New("no sidecar lyrics found")

// Extensions lists the sidecar extensions in the order they are preferred,
// each paired with the format it is parsed as
var Extensions = []struct {
	Ext    string
	Format parsers.Format
}{
	{".ttml", parsers.FormatTTML},
	{".srt", parsers.FormatSRT},
	{".lrc", parsers.FormatLRC},
}

// Paths returns the candidate sidecar paths of a media file, best first
func Paths(mediaPath string) []string {
	base := strings.TrimSuffix(mediaPath, filepath.Ext(mediaPath))
	out := make([]string, len(Extensions))
	for i, e := range Extensions {
		out[i] = base + e.Ext
	}
	return out
}

// Candidates reads every sidecar of mediaPath. Missing files are skipped. A
// file that exists but cannot be read becomes the error text when one is
// configured and is skipped otherwise.
func Candidates(mediaPath string, errorText *string) []parsers.Candidate {
	var out []parsers.Candidate
	for i, path := range Paths(mediaPath) {
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			log.Warnf("%s Failed to read %s: %v", logcolors.LogSidecar, path, err)
			if errorText != nil {
				out = append(out, parsers.Candidate{Text: *errorText, Format: parsers.FormatLRC})
			}
			continue
		}
		log.Debugf("%s Found %s (%d bytes)", logcolors.LogSidecar, path, len(data))
		out = append(out, parsers.Candidate{Text: string(data), Format: Extensions[i].Format})
	}
	return out
}

// Load parses the sidecars of mediaPath and returns the best result
func Load(mediaPath string, opts lyrics.Options) (lyrics.SemanticLyrics, error) {
	candidates := Candidates(mediaPath, opts.ErrorText)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoSidecar, mediaPath)
	}
	result, err := parsers.ParseBest(candidates, opts)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("%w for %s", ErrNoSidecar, mediaPath)
	}
	return result, nil
}
