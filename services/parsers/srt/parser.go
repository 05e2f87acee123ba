// Package srt adapts SubRip subtitles into synced lyrics lines
package srt

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"lyrics-parser-go/logcolors"
	"lyrics-parser-go/services/lyrics"

	"github.com/asticode/go-astisub"
	log "github.com/sirupsen/logrus"
)

var (
	ErrMissingTiming = errors.New("first cue has no timing line")
	ErrNoCues        = errors.New("no cues")
)

// Looks reports whether text starts like a SubRip file: the first cue number
// followed by a line break
func Looks(text string) bool {
	text = strings.TrimPrefix(text, "\ufeff")
	return strings.HasPrefix(text, "1\n") || strings.HasPrefix(text, "1\r")
}

// firstCueTimed reports whether the line after the first cue number is a
// "start --> end" timing line
func firstCueTimed(text string) bool {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.SplitN(strings.ReplaceAll(text, "\r", "\n"), "\n", 3)
	return len(lines) >= 2 && strings.Contains(lines[1], "-->")
}

func millis(d time.Duration) uint64 {
	if d <= 0 {
		return 0
	}
	return uint64(d.Milliseconds())
}

// Parse converts SubRip text into one line per cue. It returns nil without an
// error when the text is not SubRip, and an error when it starts like SubRip
// but its first cue is malformed or no cue can be read. Cues sharing a start time with the cue
// before them are marked as translations.
func Parse(text string, opts lyrics.Options) (lyrics.SemanticLyrics, error) {
	if !Looks(text) {
		return nil, nil
	}
	text = strings.TrimPrefix(text, "\ufeff")
	if !firstCueTimed(text) {
		return nil, fmt.Errorf("srt: %w", ErrMissingTiming)
	}
	subs, err := astisub.ReadFromSRT(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("srt: %w", err)
	}
	if len(subs.Items) == 0 {
		return nil, fmt.Errorf("srt: %w", ErrNoCues)
	}

	lines := make([]lyrics.LyricLine, 0, len(subs.Items))
	for _, item := range subs.Items {
		parts := make([]string, 0, len(item.Lines))
		for _, l := range item.Lines {
			parts = append(parts, l.String())
		}
		line := lyrics.LyricLine{
			Text:  strings.Join(parts, "\n"),
			Start: millis(item.StartAt),
		}
		if opts.Trim {
			line.Text = strings.TrimSpace(line.Text)
		}
		line.End = line.Start
		if end := millis(item.EndAt); end > line.Start {
			line.End = end - 1
		}
		lines = append(lines, line)
	}

	sort.SliceStable(lines, func(i, j int) bool { return lines[i].Start < lines[j].Start })
	for i := 1; i < len(lines); i++ {
		lines[i].IsTranslated = lines[i].Start == lines[i-1].Start
	}
	log.Debugf("%s Parsed %d cues", logcolors.LogSRT, len(lines))
	return &lyrics.SyncedLyrics{Lines: lines}, nil
}
