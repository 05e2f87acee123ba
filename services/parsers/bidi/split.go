// Package bidi refines word timing at text direction changes. A word that
// straddles a change between left-to-right and right-to-left script is cut in
// two and each half gets a proportional share of the word's time.
package bidi

import (
	"unicode/utf8"

	"lyrics-parser-go/logcolors"
	"lyrics-parser-go/services/lyrics"

	log "github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/bidi"
)

// Barrier is a byte offset where the text direction changes. Offset -1 holds
// the leading direction of the line.
type Barrier struct {
	Offset int
	IsRtl  bool
}

// strongDirection returns the direction of r if it is a strong character
func strongDirection(r rune) (isRtl bool, strong bool) {
	props, _ := bidi.LookupRune(r)
	switch props.Class() {
	case bidi.L:
		return false, true
	case bidi.R, bidi.AL:
		return true, true
	default:
		return false, false
	}
}

// Barriers lists the direction changes in text. Neutral and weak characters
// never start a new run.
func Barriers(text string) []Barrier {
	if text == "" {
		return nil
	}
	leading := false
	for _, r := range text {
		if rtl, ok := strongDirection(r); ok {
			leading = rtl
			break
		}
	}

	barriers := []Barrier{{Offset: -1, IsRtl: leading}}
	current := leading
	for i, r := range text {
		rtl, ok := strongDirection(r)
		if !ok {
			continue
		}
		if rtl != current {
			barriers = append(barriers, Barrier{Offset: i, IsRtl: rtl})
		}
		current = rtl
	}
	return barriers
}

// Split applies SplitLine to every line with word timing
func Split(s *lyrics.SyncedLyrics, ratio float64) {
	if s == nil {
		return
	}
	for i := range s.Lines {
		if len(s.Lines[i].Words) == 0 {
			continue
		}
		s.Lines[i].Words = SplitLine(s.Lines[i].Text, s.Lines[i].Words, ratio)
	}
}

// SplitLine returns words with direction flags set and with every word that
// straddles a direction change cut at the change. ratio is the fallback
// milliseconds per character used when no word gives a usable ratio.
func SplitLine(text string, words []lyrics.Word, ratio float64) []lyrics.Word {
	out := make([]lyrics.Word, len(words))
	copy(out, words)
	avg := lyrics.AverageRatio(text, words, ratio)

	lastRtl := false
	for _, b := range Barriers(text) {
		straddling := -1
		if b.Offset >= 0 {
			for i, w := range out {
				if w.Chars.Contains(b.Offset) && w.Chars.Start != b.Offset {
					straddling = i
					break
				}
			}
		}

		if straddling == -1 {
			// nothing to cut, the new direction applies from here on
			from := 0
			if b.Offset >= 0 {
				from = len(out)
				for i, w := range out {
					if w.Chars.Start >= b.Offset {
						from = i
						break
					}
				}
			}
			for i := from; i < len(out); i++ {
				out[i].IsRtl = b.IsRtl
			}
			lastRtl = b.IsRtl
			continue
		}

		w := out[straddling]
		if w.Time.End <= w.Time.Start {
			// no room to cut the time range, keep the word whole
			for i := straddling + 1; i < len(out); i++ {
				out[i].IsRtl = b.IsRtl
			}
			lastRtl = b.IsRtl
			continue
		}

		chars := utf8.RuneCountInString(text[w.Chars.Start:b.Offset])
		at := w.Time.Start + uint64(avg*float64(chars))
		if at < w.Time.Start+1 {
			at = w.Time.Start + 1
		}
		if at > w.Time.End {
			at = w.Time.End
		}

		first := lyrics.Word{
			Time:  lyrics.TimeRange{Start: w.Time.Start, End: at - 1},
			Chars: lyrics.CharRange{Start: w.Chars.Start, End: b.Offset},
			IsRtl: lastRtl,
		}
		second := lyrics.Word{
			Time:  lyrics.TimeRange{Start: at, End: w.Time.End},
			Chars: lyrics.CharRange{Start: b.Offset, End: w.Chars.End},
			IsRtl: b.IsRtl,
		}
		out = append(out[:straddling+1], out[straddling:]...)
		out[straddling] = first
		out[straddling+1] = second
		for i := straddling + 2; i < len(out); i++ {
			out[i].IsRtl = b.IsRtl
		}
		lastRtl = b.IsRtl
		log.Debugf("%s Split word at byte %d (time %d)", logcolors.LogBidi, b.Offset, at)
	}
	return out
}
