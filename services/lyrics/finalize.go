package lyrics

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Finalize sorts lines by start and fills in the fields that depend on the
// neighbouring lines: end time, translation flag and the default Walaoke
// speaker. Leading blank lines are dropped.
func Finalize(lines []LyricLine) []LyricLine {
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].Start < lines[j].Start
	})

	speakers := make([]Speaker, len(lines))
	for i, l := range lines {
		speakers[i] = l.Speaker
	}
	defaultMale := DefaultsToMale(speakers)

	for i := range lines {
		line := &lines[i]
		if defaultMale && line.Speaker == SpeakerNone {
			line.Speaker = SpeakerMale
		}
		line.End = lineEnd(lines, i)
		line.IsTranslated = i > 0 && lines[i-1].Start == line.Start
	}

	for len(lines) > 0 && strings.TrimSpace(lines[0].Text) == "" {
		lines = lines[1:]
	}
	return lines
}

func lineEnd(lines []LyricLine, i int) uint64 {
	line := lines[i]
	end := NoEnd
	switch {
	case len(line.Words) > 0:
		end = line.Words[len(line.Words)-1].Time.End
	case i > 0 && lines[i-1].Start == line.Start && len(lines[i-1].Words) > 0:
		prev := lines[i-1].Words
		end = prev[len(prev)-1].Time.End
	default:
		for _, next := range lines[i+1:] {
			if next.Start > line.Start {
				end = next.Start - 1
				break
			}
		}
	}
	if end < line.Start {
		end = line.Start
	}
	return end
}

// DefaultsToMale reports whether untagged lines should be attributed to the
// male Walaoke speaker: every tagged line must be Walaoke and at least one must
// be tagged.
func DefaultsToMale(speakers []Speaker) bool {
	sawWalaoke := false
	for _, s := range speakers {
		if s == SpeakerNone {
			continue
		}
		if !s.IsWalaoke() {
			return false
		}
		sawWalaoke = true
	}
	return sawWalaoke
}

// AverageRatio returns the mean milliseconds-per-character ratio of the given
// words, or fallback when no word covers any character.
func AverageRatio(text string, words []Word, fallback float64) float64 {
	sum := 0.0
	n := 0
	for _, w := range words {
		if w.Chars.Start < 0 || w.Chars.End > len(text) || w.Chars.Len() == 0 {
			continue
		}
		chars := utf8.RuneCountInString(text[w.Chars.Start:w.Chars.End])
		sum += float64(w.Time.Len()) / float64(chars)
		n++
	}
	if n == 0 {
		return fallback
	}
	return sum / float64(n)
}

// TrimmedRange narrows r so it excludes leading and trailing whitespace of text
func TrimmedRange(text string, r CharRange) CharRange {
	segment := text[r.Start:r.End]
	lead := len(segment) - len(strings.TrimLeftFunc(segment, unicode.IsSpace))
	if lead == len(segment) {
		return CharRange{Start: r.Start, End: r.Start}
	}
	trail := len(segment) - len(strings.TrimRightFunc(segment, unicode.IsSpace))
	return CharRange{Start: r.Start + lead, End: r.End - trail}
}

// TrimLine trims the text of a line and re-clips its words to the new text.
// Words that end up empty are dropped.
func TrimLine(text string, words []Word) (string, []Word) {
	lead := len(text) - len(strings.TrimLeftFunc(text, unicode.IsSpace))
	trimmed := strings.TrimSpace(text)
	if words == nil {
		return trimmed, nil
	}
	out := make([]Word, 0, len(words))
	for _, w := range words {
		w.Chars.Start = clamp(w.Chars.Start-lead, 0, len(trimmed))
		w.Chars.End = clamp(w.Chars.End-lead, 0, len(trimmed))
		if w.Chars.Len() == 0 {
			continue
		}
		out = append(out, w)
	}
	return trimmed, out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
