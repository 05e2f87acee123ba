package lyrics

import "unicode/utf8"

// Syllable is a timed text fragment coming from a binary source that already
// separates timing from text (ID3 SYLT frames, karaoke MIDI events)
type Syllable struct {
	TimeMs  uint64
	Text    string
	NewLine bool // starts a new line
}

// BuildSyllableLines groups syllables into lines with one word per syllable
// and finalizes them. ratio is the fallback milliseconds per character used to
// estimate the end of the very last syllable.
func BuildSyllableLines(syllables []Syllable, trim bool, ratio float64) []LyricLine {
	var groups [][]Syllable
	for i, s := range syllables {
		if i == 0 || s.NewLine {
			groups = append(groups, nil)
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], s)
	}

	lines := make([]LyricLine, 0, len(groups))
	for gi, group := range groups {
		var nextLineStart *uint64
		if gi+1 < len(groups) {
			start := groups[gi+1][0].TimeMs
			nextLineStart = &start
		}

		var text string
		words := make([]Word, 0, len(group))
		for i, s := range group {
			chars := CharRange{Start: len(text), End: len(text) + len(s.Text)}
			text += s.Text

			var end uint64
			switch {
			case i+1 < len(group):
				end = saturatingPrev(group[i+1].TimeMs)
			case nextLineStart != nil:
				end = saturatingPrev(*nextLineStart)
			default:
				est := AverageRatio(text, words, ratio) * float64(utf8.RuneCountInString(s.Text))
				end = s.TimeMs + uint64(est)
			}
			chars = TrimmedRange(text, chars)
			if end <= s.TimeMs || chars.Len() == 0 {
				continue
			}
			words = append(words, Word{Time: TimeRange{Start: s.TimeMs, End: end}, Chars: chars})
		}
		if trim {
			text, words = TrimLine(text, words)
		}
		if len(words) == 0 {
			words = nil
		}
		lines = append(lines, LyricLine{Text: text, Start: group[0].TimeMs, Words: words})
	}
	return Finalize(lines)
}

func saturatingPrev(v uint64) uint64 {
	if v == 0 {
		return 0
	}
	return v - 1
}
