package lyrics

import (
	"math"
	"strings"
)

// =============================================================================
// TIMING PRIMITIVES
// =============================================================================

// NoEnd marks a line whose end is not bounded by any following line
const NoEnd uint64 = math.MaxUint64

// DefaultMillisPerChar is the character-to-time ratio used when a line has no
// already-timed word to derive one from. It is a heuristic, not a measured value.
const DefaultMillisPerChar = 100.0

// TimeRange is an inclusive range of milliseconds
type TimeRange struct {
	Start uint64
	End   uint64
}

// Len returns the number of milliseconds covered by the range
func (r TimeRange) Len() uint64 {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// Shift moves the range by delta milliseconds, saturating at zero
func (r TimeRange) Shift(delta int64) TimeRange {
	return TimeRange{Start: shift(r.Start, delta), End: shift(r.End, delta)}
}

func shift(v uint64, delta int64) uint64 {
	if delta < 0 {
		d := uint64(-delta)
		if d > v {
			return 0
		}
		return v - d
	}
	if v == NoEnd {
		return v
	}
	return v + uint64(delta)
}

// CharRange is a half-open byte range into the text of the owning line
type CharRange struct {
	Start int
	End   int
}

// Len returns the number of bytes covered by the range
func (r CharRange) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

// Contains reports whether offset falls inside the range
func (r CharRange) Contains(offset int) bool {
	return offset >= r.Start && offset < r.End
}

// =============================================================================
// SPEAKERS
// =============================================================================

// Speaker identifies who sings a line
type Speaker int

const (
	SpeakerNone Speaker = iota

	// Walaoke extension, persist across lines until changed
	SpeakerMale
	SpeakerFemale
	SpeakerDuet

	// iTunes style, reset on every line
	SpeakerVoice1
	SpeakerVoice2
	SpeakerVoice2Background
	SpeakerGroup
	SpeakerGroupBackground
	SpeakerBackground
)

// IsWalaoke reports whether the speaker comes from the Walaoke gender tags
func (s Speaker) IsWalaoke() bool {
	return s == SpeakerMale || s == SpeakerFemale || s == SpeakerDuet
}

// IsVoice2 reports whether the speaker is the secondary voice. Female Walaoke
// lines are rendered on the secondary side.
func (s Speaker) IsVoice2() bool {
	return s == SpeakerVoice2 || s == SpeakerVoice2Background || s == SpeakerFemale
}

// IsGroup reports whether the speaker is a group of singers
func (s Speaker) IsGroup() bool {
	return s == SpeakerGroup || s == SpeakerGroupBackground || s == SpeakerDuet
}

// IsBackground reports whether the speaker is a background vocal
func (s Speaker) IsBackground() bool {
	return s == SpeakerBackground || s == SpeakerVoice2Background || s == SpeakerGroupBackground
}

func (s Speaker) String() string {
	switch s {
	case SpeakerMale:
		return "male"
	case SpeakerFemale:
		return "female"
	case SpeakerDuet:
		return "duet"
	case SpeakerVoice1:
		return "voice1"
	case SpeakerVoice2:
		return "voice2"
	case SpeakerVoice2Background:
		return "voice2_background"
	case SpeakerGroup:
		return "group"
	case SpeakerGroupBackground:
		return "group_background"
	case SpeakerBackground:
		return "background"
	default:
		return ""
	}
}

// =============================================================================
// LINES
// =============================================================================

// Word is a timed slice of a synced line
type Word struct {
	Time  TimeRange
	Chars CharRange
	IsRtl bool
}

// LyricLine is a single time-synchronized line
type LyricLine struct {
	Text         string
	Start        uint64
	End          uint64
	Words        []Word // nil when the line has no word timing
	Speaker      Speaker
	IsTranslated bool
}

// TimeRange returns the line's start and end as a range
func (l LyricLine) TimeRange() TimeRange {
	return TimeRange{Start: l.Start, End: l.End}
}

// IsClickable reports whether the line carries any visible text
func (l LyricLine) IsClickable() bool {
	return strings.TrimSpace(l.Text) != ""
}

// WordText returns the text covered by a word of this line
func (l LyricLine) WordText(w Word) string {
	if w.Chars.Start < 0 || w.Chars.End > len(l.Text) || w.Chars.Start > w.Chars.End {
		return ""
	}
	return l.Text[w.Chars.Start:w.Chars.End]
}

// UnsyncedLine is a plain line with an optional speaker
type UnsyncedLine struct {
	Text    string
	Speaker Speaker
}

// =============================================================================
// SEMANTIC LYRICS
// =============================================================================

// SemanticLyrics is either *UnsyncedLyrics or *SyncedLyrics
type SemanticLyrics interface {
	// UnsyncedText returns the plain text of every line, in order
	UnsyncedText() []string
	isSemanticLyrics()
}

// UnsyncedLyrics holds lines without any timing
type UnsyncedLyrics struct {
	Lines []UnsyncedLine
}

func (u *UnsyncedLyrics) UnsyncedText() []string {
	out := make([]string, len(u.Lines))
	for i, l := range u.Lines {
		out[i] = l.Text
	}
	return out
}

func (*UnsyncedLyrics) isSemanticLyrics() {}

// SyncedLyrics holds time-synchronized lines sorted by start
type SyncedLyrics struct {
	Lines []LyricLine
}

func (s *SyncedLyrics) UnsyncedText() []string {
	out := make([]string, len(s.Lines))
	for i, l := range s.Lines {
		out[i] = l.Text
	}
	return out
}

func (*SyncedLyrics) isSemanticLyrics() {}

// HasWords reports whether any line carries word timing
func (s *SyncedLyrics) HasWords() bool {
	for _, l := range s.Lines {
		if len(l.Words) > 0 {
			return true
		}
	}
	return false
}

// HasTranslation reports whether any line is a translation of its predecessor
func (s *SyncedLyrics) HasTranslation() bool {
	for _, l := range s.Lines {
		if l.IsTranslated {
			return true
		}
	}
	return false
}

// Options controls parsing behaviour shared by every format
type Options struct {
	// Trim removes leading and trailing whitespace from line text
	Trim bool
	// MultiLine merges untimed lines into the preceding synced line (LRC only)
	MultiLine bool
	// ErrorText, when set, replaces a structurally invalid file with one unsynced line
	ErrorText *string
	// MillisPerChar overrides DefaultMillisPerChar when positive
	MillisPerChar float64
}

// Ratio returns the effective fallback character-to-time ratio
func (o Options) Ratio() float64 {
	if o.MillisPerChar > 0 {
		return o.MillisPerChar
	}
	return DefaultMillisPerChar
}

// DefaultOptions returns the options used when the caller has no preference
func DefaultOptions() Options {
	return Options{Trim: true}
}
