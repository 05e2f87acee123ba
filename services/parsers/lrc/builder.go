package lrc

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"lyrics-parser-go/logcolors"
	"lyrics-parser-go/services/lyrics"
	"lyrics-parser-go/services/parsers/bidi"

	log "github.com/sirupsen/logrus"
)

// segment is a piece of line text starting at a given time. Dummy segments
// carry no text and only bound the end of the preceding word.
type segment struct {
	time  uint64
	text  string
	dummy bool
}

// state is the reducer state threaded through Build. Every reduce call
// returns a new state; the previous value is never reused.
type state struct {
	out []lyrics.LyricLine

	offset int64

	lastSync    uint64
	hasSync     bool
	lastWord    uint64
	hasWord     bool
	syncStreak  int
	compressed  []uint64
	speaker     lyrics.Speaker
	segments    []segment
	lyricAfterW bool // text seen since the last word sync point
	wordOnLine  bool // a word sync point appeared on the current line
}

type settings struct {
	trim  bool
	ratio float64
}

func (s state) applyOffset(ts uint64) uint64 {
	v := int64(ts) + s.offset
	if v < 0 {
		return 0
	}
	return uint64(v)
}

func reduce(cfg settings, s state, tok Token) state {
	if tok.Kind == SyncPoint {
		s.syncStreak++
	} else {
		s.syncStreak = 0
	}

	switch tok.Kind {
	case Metadata:
		if strings.EqualFold(tok.Name, "offset") {
			v, err := strconv.ParseInt(strings.TrimSpace(tok.Value), 10, 64)
			if err != nil {
				log.Debugf("%s Ignoring malformed offset %q: %v", logcolors.LogLRC, tok.Value, err)
				return s
			}
			// positive offset shows the lyric earlier
			s.offset = -v
		}
	case SyncPoint:
		ts := s.applyOffset(tok.Timestamp)
		if s.syncStreak > 1 {
			s.compressed = append(s.compressed, ts)
		} else {
			s.lastSync, s.hasSync = ts, true
		}
	case SpeakerTag:
		s.speaker = tok.Speaker
	case WordSyncPoint:
		if !s.lyricAfterW && s.hasWord {
			s.segments = append(s.segments, segment{time: s.lastWord, dummy: true})
		}
		ts := s.applyOffset(tok.Timestamp)
		if floor, ok := s.wordFloor(); ok && ts < floor {
			log.Debugf("%s Word sync point %d precedes %d on its line, clamping", logcolors.LogLRC, ts, floor)
			ts = floor
		}
		s.lastWord, s.hasWord = ts, true
		if !s.hasSync {
			s.lastSync, s.hasSync = s.lastWord, true
		}
		s.lyricAfterW = false
		s.wordOnLine = true
	case LyricText:
		s.lyricAfterW = true
		switch {
		case s.hasWord:
			s.segments = append(s.segments, segment{time: s.lastWord, text: tok.Text})
		case s.hasSync:
			s.segments = append(s.segments, segment{time: s.lastSync, text: tok.Text})
		default:
			log.Debugf("%s Dropping text without sync point: %q", logcolors.LogLRC, tok.Text)
		}
	case NewLine:
		s = s.finishLine(cfg)
	}
	return s
}

// finishLine turns the buffered segments into one line per queued timestamp
// and resets the per-line state
func (s state) finishLine(cfg settings) state {
	if len(s.segments) > 0 || s.hasWord || s.hasSync {
		var text strings.Builder
		for _, seg := range s.segments {
			text.WriteString(seg.text)
		}
		line := lyrics.LyricLine{Text: text.String(), Speaker: s.speaker}
		switch {
		case len(s.segments) > 0:
			line.Start = s.segments[0].time
		case s.hasWord:
			line.Start = s.lastWord
		default:
			line.Start = s.lastSync
		}
		if len(s.segments) > 1 || s.wordOnLine {
			line.Words = s.words(line.Text, cfg.ratio)
		}
		if cfg.trim {
			line.Text, line.Words = lyrics.TrimLine(line.Text, line.Words)
		}

		s.out = append(s.out, line)
		for _, ts := range s.compressed {
			delta := int64(ts) - int64(line.Start)
			dup := line
			dup.Start = ts
			if line.Words != nil {
				dup.Words = make([]lyrics.Word, len(line.Words))
				for i, w := range line.Words {
					w.Time = w.Time.Shift(delta)
					dup.Words[i] = w
				}
			}
			s.out = append(s.out, dup)
		}
	}

	s.segments = nil
	s.compressed = nil
	s.hasSync = false
	s.hasWord = false
	s.wordOnLine = false
	// Walaoke speakers stick around until another one is named
	if !s.speaker.IsWalaoke() {
		s.speaker = lyrics.SpeakerNone
	}
	return s
}

// wordFloor is the latest time already used on the current line. Word sync
// points never move before it.
func (s state) wordFloor() (uint64, bool) {
	var floor uint64
	ok := false
	if s.hasWord {
		floor, ok = s.lastWord, true
	}
	if n := len(s.segments); n > 0 && (!ok || s.segments[n-1].time > floor) {
		floor, ok = s.segments[n-1].time, true
	}
	return floor, ok
}

// words derives word timing from the buffered segments. Consecutive segments
// starting at the same time form a single word.
func (s state) words(text string, ratio float64) []lyrics.Word {
	out := make([]lyrics.Word, 0, len(s.segments))
	idx, start := 0, 0
	for i, seg := range s.segments {
		if seg.dummy {
			continue
		}
		idx += len(seg.text)
		if i+1 < len(s.segments) && !s.segments[i+1].dummy && s.segments[i+1].time == seg.time {
			continue
		}
		chars := lyrics.CharRange{Start: start, End: idx}
		start = idx

		var end uint64
		switch {
		case i+1 < len(s.segments):
			end = s.segments[i+1].time
			if end > 0 {
				end--
			}
		case s.hasWord && s.lastWord > seg.time:
			// a trailing word sync point closes the last word
			end = s.lastWord - 1
		default:
			est := lyrics.AverageRatio(text, out, ratio) * float64(utf8.RuneCountInString(text[chars.Start:chars.End]))
			end = seg.time + uint64(est)
		}

		chars = lyrics.TrimmedRange(text, chars)
		if end > seg.time && chars.Len() > 0 {
			out = append(out, lyrics.Word{Time: lyrics.TimeRange{Start: seg.time, End: end}, Chars: chars})
		}
	}
	return out
}

// Build reduces a token stream into semantic lyrics
func Build(tokens []Token, opts lyrics.Options) lyrics.SemanticLyrics {
	timed := false
	for _, tok := range tokens {
		if tok.isTimed() {
			timed = true
			break
		}
	}
	if !timed {
		return buildUnsynced(tokens, opts.Trim)
	}

	cfg := settings{trim: opts.Trim, ratio: opts.Ratio()}
	s := state{lyricAfterW: true}
	for _, tok := range tokens {
		s = reduce(cfg, s, tok)
	}

	synced := &lyrics.SyncedLyrics{Lines: lyrics.Finalize(s.out)}
	bidi.Split(synced, cfg.ratio)
	log.Debugf("%s Built %d synced lines (words: %v)", logcolors.LogLRC, len(synced.Lines), synced.HasWords())
	return synced
}

func buildUnsynced(tokens []Token, trim bool) *lyrics.UnsyncedLyrics {
	var lines []lyrics.UnsyncedLine
	speaker := lyrics.SpeakerNone
	for _, tok := range tokens {
		switch tok.Kind {
		case SpeakerTag:
			speaker = tok.Speaker
		case InvalidText:
			text := tok.Text
			if trim {
				text = strings.TrimSpace(text)
			}
			lines = append(lines, lyrics.UnsyncedLine{Text: text, Speaker: speaker})
			if !speaker.IsWalaoke() {
				speaker = lyrics.SpeakerNone
			}
		}
	}

	speakers := make([]lyrics.Speaker, len(lines))
	for i, l := range lines {
		speakers[i] = l.Speaker
	}
	if lyrics.DefaultsToMale(speakers) {
		for i := range lines {
			if lines[i].Speaker == lyrics.SpeakerNone {
				lines[i].Speaker = lyrics.SpeakerMale
			}
		}
	}

	for len(lines) > 0 && strings.TrimSpace(lines[0].Text) == "" {
		lines = lines[1:]
	}
	return &lyrics.UnsyncedLyrics{Lines: lines}
}

// Parse tokenizes and builds LRC text. It returns nil for blank input.
func Parse(text string, opts lyrics.Options) lyrics.SemanticLyrics {
	tokens := Tokenize(text, opts.MultiLine)
	if tokens == nil {
		return nil
	}
	return Build(tokens, opts)
}
