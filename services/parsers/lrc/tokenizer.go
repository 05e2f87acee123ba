package lrc

import (
	"regexp"
	"strconv"
	"strings"

	"lyrics-parser-go/logcolors"
	"lyrics-parser-go/services/lyrics"

	log "github.com/sirupsen/logrus"
)

// Kind identifies the variant of a syntactic token
type Kind int

const (
	SyncPoint Kind = iota
	WordSyncPoint
	SpeakerTag
	Metadata
	LyricText
	InvalidText
	NewLine
)

func (k Kind) String() string {
	switch k {
	case SyncPoint:
		return "SyncPoint"
	case WordSyncPoint:
		return "WordSyncPoint"
	case SpeakerTag:
		return "SpeakerTag"
	case Metadata:
		return "Metadata"
	case LyricText:
		return "LyricText"
	case InvalidText:
		return "InvalidText"
	case NewLine:
		return "NewLine"
	default:
		return "Unknown"
	}
}

// Token is one element of the syntactic LRC stream. Only the fields relevant
// to Kind are set.
type Token struct {
	Kind      Kind
	Timestamp uint64         // SyncPoint, WordSyncPoint
	Speaker   lyrics.Speaker // SpeakerTag
	Name      string         // Metadata
	Value     string         // Metadata
	Text      string         // LyricText, InvalidText
	Synthetic bool           // NewLine inserted at an inferred line boundary
}

func (t Token) isTimed() bool {
	return t.Kind == SyncPoint || t.Kind == WordSyncPoint
}

var (
	timeMarkRegex       = regexp.MustCompile(`^\[(\d+):(\d{2})([.:]\d+)?\]`)
	timeMarkAfterWs     = regexp.MustCompile(`^([ \t]+)\[(\d+):(\d{2})([.:]\d+)?\]`)
	wordTimeMarkRegex   = regexp.MustCompile(`^<(\d+):(\d{2})([.:]\d+)?>`)
	metadataRegex       = regexp.MustCompile(`^\[([a-zA-Z#]+):([^\]]*)\]`)
	speakerRegex        = regexp.MustCompile(`^ ?(v1|v2|v3|F|M|D): ?`)
	backgroundOpenRegex = regexp.MustCompile(`^\[bg: ?`)
)

var speakerTags = map[string]lyrics.Speaker{
	"v1": lyrics.SpeakerVoice1,
	"v2": lyrics.SpeakerVoice2,
	"v3": lyrics.SpeakerGroup,
	"F":  lyrics.SpeakerFemale,
	"M":  lyrics.SpeakerMale,
	"D":  lyrics.SpeakerDuet,
}

// parseTime converts the minute, second and fraction groups of a time mark
// into milliseconds. The fraction is read as a decimal fraction of a second.
func parseTime(minutes, seconds, fraction string) uint64 {
	m, _ := strconv.ParseUint(minutes, 10, 64)
	s, _ := strconv.ParseUint(seconds, 10, 64)
	ms := uint64(0)
	if len(fraction) > 1 {
		digits := fraction[1:]
		if len(digits) > 3 {
			digits = digits[:3]
		}
		for len(digits) < 3 {
			digits += "0"
		}
		ms, _ = strconv.ParseUint(digits, 10, 64)
	}
	return m*60*1000 + s*1000 + ms
}

type tokenizer struct {
	text         string
	pos          int
	out          []Token
	inBackground bool
}

func (t *tokenizer) last() *Token {
	if len(t.out) == 0 {
		return nil
	}
	return &t.out[len(t.out)-1]
}

func (t *tokenizer) lastIs(kinds ...Kind) bool {
	last := t.last()
	if last == nil {
		return false
	}
	for _, k := range kinds {
		if last.Kind == k {
			return true
		}
	}
	return false
}

func (t *tokenizer) atLineStart() bool {
	return len(t.out) == 0 || t.lastIs(NewLine)
}

// hasTimingOnLine reports whether a sync point appeared after the last newline
func (t *tokenizer) hasTimingOnLine() bool {
	for i := len(t.out) - 1; i >= 0; i-- {
		switch {
		case t.out[i].Kind == NewLine:
			return false
		case t.out[i].isTimed():
			return true
		}
	}
	return false
}

// backgroundSpeaker derives the background variant of the last speaker seen
func (t *tokenizer) backgroundSpeaker() lyrics.Speaker {
	for i := len(t.out) - 1; i >= 0; i-- {
		if t.out[i].Kind != SpeakerTag {
			continue
		}
		switch t.out[i].Speaker {
		case lyrics.SpeakerVoice2, lyrics.SpeakerVoice2Background:
			return lyrics.SpeakerVoice2Background
		case lyrics.SpeakerGroup, lyrics.SpeakerGroupBackground:
			return lyrics.SpeakerGroupBackground
		default:
			return lyrics.SpeakerBackground
		}
	}
	return lyrics.SpeakerBackground
}

func (t *tokenizer) appendText(kind Kind, text string) {
	if last := t.last(); last != nil && last.Kind == kind {
		last.Text += text
		return
	}
	t.out = append(t.out, Token{Kind: kind, Text: text})
}

// step consumes one syntactic element at the cursor
func (t *tokenizer) step() {
	rest := t.text[t.pos:]

	if strings.HasPrefix(rest, "\r\n") {
		t.out = append(t.out, Token{Kind: NewLine})
		t.pos += 2
		return
	}
	if rest[0] == '\n' || rest[0] == '\r' {
		t.out = append(t.out, Token{Kind: NewLine})
		t.pos++
		return
	}
	if t.inBackground && rest[0] == ']' {
		t.inBackground = false
		t.pos++
		if t.pos < len(t.text) && (t.text[t.pos] == '\n' || t.text[t.pos] == '\r') {
			return
		}
		t.out = append(t.out, Token{Kind: NewLine, Synthetic: true})
		return
	}
	if m := timeMarkRegex.FindStringSubmatch(rest); m != nil {
		// keeps several sync points on one line grouped while still splitting
		// lines that lack a line break before their sync point
		if !(len(t.out) == 0 || t.lastIs(NewLine, SyncPoint)) {
			t.out = append(t.out, Token{Kind: NewLine, Synthetic: true})
		}
		t.out = append(t.out, Token{Kind: SyncPoint, Timestamp: parseTime(m[1], m[2], m[3])})
		t.pos += len(m[0])
		return
	}
	if t.lastIs(SyncPoint) {
		if m := timeMarkAfterWs.FindStringSubmatch(rest); m != nil {
			t.pos += len(m[1])
			return
		}
		if m := speakerRegex.FindStringSubmatch(rest); m != nil {
			t.out = append(t.out, Token{Kind: SpeakerTag, Speaker: speakerTags[m[1]]})
			t.pos += len(m[0])
			return
		}
	}
	if t.atLineStart() {
		if m := backgroundOpenRegex.FindString(rest); m != "" {
			t.out = append(t.out, Token{Kind: SpeakerTag, Speaker: t.backgroundSpeaker()})
			t.inBackground = true
			t.pos += len(m)
			return
		}
		if m := metadataRegex.FindStringSubmatch(rest); m != nil {
			t.out = append(t.out, Token{Kind: Metadata, Name: m[1], Value: m[2]})
			t.pos += len(m[0])
			return
		}
	}
	if m := wordTimeMarkRegex.FindStringSubmatch(rest); m != nil {
		t.out = append(t.out, Token{Kind: WordSyncPoint, Timestamp: parseTime(m[1], m[2], m[3])})
		t.pos += len(m[0])
		return
	}

	end := strings.IndexFunc(rest, func(r rune) bool {
		return r == '[' || r == '<' || r == '\r' || r == '\n' || (t.inBackground && r == ']')
	})
	switch end {
	case -1:
		end = len(rest)
	case 0:
		end = 1
	}
	if t.hasTimingOnLine() {
		t.appendText(LyricText, rest[:end])
	} else {
		t.appendText(InvalidText, rest[:end])
	}
	t.pos += end
}

// Tokenize scans LRC source into a syntactic token stream. It returns nil for
// blank input.
func Tokenize(text string, multiLine bool) []Token {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	t := &tokenizer{text: strings.TrimPrefix(text, "\ufeff")}
	for t.pos < len(t.text) {
		t.step()
	}

	if t.lastIs(SyncPoint) {
		t.out = append(t.out, Token{Kind: InvalidText})
	}
	if !t.lastIs(NewLine) {
		t.out = append(t.out, Token{Kind: NewLine})
	}

	if !hasValidTimestamp(t.out) {
		log.Debugf("%s No usable timestamp, treating %d tokens as plain text", logcolors.LogLRC, len(t.out))
		return flattenUntimed(t.out)
	}
	if multiLine {
		return mergeMultiLine(t.out)
	}
	return t.out
}

func hasValidTimestamp(tokens []Token) bool {
	for _, tok := range tokens {
		if tok.isTimed() && tok.Timestamp > 0 {
			return true
		}
	}
	return false
}

// flattenUntimed reclassifies every text token as invalid text and drops the
// structural tokens. Text on one line is joined into one token, and a newline
// that closes an empty line becomes an empty text token so blank lines survive
// the conversion to plain text.
func flattenUntimed(tokens []Token) []Token {
	out := make([]Token, 0, len(tokens))
	lineHasText := false
	for _, tok := range tokens {
		switch tok.Kind {
		case LyricText, InvalidText:
			if lineHasText && out[len(out)-1].Kind == InvalidText {
				out[len(out)-1].Text += tok.Text
			} else {
				out = append(out, Token{Kind: InvalidText, Text: tok.Text})
			}
			lineHasText = true
		case SpeakerTag:
			out = append(out, tok)
		case NewLine:
			if !lineHasText && !tok.Synthetic {
				out = append(out, Token{Kind: InvalidText})
			}
			lineHasText = false
		}
	}
	return out
}

// mergeMultiLine folds untimed lines following a synced line into that line's
// text, separated by "\n".
func mergeMultiLine(tokens []Token) []Token {
	out := make([]Token, 0, len(tokens))
	var acc strings.Builder
	accumulating := false
	sawNewLine := false

	flush := func() {
		out = append(out, Token{Kind: LyricText, Text: strings.TrimRight(acc.String(), "\n")})
		if sawNewLine {
			out = append(out, Token{Kind: NewLine})
		}
		acc.Reset()
		accumulating = false
		sawNewLine = false
	}

	for _, tok := range tokens {
		switch {
		case tok.Kind == LyricText:
			accumulating = true
			acc.WriteString(tok.Text)
		case accumulating && tok.Kind == InvalidText:
			acc.WriteString(tok.Text)
		case accumulating && tok.Kind == NewLine && !tok.Synthetic:
			acc.WriteByte('\n')
			sawNewLine = true
		case accumulating:
			flush()
			if tok.Kind == NewLine && len(out) > 0 && out[len(out)-1].Kind == NewLine {
				continue
			}
			out = append(out, tok)
		default:
			out = append(out, tok)
		}
	}
	if accumulating {
		flush()
		if out[len(out)-1].Kind != NewLine {
			out = append(out, Token{Kind: NewLine})
		}
	}
	return out
}
