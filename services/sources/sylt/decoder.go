// Package sylt decodes ID3v2 synchronised lyrics (SYLT) frames
package sylt

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"lyrics-parser-go/logcolors"
	"lyrics-parser-go/services/lyrics"
	"lyrics-parser-go/services/parsers/bidi"

	log "github.com/sirupsen/logrus"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var (
	ErrUnsupportedTimestampFormat = errors.New("unsupported SYLT timestamp format")
	ErrTruncated                  = errors.New("truncated SYLT frame")
)

// Text encodings as numbered by ID3v2
const (
	EncodingISO88591 byte = 0
	EncodingUTF16    byte = 1
	EncodingUTF16BE  byte = 2
	EncodingUTF8     byte = 3
)

// Timestamp formats as numbered by ID3v2
const (
	TimestampMPEGFrames   byte = 1
	TimestampMilliseconds byte = 2
)

// Entry is one synchronised text fragment
type Entry struct {
	Text   string
	TimeMs uint32
}

// Frame is a decoded SYLT frame body
type Frame struct {
	Encoding        byte
	Language        string
	TimestampFormat byte
	ContentType     byte
	Descriptor      string
	Entries         []Entry
}

func textDecoder(enc byte) (*encoding.Decoder, error) {
	switch enc {
	case EncodingISO88591:
		return charmap.ISO8859_1.NewDecoder(), nil
	case EncodingUTF16:
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder(), nil
	case EncodingUTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder(), nil
	case EncodingUTF8:
		return unicode.UTF8.NewDecoder(), nil
	}
	return nil, fmt.Errorf("unknown SYLT text encoding %d", enc)
}

// readString splits a terminated string off data. UTF-16 strings end with an
// aligned double zero byte.
func readString(data []byte, enc byte) (text []byte, rest []byte, ok bool) {
	if enc == EncodingUTF16 || enc == EncodingUTF16BE {
		for i := 0; i+1 < len(data); i += 2 {
			if data[i] == 0 && data[i+1] == 0 {
				return data[:i], data[i+2:], true
			}
		}
		return nil, nil, false
	}
	i := bytes.IndexByte(data, 0)
	if i < 0 {
		return nil, nil, false
	}
	return data[:i], data[i+1:], true
}

// DecodeFrame parses the body of a SYLT frame
func DecodeFrame(data []byte) (*Frame, error) {
	if len(data) < 6 {
		return nil, ErrTruncated
	}
	f := &Frame{
		Encoding:        data[0],
		Language:        string(data[1:4]),
		TimestampFormat: data[4],
		ContentType:     data[5],
	}
	dec, err := textDecoder(f.Encoding)
	if err != nil {
		return nil, err
	}

	raw, rest, ok := readString(data[6:], f.Encoding)
	if !ok {
		return nil, fmt.Errorf("%w: descriptor", ErrTruncated)
	}
	descriptor, err := dec.Bytes(raw)
	if err != nil {
		return nil, fmt.Errorf("sylt descriptor: %w", err)
	}
	f.Descriptor = string(descriptor)

	for len(rest) > 0 {
		raw, rest, ok = readString(rest, f.Encoding)
		if !ok || len(rest) < 4 {
			return nil, fmt.Errorf("%w: entry %d", ErrTruncated, len(f.Entries))
		}
		text, err := dec.Bytes(raw)
		if err != nil {
			return nil, fmt.Errorf("sylt entry %d: %w", len(f.Entries), err)
		}
		f.Entries = append(f.Entries, Entry{Text: string(text), TimeMs: binary.BigEndian.Uint32(rest[:4])})
		rest = rest[4:]
	}
	return f, nil
}

// Syllables converts the entries of a millisecond based frame into syllables.
// An entry starting with a line break opens a new line.
func (f *Frame) Syllables() ([]lyrics.Syllable, error) {
	if f.TimestampFormat != TimestampMilliseconds {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedTimestampFormat, f.TimestampFormat)
	}
	syllables := make([]lyrics.Syllable, 0, len(f.Entries))
	for _, e := range f.Entries {
		text := strings.TrimLeft(e.Text, "\r\n")
		syllables = append(syllables, lyrics.Syllable{
			TimeMs:  uint64(e.TimeMs),
			Text:    text,
			NewLine: text != e.Text,
		})
	}
	return syllables, nil
}

// Parse decodes a SYLT frame body into synced lyrics. It returns nil when the
// frame has no entries.
func Parse(data []byte, opts lyrics.Options) (*lyrics.SyncedLyrics, error) {
	f, err := DecodeFrame(data)
	if err != nil {
		return nil, err
	}
	syllables, err := f.Syllables()
	if err != nil {
		return nil, err
	}
	log.Debugf("%s Decoded %d entries (lang: %s, descriptor: %q)", logcolors.LogSYLT, len(syllables), f.Language, f.Descriptor)
	if len(syllables) == 0 {
		return nil, nil
	}
	synced := &lyrics.SyncedLyrics{Lines: lyrics.BuildSyllableLines(syllables, opts.Trim, opts.Ratio())}
	bidi.Split(synced, opts.Ratio())
	return synced, nil
}
