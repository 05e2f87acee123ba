package sylt

import (
	"encoding/binary"
	"errors"
	"testing"

	"lyrics-parser-go/services/lyrics"

	"golang.org/x/text/encoding/unicode"
)

type testEntry struct {
	text string
	ms   uint32
}

// buildFrame assembles a SYLT body. encode turns a string into the raw bytes
// of the frame's text encoding, terminator excluded.
func buildFrame(t *testing.T, enc, format byte, encode func(string) []byte, descriptor string, entries ...testEntry) []byte {
	t.Helper()
	terminator := []byte{0}
	if enc == EncodingUTF16 || enc == EncodingUTF16BE {
		terminator = []byte{0, 0}
	}
	data := []byte{enc, 'e', 'n', 'g', format, 1}
	data = append(data, encode(descriptor)...)
	data = append(data, terminator...)
	for _, e := range entries {
		data = append(data, encode(e.text)...)
		data = append(data, terminator...)
		data = binary.BigEndian.AppendUint32(data, e.ms)
	}
	return data
}

func utf8Bytes(s string) []byte { return []byte(s) }

func TestDecodeFrame(t *testing.T) {
	utf16 := func(s string) []byte {
		b, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(s))
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		return b
	}
	utf16be := func(s string) []byte {
		b, err := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder().Bytes([]byte(s))
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		return b
	}
	latin1 := func(s string) []byte {
		out := make([]byte, 0, len(s))
		for _, r := range s {
			out = append(out, byte(r))
		}
		return out
	}

	tests := []struct {
		name   string
		enc    byte
		encode func(string) []byte
	}{
		{"ISO-8859-1", EncodingISO88591, latin1},
		{"UTF-16 with BOM", EncodingUTF16, utf16},
		{"UTF-16BE", EncodingUTF16BE, utf16be},
		{"UTF-8", EncodingUTF8, utf8Bytes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := buildFrame(t, tt.enc, TimestampMilliseconds, tt.encode, "Lyrics",
				testEntry{"Café", 1000}, testEntry{" crème", 1500})

			f, err := DecodeFrame(data)
			if err != nil {
				t.Fatalf("DecodeFrame failed: %v", err)
			}
			if f.Language != "eng" || f.Descriptor != "Lyrics" {
				t.Errorf("Unexpected header %+v", f)
			}
			expected := []Entry{{Text: "Café", TimeMs: 1000}, {Text: " crème", TimeMs: 1500}}
			if len(f.Entries) != len(expected) {
				t.Fatalf("Expected %d entries, got %+v", len(expected), f.Entries)
			}
			for i := range expected {
				if f.Entries[i] != expected[i] {
					t.Errorf("entry %d = %+v, expected %+v", i, f.Entries[i], expected[i])
				}
			}
		})
	}
}

func TestDecodeFrameErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"Too short", []byte{3, 'e', 'n'}},
		{"Unterminated descriptor", []byte{3, 'e', 'n', 'g', 2, 1, 'a', 'b'}},
		{"Missing timestamp", append(buildFrame(t, EncodingUTF8, 2, utf8Bytes, ""), 'x', 0, 0, 1)},
		{"Unknown encoding", []byte{9, 'e', 'n', 'g', 2, 1, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeFrame(tt.data); err == nil {
				t.Error("Expected an error")
			}
		})
	}

	_, err := DecodeFrame([]byte{3, 'e', 'n'})
	if !errors.Is(err, ErrTruncated) {
		t.Errorf("Expected ErrTruncated, got %v", err)
	}
}

func TestParse(t *testing.T) {
	data := buildFrame(t, EncodingUTF8, TimestampMilliseconds, utf8Bytes, "",
		testEntry{"Hello", 1000},
		testEntry{" world", 1500},
		testEntry{"\nNext", 3000},
		testEntry{" line", 3500},
	)

	synced, err := Parse(data, lyrics.DefaultOptions())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(synced.Lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(synced.Lines))
	}

	first := synced.Lines[0]
	if first.Text != "Hello world" || first.Start != 1000 {
		t.Errorf("Unexpected first line %+v", first)
	}
	if len(first.Words) != 2 {
		t.Fatalf("Expected 2 words, got %+v", first.Words)
	}
	if first.Words[0].Time != (lyrics.TimeRange{Start: 1000, End: 1499}) {
		t.Errorf("Unexpected first word time %+v", first.Words[0].Time)
	}
	if first.Words[1].Time != (lyrics.TimeRange{Start: 1500, End: 2999}) {
		t.Errorf("Unexpected second word time %+v", first.Words[1].Time)
	}
	if got := first.WordText(first.Words[1]); got != "world" {
		t.Errorf("Expected 'world', got %q", got)
	}

	second := synced.Lines[1]
	if second.Text != "Next line" || second.Start != 3000 {
		t.Errorf("Unexpected second line %+v", second)
	}
}

func TestParseRejectsMPEGFrames(t *testing.T) {
	data := buildFrame(t, EncodingUTF8, TimestampMPEGFrames, utf8Bytes, "", testEntry{"x", 10})
	_, err := Parse(data, lyrics.DefaultOptions())
	if !errors.Is(err, ErrUnsupportedTimestampFormat) {
		t.Errorf("Expected ErrUnsupportedTimestampFormat, got %v", err)
	}
}

func TestParseEmptyFrame(t *testing.T) {
	data := buildFrame(t, EncodingUTF8, TimestampMilliseconds, utf8Bytes, "")
	synced, err := Parse(data, lyrics.DefaultOptions())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if synced != nil {
		t.Errorf("Expected nil lyrics, got %+v", synced)
	}
}
