package midi

import (
	"bytes"
	"errors"
	"testing"

	"lyrics-parser-go/services/lyrics"
)

// vlq encodes a MIDI variable length quantity
func vlq(v uint32) []byte {
	out := []byte{byte(v & 0x7F)}
	for v >>= 7; v > 0; v >>= 7 {
		out = append([]byte{byte(v&0x7F) | 0x80}, out...)
	}
	return out
}

func meta(delta uint32, kind byte, data []byte) []byte {
	ev := append(vlq(delta), 0xFF, kind)
	ev = append(ev, vlq(uint32(len(data)))...)
	return append(ev, data...)
}

func lyric(delta uint32, text string) []byte { return meta(delta, 0x05, []byte(text)) }
func text(delta uint32, s string) []byte    { return meta(delta, 0x01, []byte(s)) }

// tempo encodes a set tempo event in microseconds per quarter note
func tempo(delta uint32, usPerQuarter uint32) []byte {
	return meta(delta, 0x51, []byte{byte(usPerQuarter >> 16), byte(usPerQuarter >> 8), byte(usPerQuarter)})
}

func track(events ...[]byte) []byte {
	var body []byte
	for _, ev := range events {
		body = append(body, ev...)
	}
	body = append(body, 0x00, 0xFF, 0x2F, 0x00) // end of track
	n := len(body)
	chunk := []byte{0x4D, 0x54, 0x72, 0x6B, byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
	return append(chunk, body...)
}

func midiFile(division [2]byte, tracks ...[]byte) []byte {
	data := []byte{
		0x4D, 0x54, 0x68, 0x64, // MThd
		0x00, 0x00, 0x00, 0x06, // header length
		0x00, 0x01, // format 1
		0x00, byte(len(tracks)),
		division[0], division[1],
	}
	for _, tr := range tracks {
		data = append(data, tr...)
	}
	return data
}

var ticks480 = [2]byte{0x01, 0xE0}

func TestDecodeKaraoke(t *testing.T) {
	data := midiFile(ticks480,
		track(tempo(0, 500000)),
		track(
			text(0, "@KMIDI KARAOKE FILE"),
			lyric(0, "Hel"),
			lyric(240, "lo"),
			lyric(720, "/World"),
			lyric(480, " wide"),
		),
	)

	syllables, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	expected := []lyrics.Syllable{
		{TimeMs: 0, Text: "Hel"},
		{TimeMs: 250, Text: "lo"},
		{TimeMs: 1000, Text: "World", NewLine: true},
		{TimeMs: 1500, Text: " wide"},
	}
	if len(syllables) != len(expected) {
		t.Fatalf("Expected %d syllables, got %d: %+v", len(expected), len(syllables), syllables)
	}
	for i := range expected {
		if syllables[i] != expected[i] {
			t.Errorf("syllable %d = %+v, expected %+v", i, syllables[i], expected[i])
		}
	}
}

func TestDecodeTextEventsWhenNoLyrics(t *testing.T) {
	data := midiFile(ticks480,
		track(
			text(0, "@TTitle"),
			text(0, "[intro]"),
			text(480, "Hey\r"),
			text(480, "there"),
		),
	)

	syllables, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(syllables) != 2 {
		t.Fatalf("Expected 2 syllables, got %+v", syllables)
	}
	if syllables[0].Text != "Hey" || syllables[0].TimeMs != 500 {
		t.Errorf("Unexpected first syllable %+v", syllables[0])
	}
	if !syllables[1].NewLine || syllables[1].TimeMs != 1000 {
		t.Errorf("Expected a new line at 1000ms, got %+v", syllables[1])
	}
}

func TestTempoMap(t *testing.T) {
	m := tempoMap{
		ticksPerQuarter: 480,
		events:          []tempoEvent{{tick: 0, bpm: 120}, {tick: 960, bpm: 60}},
	}

	tests := []struct {
		tick     uint64
		expected uint64
	}{
		{0, 0},
		{480, 500},
		{960, 1000},
		{1440, 2000},
		{1920, 3000},
	}
	for _, tt := range tests {
		if got := m.millis(tt.tick); got != tt.expected {
			t.Errorf("millis(%d) = %d, expected %d", tt.tick, got, tt.expected)
		}
	}
}

func TestParse(t *testing.T) {
	data := midiFile(ticks480,
		track(tempo(0, 500000)),
		track(
			lyric(0, "Hel"),
			lyric(240, "lo"),
			lyric(720, "/World"),
			lyric(480, " wide"),
		),
	)

	synced, err := Parse(bytes.NewReader(data), lyrics.DefaultOptions())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(synced.Lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(synced.Lines))
	}

	first := synced.Lines[0]
	if first.Text != "Hello" || first.Start != 0 {
		t.Errorf("Unexpected first line %+v", first)
	}
	if len(first.Words) != 2 || first.Words[1].Time.End != 999 {
		t.Errorf("Expected the last word to end before the next line, got %+v", first.Words)
	}
	if second := synced.Lines[1]; second.Text != "World wide" || second.Start != 1000 {
		t.Errorf("Unexpected second line %+v", second)
	}
	for _, line := range synced.Lines {
		if line.End < line.Start {
			t.Errorf("line %q ends before it starts", line.Text)
		}
	}
}

func TestParseErrors(t *testing.T) {
	t.Run("SMPTE time format", func(t *testing.T) {
		data := midiFile([2]byte{0xE7, 0x28}, track(lyric(0, "x")))
		_, err := Parse(bytes.NewReader(data), lyrics.DefaultOptions())
		if !errors.Is(err, ErrUnsupportedTimeFormat) {
			t.Errorf("Expected ErrUnsupportedTimeFormat, got %v", err)
		}
	})

	t.Run("Not a MIDI file", func(t *testing.T) {
		if _, err := Parse(bytes.NewReader([]byte("[00:01.00] hi")), lyrics.DefaultOptions()); err == nil {
			t.Error("Expected an error")
		}
	})

	t.Run("No lyrics", func(t *testing.T) {
		synced, err := Parse(bytes.NewReader(midiFile(ticks480, track(tempo(0, 500000)))), lyrics.DefaultOptions())
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if synced != nil {
			t.Errorf("Expected nil lyrics, got %+v", synced)
		}
	})
}

func TestSMPTEDivision(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected bool
	}{
		{name: "Metric ticks", data: midiFile(ticks480, track(lyric(0, "x"))), expected: false},
		{name: "25 fps time code", data: midiFile([2]byte{0xE7, 0x28}, track(lyric(0, "x"))), expected: true},
		{name: "30 fps time code", data: midiFile([2]byte{0xE2, 0x50}, track(lyric(0, "x"))), expected: true},
		{name: "Truncated header", data: []byte("MThd\x00\x00"), expected: false},
		{name: "Not MIDI", data: []byte("[00:01.00] hi, there friend"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := smpteDivision(tt.data); got != tt.expected {
				t.Errorf("smpteDivision() = %v, want %v", got, tt.expected)
			}
		})
	}
}
