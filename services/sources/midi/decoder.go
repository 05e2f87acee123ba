// Package midi extracts timed lyrics from karaoke MIDI files (.kar and .mid
// files carrying lyric meta events)
package midi

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"lyrics-parser-go/logcolors"
	"lyrics-parser-go/services/lyrics"
	"lyrics-parser-go/services/parsers/bidi"

	log "github.com/sirupsen/logrus"
	"gitlab.com/gomidi/midi/v2/smf"
)

var ErrUnsupportedTimeFormat = errors.New("unsupported MIDI time format, expected metric ticks")

// tempoEvent is a tempo change at an absolute tick
type tempoEvent struct {
	tick uint64
	bpm  float64
}

// tempoMap converts absolute ticks to milliseconds
type tempoMap struct {
	ticksPerQuarter float64
	events          []tempoEvent
}

func extractTempoMap(s *smf.SMF, ticksPerQuarter float64) tempoMap {
	var events []tempoEvent
	for _, track := range s.Tracks {
		var tick uint64
		for _, ev := range track {
			tick += uint64(ev.Delta)
			var bpm float64
			if ev.Message.GetMetaTempo(&bpm) && bpm > 0 {
				events = append(events, tempoEvent{tick: tick, bpm: bpm})
			}
		}
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].tick < events[j].tick })
	if len(events) == 0 || events[0].tick > 0 {
		// MIDI default until the first tempo event
		events = append([]tempoEvent{{tick: 0, bpm: 120}}, events...)
	}
	return tempoMap{ticksPerQuarter: ticksPerQuarter, events: events}
}

func (m tempoMap) millis(tick uint64) uint64 {
	var ms float64
	for i, ev := range m.events {
		if ev.tick >= tick {
			break
		}
		end := tick
		if i+1 < len(m.events) && m.events[i+1].tick < tick {
			end = m.events[i+1].tick
		}
		ms += float64(end-ev.tick) * 60000 / (ev.bpm * m.ticksPerQuarter)
	}
	return uint64(ms + 0.5)
}

type textEvent struct {
	tick  uint64
	text  string
	lyric bool
}

// smpteDivision reports whether the MThd header declares SMPTE time code
// instead of ticks per quarter note (high bit of the division word)
func smpteDivision(data []byte) bool {
	if len(data) < 14 || !bytes.HasPrefix(data, []byte("MThd")) {
		return false
	}
	return binary.BigEndian.Uint16(data[12:14])&0x8000 != 0
}

// readSMF wraps smf.ReadFrom, turning a panic inside the decoder into an error
func readSMF(data []byte) (s *smf.SMF, err error) {
	defer func() {
		if p := recover(); p != nil {
			log.Warnf("%s Decoder panic: %v", logcolors.LogMIDI, p)
			s, err = nil, fmt.Errorf("midi: malformed file: %v", p)
		}
	}()
	s, err = smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("midi: %w", err)
	}
	return s, nil
}

// Decode reads a standard MIDI file and returns its lyric syllables in time
// order. Lyric meta events win over text meta events when both are present.
func Decode(r io.Reader) ([]lyrics.Syllable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("midi: %w", err)
	}
	if smpteDivision(data) {
		return nil, ErrUnsupportedTimeFormat
	}
	s, err := readSMF(data)
	if err != nil {
		return nil, err
	}
	ticks, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, ErrUnsupportedTimeFormat
	}
	tempo := extractTempoMap(s, float64(ticks))

	var events []textEvent
	hasLyrics := false
	for _, track := range s.Tracks {
		var tick uint64
		for _, ev := range track {
			tick += uint64(ev.Delta)
			var text string
			switch {
			case ev.Message.GetMetaLyric(&text):
				events = append(events, textEvent{tick: tick, text: text, lyric: true})
				hasLyrics = true
			case ev.Message.GetMetaText(&text):
				events = append(events, textEvent{tick: tick, text: text})
			}
		}
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].tick < events[j].tick })

	var syllables []lyrics.Syllable
	pendingBreak := false
	for _, ev := range events {
		if ev.lyric != hasLyrics {
			continue
		}
		text := ev.text
		// karaoke header fields and bracketed markers are not lyrics
		if strings.HasPrefix(text, "@") || strings.HasPrefix(text, "[") {
			continue
		}
		newLine := pendingBreak
		if strings.HasPrefix(text, "/") || strings.HasPrefix(text, "\\") {
			newLine = true
			text = text[1:]
		}
		if trimmed := strings.TrimLeft(text, "\r\n"); trimmed != text {
			newLine = true
			text = trimmed
		}
		trimmed := strings.TrimRight(text, "\r\n")
		pendingBreak = trimmed != text
		text = trimmed
		if text == "" {
			pendingBreak = pendingBreak || newLine
			continue
		}
		syllables = append(syllables, lyrics.Syllable{
			TimeMs:  tempo.millis(ev.tick),
			Text:    text,
			NewLine: newLine,
		})
	}
	log.Debugf("%s Decoded %d syllables (lyric events: %v)", logcolors.LogMIDI, len(syllables), hasLyrics)
	return syllables, nil
}

// Parse decodes a karaoke MIDI file into synced lyrics. It returns nil when
// the file carries no lyrics.
func Parse(r io.Reader, opts lyrics.Options) (*lyrics.SyncedLyrics, error) {
	syllables, err := Decode(r)
	if err != nil {
		return nil, err
	}
	if len(syllables) == 0 {
		return nil, nil
	}
	synced := &lyrics.SyncedLyrics{Lines: lyrics.BuildSyllableLines(syllables, opts.Trim, opts.Ratio())}
	bidi.Split(synced, opts.Ratio())
	return synced, nil
}
