package bidi

import (
	"strings"
	"testing"

	"lyrics-parser-go/services/lyrics"

	"github.com/brianvoe/gofakeit/v6"
)

func TestBarriers(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []Barrier
	}{
		{
			name:     "Empty",
			text:     "",
			expected: nil,
		},
		{
			name:     "Left to right only",
			text:     "hello world",
			expected: []Barrier{{Offset: -1, IsRtl: false}},
		},
		{
			name:     "Right to left only",
			text:     "שלום עולם",
			expected: []Barrier{{Offset: -1, IsRtl: true}},
		},
		{
			name:     "Mixed",
			text:     "hi שלום",
			expected: []Barrier{{Offset: -1, IsRtl: false}, {Offset: 3, IsRtl: true}},
		},
		{
			name:     "Leading neutral characters take the first strong direction",
			text:     "123 שלום abc",
			expected: []Barrier{{Offset: -1, IsRtl: true}, {Offset: 13, IsRtl: false}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Barriers(tt.text)
			if len(got) != len(tt.expected) {
				t.Fatalf("Expected %+v, got %+v", tt.expected, got)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("barrier %d = %+v, expected %+v", i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestSplitLine(t *testing.T) {
	t.Run("Word straddling a direction change is cut", func(t *testing.T) {
		text := "abשל"
		words := []lyrics.Word{{
			Time:  lyrics.TimeRange{Start: 1000, End: 1399},
			Chars: lyrics.CharRange{Start: 0, End: len(text)},
		}}

		got := SplitLine(text, words, lyrics.DefaultMillisPerChar)
		if len(got) != 2 {
			t.Fatalf("Expected 2 words, got %+v", got)
		}
		if got[0].Chars != (lyrics.CharRange{Start: 0, End: 2}) || got[0].IsRtl {
			t.Errorf("Unexpected first half %+v", got[0])
		}
		if got[1].Chars != (lyrics.CharRange{Start: 2, End: len(text)}) || !got[1].IsRtl {
			t.Errorf("Unexpected second half %+v", got[1])
		}
		// 400ms over 4 characters puts the cut 200ms in
		if got[0].Time != (lyrics.TimeRange{Start: 1000, End: 1199}) {
			t.Errorf("Unexpected first half time %+v", got[0].Time)
		}
		if got[1].Time != (lyrics.TimeRange{Start: 1200, End: 1399}) {
			t.Errorf("Unexpected second half time %+v", got[1].Time)
		}
	})

	t.Run("Whole words only get flagged", func(t *testing.T) {
		text := "hi שלום"
		words := []lyrics.Word{
			{Time: lyrics.TimeRange{Start: 0, End: 499}, Chars: lyrics.CharRange{Start: 0, End: 2}},
			{Time: lyrics.TimeRange{Start: 500, End: 999}, Chars: lyrics.CharRange{Start: 3, End: len(text)}},
		}

		got := SplitLine(text, words, lyrics.DefaultMillisPerChar)
		if len(got) != 2 {
			t.Fatalf("Expected 2 words, got %+v", got)
		}
		if got[0].IsRtl || !got[1].IsRtl {
			t.Errorf("Unexpected direction flags %+v", got)
		}
		if got[0].Time != words[0].Time || got[1].Time != words[1].Time {
			t.Errorf("Times must not change: %+v", got)
		}
	})

	t.Run("Word without time room stays whole", func(t *testing.T) {
		text := "abשל"
		words := []lyrics.Word{{
			Time:  lyrics.TimeRange{Start: 1000, End: 1000},
			Chars: lyrics.CharRange{Start: 0, End: len(text)},
		}}
		if got := SplitLine(text, words, lyrics.DefaultMillisPerChar); len(got) != 1 {
			t.Errorf("Expected the word to stay whole, got %+v", got)
		}
	})

	t.Run("Input is not modified", func(t *testing.T) {
		text := "abשל"
		words := []lyrics.Word{{
			Time:  lyrics.TimeRange{Start: 0, End: 999},
			Chars: lyrics.CharRange{Start: 0, End: len(text)},
		}}
		SplitLine(text, words, lyrics.DefaultMillisPerChar)
		if words[0].Chars.End != len(text) || words[0].IsRtl {
			t.Errorf("Input was modified: %+v", words[0])
		}
	})
}

func TestSplitSkipsLinesWithoutWords(t *testing.T) {
	synced := &lyrics.SyncedLyrics{Lines: []lyrics.LyricLine{{Text: "שלום", Start: 0, End: 10}}}
	Split(synced, lyrics.DefaultMillisPerChar)
	if synced.Lines[0].Words != nil {
		t.Errorf("Expected no words, got %+v", synced.Lines[0].Words)
	}
	Split(nil, lyrics.DefaultMillisPerChar)
}

var hebrewWords = []string{"שלום", "עולם", "אהבה", "לילה", "שמש"}

// TestSplitLineRandomInvariants checks on random mixed-direction lines that
// word ranges stay inside the text, sorted and disjoint, and that every word's
// flag matches the direction of its letters.
func TestSplitLineRandomInvariants(t *testing.T) {
	faker := gofakeit.New(7)

	pick := func() string {
		if faker.Bool() {
			return hebrewWords[faker.Number(0, len(hebrewWords)-1)]
		}
		return strings.ToLower(faker.Word())
	}

	for round := 0; round < 200; round++ {
		var text strings.Builder
		var words []lyrics.Word
		n := faker.Number(1, 8)
		for i := 0; i < n; i++ {
			if i > 0 {
				text.WriteString(" ")
			}
			start := text.Len()
			text.WriteString(pick())
			if faker.Bool() {
				// glue a second word on so the word may straddle a direction change
				text.WriteString(pick())
			}
			words = append(words, lyrics.Word{
				Time:  lyrics.TimeRange{Start: uint64(i * 1000), End: uint64(i*1000 + 999)},
				Chars: lyrics.CharRange{Start: start, End: text.Len()},
			})
		}
		line := text.String()

		got := SplitLine(line, words, lyrics.DefaultMillisPerChar)
		prevEnd := 0
		for i, w := range got {
			if w.Chars.Start < prevEnd || w.Chars.End > len(line) || w.Chars.Len() == 0 {
				t.Fatalf("round %d: bad range %+v at %d in %q", round, w.Chars, i, line)
			}
			prevEnd = w.Chars.End
			if w.Time.End < w.Time.Start {
				t.Fatalf("round %d: bad time %+v in %q", round, w.Time, line)
			}
			bs := Barriers(line[w.Chars.Start:w.Chars.End])
			if len(bs) != 1 {
				t.Fatalf("round %d: word %q still mixes directions", round, line[w.Chars.Start:w.Chars.End])
			}
			if bs[0].IsRtl != w.IsRtl {
				t.Errorf("round %d: word %q has IsRtl %v", round, line[w.Chars.Start:w.Chars.End], w.IsRtl)
			}
		}
	}
}
