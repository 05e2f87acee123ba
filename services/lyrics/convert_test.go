package lyrics

import (
	"encoding/json"
	"testing"
)

func sampleSynced() *SyncedLyrics {
	return &SyncedLyrics{Lines: []LyricLine{
		{
			Text:    "Hello world",
			Start:   1000,
			End:     2999,
			Speaker: SpeakerVoice1,
			Words: []Word{
				{Time: TimeRange{Start: 1000, End: 1499}, Chars: CharRange{Start: 0, End: 5}},
				{Time: TimeRange{Start: 1500, End: 2999}, Chars: CharRange{Start: 6, End: 11}},
			},
		},
		{Text: "Hola mundo", Start: 1000, End: 2999, IsTranslated: true},
		{Text: " ", Start: 3000, End: NoEnd},
	}}
}

func TestFlatten(t *testing.T) {
	t.Run("Synced", func(t *testing.T) {
		got := Flatten(sampleSynced())
		if len(got) != 3 {
			t.Fatalf("Expected 3 entries, got %d", len(got))
		}
		if got[0].TimestampMs == nil || *got[0].TimestampMs != 1000 || got[0].Text != "Hello world" {
			t.Errorf("Unexpected entry %+v", got[0])
		}
		if !got[1].IsTranslated {
			t.Error("Expected translation flag to survive")
		}
	})

	t.Run("Unsynced folds into one entry", func(t *testing.T) {
		got := Flatten(&UnsyncedLyrics{Lines: []UnsyncedLine{{Text: "a"}, {Text: "b"}}})
		if len(got) != 1 || got[0].TimestampMs != nil || got[0].Text != "a\nb" {
			t.Errorf("Unexpected entries %+v", got)
		}
	})

	t.Run("Nil", func(t *testing.T) {
		if got := Flatten(nil); got != nil {
			t.Errorf("Expected nil, got %+v", got)
		}
	})
}

func TestScoreAndBest(t *testing.T) {
	unsynced := &UnsyncedLyrics{Lines: []UnsyncedLine{{Text: "a"}}}
	lineSynced := &SyncedLyrics{Lines: []LyricLine{{Text: "a", Start: 1}}}
	wordSynced := sampleSynced()

	if Score(nil) != 0 || Score(unsynced) != 1 || Score(lineSynced) != 2 || Score(wordSynced) != 5 {
		t.Errorf("Unexpected scores %d %d %d %d", Score(nil), Score(unsynced), Score(lineSynced), Score(wordSynced))
	}

	tests := []struct {
		name       string
		candidates []SemanticLyrics
		expected   SemanticLyrics
	}{
		{"Empty", nil, nil},
		{"Skips nil", []SemanticLyrics{nil, unsynced}, unsynced},
		{"Richest wins", []SemanticLyrics{unsynced, wordSynced, lineSynced}, wordSynced},
		{"Tie keeps the earlier", []SemanticLyrics{lineSynced, &SyncedLyrics{}}, lineSynced},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Best(tt.candidates); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	original := sampleSynced()
	doc := ToDocument(original)

	if doc.Type != DocumentSynced {
		t.Fatalf("Expected synced document, got %s", doc.Type)
	}
	if doc.Lines[0].Words[1].Text != "world" {
		t.Errorf("Expected word text 'world', got %q", doc.Lines[0].Words[1].Text)
	}
	if doc.Lines[2].EndMs != nil {
		t.Errorf("Expected open end to be omitted, got %d", *doc.Lines[2].EndMs)
	}
	if doc.Lines[2].IsClickable {
		t.Error("Blank line must not be clickable")
	}

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Document
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	back, ok := decoded.Lyrics().(*SyncedLyrics)
	if !ok {
		t.Fatalf("Expected synced lyrics, got %T", decoded.Lyrics())
	}
	for i, line := range original.Lines {
		got := back.Lines[i]
		if got.Text != line.Text || got.Start != line.Start || got.End != line.End ||
			got.Speaker != line.Speaker || got.IsTranslated != line.IsTranslated || len(got.Words) != len(line.Words) {
			t.Errorf("line %d = %+v, expected %+v", i, got, line)
		}
	}
}

func TestUnsyncedDocument(t *testing.T) {
	doc := ToDocument(&UnsyncedLyrics{Lines: []UnsyncedLine{{Text: "a", Speaker: SpeakerMale}, {Text: ""}}})
	if doc.Type != DocumentUnsynced || doc.Lines[0].StartMs != nil {
		t.Errorf("Unexpected document %+v", doc)
	}
	back := doc.Lyrics().(*UnsyncedLyrics)
	if back.Lines[0].Speaker != SpeakerMale || back.Lines[1].Text != "" {
		t.Errorf("Unexpected lines %+v", back.Lines)
	}
}
