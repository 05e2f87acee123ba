package lyrics

// =============================================================================
// SERIALIZED VIEW
// =============================================================================

const (
	DocumentSynced   = "synced"
	DocumentUnsynced = "unsynced"
)

// Document is the JSON/YAML representation of parsed lyrics
type Document struct {
	Type  string         `json:"type" yaml:"type"`
	Lines []DocumentLine `json:"lines" yaml:"lines"`
}

// DocumentLine is a serialized line. EndMs is omitted for lines without a
// bounding successor.
type DocumentLine struct {
	Text         string         `json:"text" yaml:"text"`
	StartMs      *uint64        `json:"startMs,omitempty" yaml:"startMs,omitempty"`
	EndMs        *uint64        `json:"endMs,omitempty" yaml:"endMs,omitempty"`
	Words        []DocumentWord `json:"words,omitempty" yaml:"words,omitempty"`
	Speaker      string         `json:"speaker,omitempty" yaml:"speaker,omitempty"`
	IsTranslated bool           `json:"isTranslated,omitempty" yaml:"isTranslated,omitempty"`
	IsClickable  bool           `json:"isClickable" yaml:"isClickable"`
}

// DocumentWord is a serialized word
type DocumentWord struct {
	Text      string `json:"text" yaml:"text"`
	StartMs   uint64 `json:"startMs" yaml:"startMs"`
	EndMs     uint64 `json:"endMs" yaml:"endMs"`
	CharStart int    `json:"charStart" yaml:"charStart"`
	CharEnd   int    `json:"charEnd" yaml:"charEnd"`
	IsRtl     bool   `json:"isRtl,omitempty" yaml:"isRtl,omitempty"`
}

// ToDocument converts lyrics into their serialized view
func ToDocument(s SemanticLyrics) *Document {
	switch v := s.(type) {
	case *SyncedLyrics:
		doc := &Document{Type: DocumentSynced, Lines: make([]DocumentLine, 0, len(v.Lines))}
		for _, l := range v.Lines {
			start := l.Start
			dl := DocumentLine{
				Text:         l.Text,
				StartMs:      &start,
				Speaker:      l.Speaker.String(),
				IsTranslated: l.IsTranslated,
				IsClickable:  l.IsClickable(),
			}
			if l.End != NoEnd {
				end := l.End
				dl.EndMs = &end
			}
			for _, w := range l.Words {
				dl.Words = append(dl.Words, DocumentWord{
					Text:      l.WordText(w),
					StartMs:   w.Time.Start,
					EndMs:     w.Time.End,
					CharStart: w.Chars.Start,
					CharEnd:   w.Chars.End,
					IsRtl:     w.IsRtl,
				})
			}
			doc.Lines = append(doc.Lines, dl)
		}
		return doc
	case *UnsyncedLyrics:
		doc := &Document{Type: DocumentUnsynced, Lines: make([]DocumentLine, 0, len(v.Lines))}
		for _, l := range v.Lines {
			doc.Lines = append(doc.Lines, DocumentLine{
				Text:        l.Text,
				Speaker:     l.Speaker.String(),
				IsClickable: l.Text != "",
			})
		}
		return doc
	default:
		return nil
	}
}

// Lyrics rebuilds the semantic value from a serialized document
func (d *Document) Lyrics() SemanticLyrics {
	if d == nil {
		return nil
	}
	if d.Type == DocumentUnsynced {
		out := &UnsyncedLyrics{Lines: make([]UnsyncedLine, len(d.Lines))}
		for i, l := range d.Lines {
			out.Lines[i] = UnsyncedLine{Text: l.Text, Speaker: ParseSpeaker(l.Speaker)}
		}
		return out
	}
	out := &SyncedLyrics{Lines: make([]LyricLine, len(d.Lines))}
	for i, l := range d.Lines {
		line := LyricLine{
			Text:         l.Text,
			End:          NoEnd,
			Speaker:      ParseSpeaker(l.Speaker),
			IsTranslated: l.IsTranslated,
		}
		if l.StartMs != nil {
			line.Start = *l.StartMs
		}
		if l.EndMs != nil {
			line.End = *l.EndMs
		}
		for _, w := range l.Words {
			line.Words = append(line.Words, Word{
				Time:  TimeRange{Start: w.StartMs, End: w.EndMs},
				Chars: CharRange{Start: w.CharStart, End: w.CharEnd},
				IsRtl: w.IsRtl,
			})
		}
		out.Lines[i] = line
	}
	return out
}

// ParseSpeaker is the inverse of Speaker.String
func ParseSpeaker(name string) Speaker {
	for s := SpeakerMale; s <= SpeakerBackground; s++ {
		if s.String() == name {
			return s
		}
	}
	return SpeakerNone
}
