package lyrics

import "strings"

// LegacyLine is the flattened line shape consumed by older clients
type LegacyLine struct {
	TimestampMs  *uint64 `json:"timestampMs" yaml:"timestampMs"`
	Text         string  `json:"text" yaml:"text"`
	IsTranslated bool    `json:"isTranslated" yaml:"isTranslated"`
}

// Flatten converts lyrics into legacy lines. Unsynced lyrics fold into a
// single untimed entry.
func Flatten(s SemanticLyrics) []LegacyLine {
	switch v := s.(type) {
	case *SyncedLyrics:
		out := make([]LegacyLine, len(v.Lines))
		for i, l := range v.Lines {
			start := l.Start
			out[i] = LegacyLine{TimestampMs: &start, Text: l.Text, IsTranslated: l.IsTranslated}
		}
		return out
	case *UnsyncedLyrics:
		return []LegacyLine{{Text: strings.Join(v.UnsyncedText(), "\n")}}
	default:
		return nil
	}
}
