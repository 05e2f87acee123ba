package ttml

import (
	"sort"
	"strings"

	"lyrics-parser-go/logcolors"
	"lyrics-parser-go/services/lyrics"
	"lyrics-parser-go/services/parsers/bidi"

	log "github.com/sirupsen/logrus"
)

// run is a stretch of a paragraph's text records sharing one role
type run struct {
	role  string
	texts []textRecord
}

// splitRuns cuts a paragraph at role changes. Whitespace-only records stay
// with the run before them.
func splitRuns(texts []textRecord) []run {
	var runs []run
	for _, t := range texts {
		blank := strings.TrimSpace(t.text) == "" && !t.br
		if len(runs) > 0 && (blank || runs[len(runs)-1].role == t.role) {
			runs[len(runs)-1].texts = append(runs[len(runs)-1].texts, t)
			continue
		}
		runs = append(runs, run{role: t.role, texts: []textRecord{t}})
	}

	out := runs[:0]
	for _, r := range runs {
		r.texts = trimBlank(r.texts)
		if len(r.texts) == 0 {
			continue
		}
		if r.role == roleBackground {
			stripParens(r.texts)
		}
		out = append(out, r)
	}
	return out
}

// stripParens removes the parentheses enclosing a background run. They are
// only removed when the opening parenthesis closes at the very end of the run.
func stripParens(texts []textRecord) {
	first := &texts[0]
	first.text = strings.TrimLeft(first.text, " ")
	last := &texts[len(texts)-1]
	last.text = strings.TrimRight(last.text, " ")

	if !enclosed(texts) {
		return
	}
	first.text = strings.TrimPrefix(first.text, "(")
	last.text = strings.TrimSuffix(last.text, ")")
}

func enclosed(texts []textRecord) bool {
	var b strings.Builder
	for _, t := range texts {
		b.WriteString(t.text)
	}
	s := b.String()
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return false
	}
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(s)-1 {
				return false
			}
		}
	}
	return depth == 0
}

// speaker classifies a run from its paragraph agent and role. The second
// agent of each type is the second voice.
func (p *parser) speaker(agent, role string) lyrics.Speaker {
	background := role == roleBackground
	if agent == "" {
		if background {
			return lyrics.SpeakerBackground
		}
		return lyrics.SpeakerNone
	}

	agentType := p.agentTypes[agent]
	if agentType == "group" {
		if background {
			return lyrics.SpeakerGroupBackground
		}
		return lyrics.SpeakerGroup
	}

	voice2 := false
	for i, id := range p.agentsByType[agentType] {
		if id == agent {
			voice2 = i%2 == 1
			break
		}
	}
	switch {
	case background && voice2:
		return lyrics.SpeakerVoice2Background
	case background:
		return lyrics.SpeakerBackground
	case voice2:
		return lyrics.SpeakerVoice2
	default:
		return lyrics.SpeakerVoice1
	}
}

// inclusiveEnd converts an exclusive TTML end into an inclusive line end
func inclusiveEnd(begin, end uint64, hasEnd bool) uint64 {
	if !hasEnd {
		return lyrics.NoEnd
	}
	if end <= begin {
		return begin
	}
	return end - 1
}

// runLine builds one line out of a run. single marks a paragraph that was
// not split, which keeps the paragraph's own range.
func runLine(para paragraph, r run, single bool) lyrics.LyricLine {
	var text strings.Builder
	var words []lyrics.Word
	for i, t := range r.texts {
		chars := lyrics.CharRange{Start: text.Len(), End: text.Len() + len(t.text)}
		text.WriteString(t.text)
		if !t.timed {
			continue
		}

		end, hasEnd := t.end, t.hasEnd
		if !hasEnd {
			// an open span ends where the next timed span starts
			for _, next := range r.texts[i+1:] {
				if next.timed {
					end, hasEnd = next.begin, true
					break
				}
			}
			if !hasEnd {
				end, hasEnd = para.end, para.hasEnd
			}
		}
		words = append(words, lyrics.Word{
			Time:  lyrics.TimeRange{Start: t.begin, End: inclusiveEnd(t.begin, end, hasEnd)},
			Chars: chars,
		})
	}

	line := lyrics.LyricLine{
		Text:  text.String(),
		Start: para.begin,
		End:   inclusiveEnd(para.begin, para.end, para.hasEnd),
	}
	lineText := line.Text
	trimmed := words[:0]
	for _, w := range words {
		w.Chars = lyrics.TrimmedRange(lineText, w.Chars)
		if w.Chars.Len() > 0 {
			trimmed = append(trimmed, w)
		}
	}
	if len(trimmed) > 0 {
		line.Words = trimmed
		if !single {
			line.Start = trimmed[0].Time.Start
			line.End = trimmed[0].Time.End
			for _, w := range trimmed {
				if w.Time.Start < line.Start {
					line.Start = w.Time.Start
				}
				if w.Time.End > line.End || w.Time.End == lyrics.NoEnd {
					line.End = w.Time.End
				}
			}
		}
	}
	return line
}

func (p *parser) synced(opts lyrics.Options) *lyrics.SyncedLyrics {
	var lines []lyrics.LyricLine
	for _, para := range p.paragraphs {
		runs := splitRuns(para.texts)
		translated := false
		for _, r := range runs {
			line := runLine(para, r, len(runs) == 1)
			role := r.role
			if role == "" {
				role = para.role
			}
			line.Speaker = p.speaker(para.agent, role)
			if opts.Trim {
				line.Text, line.Words = lyrics.TrimLine(line.Text, line.Words)
			}
			lines = append(lines, line)

			if translated || role == roleBackground || para.key == "" {
				continue
			}
			translated = true
			for _, tr := range p.translations[para.key] {
				lines = append(lines, lyrics.LyricLine{
					Text:         tr,
					Start:        line.Start,
					End:          line.End,
					Speaker:      line.Speaker,
					IsTranslated: true,
				})
			}
		}
	}

	sort.SliceStable(lines, func(i, j int) bool { return lines[i].Start < lines[j].Start })
	for i := range lines {
		if lines[i].End != lyrics.NoEnd {
			continue
		}
		for _, next := range lines[i+1:] {
			if next.Start > lines[i].Start {
				lines[i].End = next.Start - 1
				break
			}
		}
	}

	synced := &lyrics.SyncedLyrics{Lines: lines}
	bidi.Split(synced, opts.Ratio())
	log.Debugf("%s Built %d lines from %d paragraphs", logcolors.LogTTMLParser, len(lines), len(p.paragraphs))
	return synced
}

func (p *parser) unsynced(opts lyrics.Options) *lyrics.UnsyncedLyrics {
	var lines []lyrics.UnsyncedLine
	for _, para := range p.paragraphs {
		for _, r := range splitRuns(para.texts) {
			text := joinTexts(r.texts)
			if opts.Trim {
				text = strings.TrimSpace(text)
			}
			role := r.role
			if role == "" {
				role = para.role
			}
			lines = append(lines, lyrics.UnsyncedLine{Text: text, Speaker: p.speaker(para.agent, role)})
		}
	}
	log.Debugf("%s Built %d unsynced lines", logcolors.LogTTMLParser, len(lines))
	return &lyrics.UnsyncedLyrics{Lines: lines}
}
