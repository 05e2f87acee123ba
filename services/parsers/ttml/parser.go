// Package ttml parses Timed Text Markup Language lyrics, including the Apple
// Music dialect with its relaxed timestamps, agents and background roles.
package ttml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"

	"lyrics-parser-go/logcolors"
	"lyrics-parser-go/services/lyrics"

	log "github.com/sirupsen/logrus"
)

var (
	ErrMissingTime   = errors.New("paragraph has no time range")
	ErrUnexpectedTag = errors.New("unexpected tag")
)

var (
	entityRegex = regexp.MustCompile(`^&(?:([a-zA-Z][a-zA-Z0-9]*)|#[0-9]+|#[xX][0-9a-fA-F]+);`)
	tagRegex    = regexp.MustCompile(`<[^>]+>`)
	spaceRegex  = regexp.MustCompile(`[ \t\r\n]+`)
)

// parser holds what the head declares plus the finished paragraphs. The body
// walk itself passes its context down as scope values.
type parser struct {
	tracker      TimeTracker
	untimed      bool
	agentTypes   map[string]string
	agentsByType map[string][]string
	translations map[string][]string
	paragraphs   []paragraph
}

// escapeAmpersands replaces every & that does not start a known entity
func escapeAmpersands(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 16)
	for i := 0; i < len(s); i++ {
		if s[i] == '&' {
			m := entityRegex.FindStringSubmatch(s[i:])
			if m == nil || (m[1] != "" && !knownEntity(m[1])) {
				b.WriteString("&amp;")
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func knownEntity(name string) bool {
	switch name {
	case "amp", "lt", "gt", "quot", "apos":
		return true
	}
	_, ok := xml.HTMLEntity[name]
	return ok
}

// Parse parses a TTML document. It returns nil without an error when the text
// is not TTML, and an error when it is TTML but structurally broken.
func Parse(text string, opts lyrics.Options) (lyrics.SemanticLyrics, error) {
	text = escapeAmpersands(strings.TrimPrefix(text, "\ufeff"))
	d := xml.NewDecoder(strings.NewReader(text))
	d.Entity = xml.HTMLEntity

	root, ok := findRoot(d)
	if !ok {
		return nil, nil
	}
	if root.Name.Local != "tt" || root.Name.Space != nsTTML {
		log.Debugf("%s Root element %q (%s) is not TTML", logcolors.LogTTMLParser, root.Name.Local, root.Name.Space)
		return nil, nil
	}

	apple := strings.Contains(text, nsAppleInternal) || strings.Contains(text, nsITunes)
	tracker, err := NewTimeTracker(root, apple)
	if err != nil {
		return nil, fmt.Errorf("ttml header: %w", err)
	}
	p := &parser{
		tracker:      tracker,
		untimed:      strings.EqualFold(attr(root, "timing", nsAppleInternal), "none"),
		agentTypes:   make(map[string]string),
		agentsByType: make(map[string][]string),
		translations: make(map[string][]string),
	}
	log.Debugf("%s Parsing TTML (apple: %v, untimed: %v)", logcolors.LogTTMLParser, apple, p.untimed)

	if err := p.document(d); err != nil {
		return nil, err
	}

	if p.untimed {
		return p.unsynced(opts), nil
	}
	return p.synced(opts), nil
}

// findRoot returns the first element of the document. Anything that is not
// markup before it means the text is not XML at all.
func findRoot(d *xml.Decoder) (xml.StartElement, bool) {
	for {
		tok, err := d.Token()
		if err != nil {
			return xml.StartElement{}, false
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return t, true
		case xml.CharData:
			if strings.TrimSpace(string(t)) != "" {
				return xml.StartElement{}, false
			}
		case xml.EndElement:
			return xml.StartElement{}, false
		}
	}
}

// document consumes the children of the tt element
func (p *parser) document(d *xml.Decoder) error {
	for {
		tok, err := d.Token()
		if err == io.EOF {
			return fmt.Errorf("ttml: unexpected end of document")
		}
		if err != nil {
			return fmt.Errorf("ttml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Space == nsTTML && t.Name.Local == "head":
				var head ttmlHead
				if err := d.DecodeElement(&head, &t); err != nil {
					return fmt.Errorf("ttml head: %w", err)
				}
				p.readHead(head)
			case t.Name.Space == nsTTML && t.Name.Local == "body":
				if _, _, err := p.element(d, t, scope{}); err != nil {
					return err
				}
			default:
				if err := d.Skip(); err != nil {
					return fmt.Errorf("ttml: %w", err)
				}
			}
		case xml.EndElement:
			return nil
		}
	}
}

func (p *parser) readHead(head ttmlHead) {
	for _, md := range head.Metadata {
		for _, agent := range md.Agents {
			if agent.ID == "" {
				continue
			}
			p.agentTypes[agent.ID] = agent.Type
			p.agentsByType[agent.Type] = append(p.agentsByType[agent.Type], agent.ID)
		}
		for _, it := range md.ITunes {
			for _, tr := range it.Translations {
				for _, text := range tr.Texts {
					clean := strings.TrimSpace(html.UnescapeString(tagRegex.ReplaceAllString(text.Text, "")))
					if text.For == "" || clean == "" {
						continue
					}
					p.translations[text.For] = append(p.translations[text.For], clean)
				}
			}
		}
	}
	log.Debugf("%s Found %d agents and %d translated keys", logcolors.LogTTMLParser, len(p.agentTypes), len(p.translations))
}

// element walks one body element and its subtree. It returns the element's
// resolved frame and the text records a paragraph ancestor should buffer.
func (p *parser) element(d *xml.Decoder, start xml.StartElement, parent scope) (frame, []textRecord, error) {
	name := start.Name.Local
	if start.Name.Space != nsTTML {
		return parent.frame, nil, d.Skip()
	}
	switch name {
	case "metadata", "set", "animate", "layout", "styling", "region", "style":
		return parent.frame, nil, d.Skip()
	case "br":
		if !parent.inPara {
			return parent.frame, nil, d.Skip()
		}
		return parent.frame, []textRecord{{text: "\n", br: true, role: parent.role}}, d.Skip()
	case "body", "div":
		if parent.inPara {
			return parent.frame, nil, fmt.Errorf("%w: <%s> inside paragraph", ErrUnexpectedTag, name)
		}
	case "p":
		if parent.inPara {
			return parent.frame, nil, fmt.Errorf("%w: nested <p>", ErrUnexpectedTag)
		}
	case "span":
		if !parent.inPara {
			return parent.frame, nil, fmt.Errorf("%w: <span> outside paragraph", ErrUnexpectedTag)
		}
	default:
		return parent.frame, nil, fmt.Errorf("%w: <%s>", ErrUnexpectedTag, name)
	}

	fr, err := p.tracker.Resolve(parent.frame, start)
	if err != nil {
		return fr, nil, fmt.Errorf("ttml <%s>: %w", name, err)
	}

	sc := parent
	sc.frame = fr
	if v := attr(start, "agent", nsMetadata); v != "" {
		sc.agent = v
	}
	if v := attr(start, "role", nsMetadata); v != "" {
		sc.role = v
	}
	if v := attr(start, "songPart", ""); v != "" {
		sc.songPart = v
	} else if v := attr(start, "song-part", ""); v != "" {
		sc.songPart = v
	}
	if v := attr(start, "key", ""); v != "" {
		sc.key = v
	}
	switch name {
	case "p":
		sc.inPara = true
		sc.paraLevel = fr.level
	case "span":
		sc.inSpan = true
	}

	var texts []textRecord
loop:
	for {
		tok, err := d.Token()
		if err == io.EOF {
			return fr, nil, fmt.Errorf("ttml: unexpected end of document inside <%s>", name)
		}
		if err != nil {
			return fr, nil, fmt.Errorf("ttml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, childTexts, err := p.element(d, t, sc)
			if err != nil {
				return fr, nil, err
			}
			texts = append(texts, childTexts...)
			if sc.frame.seq && child.level > sc.frame.level {
				if child.hasEnd {
					sc.frame.cursor = child.end
				} else {
					sc.frame.cursor = child.begin
				}
			}
		case xml.CharData:
			if !sc.inPara {
				continue
			}
			rec := textRecord{text: string(t), role: sc.role}
			if sc.inSpan && fr.level > sc.paraLevel {
				rec.timed = true
				rec.begin, rec.end, rec.hasEnd = fr.begin, fr.end, fr.hasEnd
			}
			texts = append(texts, rec)
		case xml.EndElement:
			break loop
		}
	}

	if name != "p" {
		return fr, texts, nil
	}
	para, err := p.closeParagraph(sc, texts)
	if err != nil {
		return fr, nil, err
	}
	if len(para.texts) > 0 {
		p.paragraphs = append(p.paragraphs, para)
	}
	return fr, nil, nil
}

// closeParagraph normalizes the buffered text and checks the paragraph timing
func (p *parser) closeParagraph(sc scope, texts []textRecord) (paragraph, error) {
	for i := range texts {
		if !texts[i].br {
			texts[i].text = spaceRegex.ReplaceAllString(texts[i].text, " ")
		}
	}
	texts = trimBlank(texts)

	para := paragraph{
		texts:    texts,
		begin:    sc.frame.begin,
		end:      sc.frame.end,
		hasEnd:   sc.frame.hasEnd,
		timed:    sc.frame.level > 0,
		agent:    sc.agent,
		songPart: sc.songPart,
		key:      sc.key,
		role:     sc.role,
	}
	if p.untimed || len(texts) == 0 {
		return para, nil
	}

	if !para.timed {
		// a paragraph may still be timed entirely through its spans
		first := true
		for _, t := range texts {
			if !t.timed {
				continue
			}
			if first || t.begin < para.begin {
				para.begin = t.begin
			}
			first = false
		}
		if first {
			return para, fmt.Errorf("%w: %q", ErrMissingTime, joinTexts(texts))
		}
		para.timed = true
	}
	if !para.hasEnd {
		for _, t := range texts {
			if t.timed && t.hasEnd && (!para.hasEnd || t.end > para.end) {
				para.end, para.hasEnd = t.end, true
			}
		}
	}
	return para, nil
}

func trimBlank(texts []textRecord) []textRecord {
	for len(texts) > 0 && strings.TrimSpace(texts[0].text) == "" {
		texts = texts[1:]
	}
	for len(texts) > 0 && strings.TrimSpace(texts[len(texts)-1].text) == "" {
		texts = texts[:len(texts)-1]
	}
	return texts
}

func joinTexts(texts []textRecord) string {
	var b strings.Builder
	for _, t := range texts {
		b.WriteString(t.text)
	}
	return b.String()
}
