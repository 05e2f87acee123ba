package ttml

import "encoding/xml"

const (
	nsTTML          = "http://www.w3.org/ns/ttml"
	nsParameter     = "http://www.w3.org/ns/ttml#parameter"
	nsMetadata      = "http://www.w3.org/ns/ttml#metadata"
	nsAppleInternal = "http://music.apple.com/lyric-ttml-internal"
	nsITunes        = "http://itunes.apple.com/lyric-ttml-extensions"
)

const roleBackground = "x-bg"

// =============================================================================
// HEAD XML STRUCTURES
// =============================================================================

type ttmlHead struct {
	Metadata []ttmlMetadata `xml:"metadata"`
}

type ttmlMetadata struct {
	Agents []ttmlAgent          `xml:"agent"`
	ITunes []ttmlITunesMetadata `xml:"iTunesMetadata"`
}

type ttmlAgent struct {
	ID   string `xml:"id,attr"`
	Type string `xml:"type,attr"`
}

type ttmlITunesMetadata struct {
	Translations []ttmlTranslation `xml:"translations>translation"`
}

type ttmlTranslation struct {
	Lang  string                `xml:"lang,attr"`
	Texts []ttmlTranslationText `xml:"text"`
}

type ttmlTranslationText struct {
	For  string `xml:"for,attr"`
	Text string `xml:",innerxml"`
}

// =============================================================================
// INTERMEDIATE
// =============================================================================

// textRecord is one text node buffered into a paragraph. Only text strictly
// inside a span below the paragraph's own timing level carries a time.
type textRecord struct {
	text   string
	br     bool
	timed  bool
	begin  uint64
	end    uint64
	hasEnd bool
	role   string
}

type paragraph struct {
	texts    []textRecord
	begin    uint64
	end      uint64
	hasEnd   bool
	timed    bool
	agent    string
	songPart string
	key      string
	role     string
}

// scope is the context handed from an element to its children
type scope struct {
	frame     frame
	agent     string
	role      string
	songPart  string
	key       string
	inPara    bool
	paraLevel int
	inSpan    bool
}

// attr returns the value of the attribute named local. A non-empty space also
// accepts the unprefixed attribute.
func attr(el xml.StartElement, local, space string) string {
	for _, a := range el.Attr {
		if a.Name.Local != local || a.Name.Space == "xmlns" {
			continue
		}
		if space == "" || a.Name.Space == space || a.Name.Space == "" {
			return a.Value
		}
	}
	return ""
}
