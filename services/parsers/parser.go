// Package parsers holds the format registry and the dispatcher that tries
// raw lyric text against every known format.
package parsers

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"lyrics-parser-go/services/lyrics"
	"lyrics-parser-go/services/parsers/lrc"
	"lyrics-parser-go/services/parsers/srt"
	"lyrics-parser-go/services/parsers/ttml"
)

// Format identifies a lyric text format
type Format string

const (
	FormatLRC  Format = "lrc"
	FormatTTML Format = "ttml"
	FormatSRT  Format = "srt"
)

// Priority is the order formats are tried in when no format is forced.
// Strict formats come first so LRC never swallows them.
var Priority = []Format{FormatTTML, FormatSRT, FormatLRC}

// ParseFormat validates a format name. The empty string means "any format".
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	switch f {
	case "", FormatLRC, FormatTTML, FormatSRT:
		return f, nil
	}
	return "", fmt.Errorf("unknown format: %s", name)
}

// Parser defines the interface every format parser implements
type Parser interface {
	// Format returns the format this parser handles
	Format() Format

	// Parse parses text. A nil result without an error means the text does
	// not belong to this format.
	Parse(text string, opts lyrics.Options) (lyrics.SemanticLyrics, error)
}

type lrcParser struct{}

func (lrcParser) Format() Format { return FormatLRC }

func (lrcParser) Parse(text string, opts lyrics.Options) (lyrics.SemanticLyrics, error) {
	return lrc.Parse(text, opts), nil
}

type ttmlParser struct{}

func (ttmlParser) Format() Format { return FormatTTML }

func (ttmlParser) Parse(text string, opts lyrics.Options) (lyrics.SemanticLyrics, error) {
	return ttml.Parse(text, opts)
}

type srtParser struct{}

func (srtParser) Format() Format { return FormatSRT }

func (srtParser) Parse(text string, opts lyrics.Options) (lyrics.SemanticLyrics, error) {
	return srt.Parse(text, opts)
}

// Registry holds the registered parsers
type Registry struct {
	mu      sync.RWMutex
	parsers map[Format]Parser
}

var (
	globalRegistry *Registry
	registryOnce   sync.Once
)

// NewRegistry returns a registry with the built-in parsers registered
func NewRegistry() *Registry {
	r := &Registry{parsers: make(map[Format]Parser)}
	r.Register(ttmlParser{})
	r.Register(srtParser{})
	r.Register(lrcParser{})
	return r
}

// GetRegistry returns the global parser registry
func GetRegistry() *Registry {
	registryOnce.Do(func() {
		globalRegistry = NewRegistry()
	})
	return globalRegistry
}

// Register adds a parser to the registry, replacing any parser for the same format
func (r *Registry) Register(p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsers[p.Format()] = p
}

// Get retrieves the parser for a format
func (r *Registry) Get(f Format) (Parser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.parsers[f]
	if !ok {
		return nil, fmt.Errorf("parser not found: %s", f)
	}
	return p, nil
}

// List returns all registered formats in probing order
func (r *Registry) List() []Format {
	r.mu.RLock()
	defer r.mu.RUnlock()

	formats := make([]Format, 0, len(r.parsers))
	for f := range r.parsers {
		formats = append(formats, f)
	}
	sort.Slice(formats, func(i, j int) bool {
		return rank(formats[i]) < rank(formats[j])
	})
	return formats
}

// Has checks if a parser is registered for a format
func (r *Registry) Has(f Format) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.parsers[f]
	return ok
}

// rank orders known formats by Priority and unknown ones after them by name
func rank(f Format) string {
	for i, p := range Priority {
		if p == f {
			return fmt.Sprintf("%d", i)
		}
	}
	return fmt.Sprintf("%d:%s", len(Priority), f)
}

// ParseError is a structural failure of one format attempt
type ParseError struct {
	Format  Format
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return string(e.Format) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Format) + ": " + e.Message
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format Format, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		Message: message,
		Err:     err,
	}
}
