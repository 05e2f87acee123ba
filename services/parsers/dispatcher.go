package parsers

import (
	"errors"

	"lyrics-parser-go/logcolors"
	"lyrics-parser-go/services/lyrics"

	log "github.com/sirupsen/logrus"
)

// Candidate is one piece of raw lyric text offered for parsing, with an
// optional forced format
type Candidate struct {
	Text   string
	Format Format
}

// errorLyrics wraps the configured error text as a single unsynced line
func errorLyrics(text string) *lyrics.UnsyncedLyrics {
	return &lyrics.UnsyncedLyrics{Lines: []lyrics.UnsyncedLine{{Text: text}}}
}

// Parse tries hint alone, or every registered format in priority order when
// hint is empty, and returns the first non-nil result with its format. A
// failing attempt stops the search: the error text is returned in its place
// when one is configured, otherwise the error is. Nothing matching yields a
// nil result and no error.
func (r *Registry) Parse(text string, opts lyrics.Options, hint Format) (lyrics.SemanticLyrics, Format, error) {
	formats := r.List()
	if hint != "" {
		formats = []Format{hint}
	}

	for _, f := range formats {
		p, err := r.Get(f)
		if err != nil {
			return nil, "", err
		}
		result, err := p.Parse(text, opts)
		if err != nil {
			perr := NewParseError(f, "parse failed", err)
			if opts.ErrorText != nil {
				log.Warnf("%s %v, substituting error text", logcolors.LogDispatcher, perr)
				return errorLyrics(*opts.ErrorText), f, nil
			}
			return nil, f, perr
		}
		if result != nil {
			log.Debugf("%s Parsed as %s", logcolors.LogDispatcher, logcolors.Format(string(f)))
			return result, f, nil
		}
		log.Debugf("%s Not %s, trying next format", logcolors.LogDispatcher, f)
	}
	return nil, "", nil
}

// ParseBest parses every candidate and keeps the best result. Candidates are
// expected best-first; ties keep the earlier one. A candidate that fails is
// skipped unless error text is configured, and its error is only returned
// when no candidate produced lyrics.
func (r *Registry) ParseBest(candidates []Candidate, opts lyrics.Options) (lyrics.SemanticLyrics, error) {
	results := make([]lyrics.SemanticLyrics, 0, len(candidates))
	var errs []error
	for _, c := range candidates {
		result, _, err := r.Parse(c.Text, opts, c.Format)
		if err != nil {
			log.Warnf("%s Skipping candidate: %v", logcolors.LogDispatcher, err)
			errs = append(errs, err)
			continue
		}
		results = append(results, result)
	}

	best := lyrics.Best(results)
	if best == nil && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return best, nil
}

// Parse is a convenience function that parses with the global registry
func Parse(text string, opts lyrics.Options, hint Format) (lyrics.SemanticLyrics, Format, error) {
	return GetRegistry().Parse(text, opts, hint)
}

// ParseBest is a convenience function that ranks candidates with the global registry
func ParseBest(candidates []Candidate, opts lyrics.Options) (lyrics.SemanticLyrics, error) {
	return GetRegistry().ParseBest(candidates, opts)
}
