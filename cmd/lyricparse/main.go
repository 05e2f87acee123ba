// Command lyricparse parses a lyric file and prints the result.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"lyrics-parser-go/config"
	"lyrics-parser-go/services/lyrics"
	"lyrics-parser-go/services/parsers"
	"lyrics-parser-go/services/sources/midi"
	"lyrics-parser-go/services/sources/sidecar"
	"lyrics-parser-go/services/sources/sylt"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	exitOK       = 0
	exitError    = 1
	exitNoLyrics = 2
)

var errNoLyrics = errors.New("no lyrics found")

type cliFlags struct {
	Format    string
	Trim      bool
	MultiLine bool
	ErrorText string
	Output    string
	Source    string
	Verbose   bool
	Path      string

	errorTextSet bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func parseFlags(args []string, stderr io.Writer) (*cliFlags, error) {
	defaults := config.Get().ParseOptions()
	f := &cliFlags{}

	fs := flag.NewFlagSet("lyricparse", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.Format, "format", "", "force a text format: lrc, ttml or srt")
	fs.BoolVar(&f.Trim, "trim", defaults.Trim, "trim whitespace around lines")
	fs.BoolVar(&f.MultiLine, "multiline", defaults.MultiLine, "merge untimed LRC lines into the previous line")
	fs.StringVar(&f.ErrorText, "error-text", "", "text shown instead of a TTML/SRT parse failure")
	fs.StringVar(&f.Output, "o", "json", "output: json, yaml or legacy")
	fs.StringVar(&f.Source, "source", "text", "input kind: text, sidecar, sylt or midi")
	fs.BoolVar(&f.Verbose, "v", false, "debug logging")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: lyricparse [flags] <path|->\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, errors.New("expected exactly one path")
	}
	f.Path = fs.Arg(0)
	fs.Visit(func(fl *flag.Flag) {
		if fl.Name == "error-text" {
			f.errorTextSet = true
		}
	})

	switch f.Output {
	case "json", "yaml", "legacy":
	default:
		return nil, fmt.Errorf("unknown output: %s", f.Output)
	}
	return f, nil
}

func (f *cliFlags) options() lyrics.Options {
	opts := config.Get().ParseOptions()
	opts.Trim = f.Trim
	opts.MultiLine = f.MultiLine
	if f.errorTextSet {
		text := f.ErrorText
		opts.ErrorText = &text
	}
	return opts
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	log.SetOutput(stderr)
	log.SetLevel(log.WarnLevel)

	f, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "lyricparse: %v\n", err)
		return exitError
	}
	if f.Verbose {
		log.SetLevel(log.DebugLevel)
	}

	result, format, err := load(f, stdin)
	if errors.Is(err, errNoLyrics) || errors.Is(err, sidecar.ErrNoSidecar) {
		fmt.Fprintf(stderr, "lyricparse: %v\n", err)
		return exitNoLyrics
	}
	if err != nil {
		fmt.Fprintf(stderr, "lyricparse: %v\n", err)
		return exitError
	}

	if err := write(stdout, f.Output, format, result); err != nil {
		fmt.Fprintf(stderr, "lyricparse: %v\n", err)
		return exitError
	}
	return exitOK
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// load runs the pipeline selected by -source
func load(f *cliFlags, stdin io.Reader) (lyrics.SemanticLyrics, string, error) {
	opts := f.options()

	if f.Source == "sidecar" {
		if f.Path == "-" {
			return nil, "", errors.New("sidecar source needs a media path")
		}
		result, err := sidecar.Load(f.Path, opts)
		return result, "sidecar", err
	}

	data, err := readInput(f.Path, stdin)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read input: %w", err)
	}

	var result lyrics.SemanticLyrics
	var format string
	switch f.Source {
	case "text":
		hint, err := parsers.ParseFormat(f.Format)
		if err != nil {
			return nil, "", err
		}
		var detected parsers.Format
		result, detected, err = parsers.Parse(string(data), opts, hint)
		if err != nil {
			return nil, "", err
		}
		format = string(detected)
	case "sylt":
		synced, err := sylt.Parse(data, opts)
		if err != nil {
			return nil, "", err
		}
		if synced != nil {
			result = synced
		}
		format = "sylt"
	case "midi":
		synced, err := midi.Parse(bytes.NewReader(data), opts)
		if err != nil {
			return nil, "", err
		}
		if synced != nil {
			result = synced
		}
		format = "midi"
	default:
		return nil, "", fmt.Errorf("unknown source: %s", f.Source)
	}

	if result == nil {
		return nil, format, errNoLyrics
	}
	return result, format, nil
}

type output struct {
	Format          string `json:"format" yaml:"format"`
	lyrics.Document `yaml:",inline"`
}

type legacyOutput struct {
	Format string              `json:"format" yaml:"format"`
	Lines  []lyrics.LegacyLine `json:"lines" yaml:"lines"`
}

func write(w io.Writer, kind, format string, result lyrics.SemanticLyrics) error {
	switch kind {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(output{Format: format, Document: *lyrics.ToDocument(result)}); err != nil {
			return err
		}
		return enc.Close()
	case "legacy":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(legacyOutput{Format: format, Lines: lyrics.Flatten(result)})
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(output{Format: format, Document: *lyrics.ToDocument(result)})
	}
}
