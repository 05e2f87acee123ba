package utils

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func TestCompressAndDecompress(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{
			name: "Short string",
			text: "Hello, world!",
		},
		{
			name: "Empty string",
			text: "",
		},
		{
			name: "Parsed lyrics document",
			text: `{"type":"synced","lines":[{"text":"Hello world","startMs":1000,"endMs":2999,"isClickable":true}]}`,
		},
		{
			name: "Long repetitive content",
			text: strings.Repeat("[00:01.00] la la la\n", 500),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compressed, err := Compress([]byte(tt.text))
			if err != nil {
				t.Fatalf("Compress failed: %v", err)
			}
			decompressed, err := Decompress(compressed)
			if err != nil {
				t.Fatalf("Decompress failed: %v", err)
			}
			if !bytes.Equal(decompressed, []byte(tt.text)) {
				t.Errorf("Round trip mismatch: expected %q, got %q", tt.text, decompressed)
			}
		})
	}
}

func TestCompressShrinksRepetitiveData(t *testing.T) {
	data := []byte(strings.Repeat("[00:01.00] la la la\n", 500))
	compressed, err := Compress(data)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if len(compressed) >= len(data) {
		t.Errorf("Expected compression, got %d >= %d", len(compressed), len(data))
	}
}

func TestDecompressInvalidData(t *testing.T) {
	if _, err := Decompress([]byte("not gzip")); err == nil {
		t.Error("Expected an error for invalid data")
	}
}

func TestCacheKey(t *testing.T) {
	a := CacheKey("lrc", "true", "[00:01.00]a")
	if len(a) != 64 {
		t.Errorf("Expected a hex sha256, got %q", a)
	}
	if a != CacheKey("lrc", "true", "[00:01.00]a") {
		t.Error("Expected a stable key")
	}
	if CacheKey("ab", "c") == CacheKey("a", "bc") {
		t.Error("Expected different keys for different splits")
	}
}

func TestResolveWithin(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name        string
		rel         string
		expected    string
		expectError bool
	}{
		{name: "Plain file", rel: "song.mp3", expected: filepath.Join(root, "song.mp3")},
		{name: "Nested", rel: "artist/album/song.mp3", expected: filepath.Join(root, "artist", "album", "song.mp3")},
		{name: "Dot segments inside root", rel: "artist/../song.mp3", expected: filepath.Join(root, "song.mp3")},
		{name: "Escape", rel: "../secret", expectError: true},
		{name: "Deep escape", rel: "a/../../secret", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveWithin(root, tt.rel)
			if tt.expectError {
				if err == nil {
					t.Errorf("Expected an error, got %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}

	if _, err := ResolveWithin("", "song.mp3"); err == nil {
		t.Error("Expected an error without a root")
	}
}
