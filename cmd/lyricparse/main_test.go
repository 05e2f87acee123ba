package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

const testLRC = "[00:01.00]Hello\n[00:02.00]World\n"

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunJSONFromStdin(t *testing.T) {
	code, out, errOut := runCLI(t, testLRC, "-")
	if code != exitOK {
		t.Fatalf("Expected exit 0, got %d: %s", code, errOut)
	}

	var doc struct {
		Format string `json:"format"`
		Type   string `json:"type"`
		Lines  []struct {
			Text string `json:"text"`
		} `json:"lines"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("Failed to decode output %q: %v", out, err)
	}
	if doc.Format != "lrc" || doc.Type != "synced" || len(doc.Lines) != 2 || doc.Lines[1].Text != "World" {
		t.Errorf("Unexpected output: %+v", doc)
	}
}

func TestRunYAMLFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.lrc")
	if err := os.WriteFile(path, []byte(testLRC), 0644); err != nil {
		t.Fatal(err)
	}

	code, out, errOut := runCLI(t, "", "-o", "yaml", path)
	if code != exitOK {
		t.Fatalf("Expected exit 0, got %d: %s", code, errOut)
	}

	var doc map[string]interface{}
	if err := yaml.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("Failed to decode yaml: %v", err)
	}
	if doc["format"] != "lrc" || doc["type"] != "synced" {
		t.Errorf("Expected inline document fields, got %v", doc)
	}
}

func TestRunLegacy(t *testing.T) {
	code, out, _ := runCLI(t, testLRC, "-o", "legacy", "-")
	if code != exitOK {
		t.Fatalf("Expected exit 0, got %d", code)
	}
	var legacy legacyOutput
	if err := json.Unmarshal([]byte(out), &legacy); err != nil {
		t.Fatalf("Failed to decode legacy output: %v", err)
	}
	if len(legacy.Lines) != 2 || legacy.Lines[0].TimestampMs == nil || *legacy.Lines[0].TimestampMs != 1000 {
		t.Errorf("Unexpected legacy lines: %+v", legacy.Lines)
	}
}

func TestRunSidecar(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "song.lrc"), []byte(testLRC), 0644); err != nil {
		t.Fatal(err)
	}

	if code, _, errOut := runCLI(t, "", "-source", "sidecar", filepath.Join(dir, "song.mp3")); code != exitOK {
		t.Errorf("Expected exit 0, got %d: %s", code, errOut)
	}
	if code, _, _ := runCLI(t, "", "-source", "sidecar", filepath.Join(dir, "other.mp3")); code != exitNoLyrics {
		t.Errorf("Expected exit %d for missing sidecar, got %d", exitNoLyrics, code)
	}
}

func TestRunErrors(t *testing.T) {
	brokenTTML := `<tt xmlns="http://www.w3.org/ns/ttml"><body><p>no time</p></body></tt>`

	tests := []struct {
		name  string
		stdin string
		args  []string
		code  int
	}{
		{"no path", "", nil, exitError},
		{"unknown output", testLRC, []string{"-o", "xml", "-"}, exitError},
		{"unknown source", testLRC, []string{"-source", "tape", "-"}, exitError},
		{"unknown format", testLRC, []string{"-format", "xml", "-"}, exitError},
		{"missing file", "", []string{filepath.Join(t.TempDir(), "missing.lrc")}, exitError},
		{"broken ttml", brokenTTML, []string{"-"}, exitError},
		{"sidecar from stdin", "", []string{"-source", "sidecar", "-"}, exitError},
		{"truncated sylt", "\x03en", []string{"-source", "sylt", "-"}, exitError},
		{"empty sylt frame", "\x03eng\x02\x01\x00", []string{"-source", "sylt", "-"}, exitNoLyrics},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, _ := runCLI(t, tt.stdin, tt.args...)
			if code != tt.code {
				t.Errorf("Expected exit %d, got %d", tt.code, code)
			}
		})
	}
}

func TestRunErrorText(t *testing.T) {
	brokenTTML := `<tt xmlns="http://www.w3.org/ns/ttml"><body><p>no time</p></body></tt>`

	code, out, errOut := runCLI(t, brokenTTML, "-error-text", "Unavailable", "-")
	if code != exitOK {
		t.Fatalf("Expected exit 0, got %d: %s", code, errOut)
	}
	if !strings.Contains(out, `"Unavailable"`) || !strings.Contains(out, `"unsynced"`) {
		t.Errorf("Expected error text as unsynced lyrics, got %s", out)
	}
}
