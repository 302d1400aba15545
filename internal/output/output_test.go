package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

type testItem struct {
	Name  string `json:"name" yaml:"name"`
	Value int    `json:"value" yaml:"value"`
}

// --- Factory Tests ---

func TestNewWriter(t *testing.T) {
	tests := []struct {
		format  Format
		want    string
		wantErr bool
	}{
		{FormatJSON, "*output.JSONWriter", false},
		{FormatJSONL, "*output.JSONLWriter", false},
		{FormatYAML, "*output.YAMLWriter", false},
		{Format("csv"), "", true},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			w, err := NewWriter(&bytes.Buffer{}, tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewWriter() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !strings.Contains(err.Error(), "unsupported") {
					t.Errorf("error = %v", err)
				}
				return
			}
			if got := fmt.Sprintf("%T", w); got != tt.want {
				t.Errorf("NewWriter() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"json":  FormatJSON,
		"JSON":  FormatJSON,
		"jsonl": FormatJSONL,
		"yml":   FormatYAML,
		" yaml": FormatYAML,
	}
	for in, want := range tests {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) should fail")
	}
}

// --- JSON Tests ---

func TestJSONWriter_Indent(t *testing.T) {
	tests := []struct {
		name      string
		indent    string
		wantMulti bool
	}{
		{"pretty", "  ", true},
		{"compact", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			w := NewJSONWriter(buf, tt.indent)
			if err := w.Write(testItem{Name: "a<b", Value: 1}); err != nil {
				t.Fatal(err)
			}
			if err := w.Close(); err != nil {
				t.Fatal(err)
			}

			var got testItem
			if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if got.Name != "a<b" {
				t.Errorf("Name = %q", got.Name)
			}
			if lines := strings.Count(strings.TrimSpace(buf.String()), "\n"); (lines > 0) != tt.wantMulti {
				t.Errorf("output %q, multi-line = %v", buf.String(), lines > 0)
			}
			if strings.Contains(buf.String(), `\u003c`) {
				t.Error("HTML characters should not be escaped")
			}
		})
	}
}

// --- JSONL Tests ---

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestJSONLWriter_LinePerWrite(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSONLWriter(buf)

	for i, name := range []string{"first", "second"} {
		if err := w.Write(testItem{Name: name, Value: i}); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		// Flushed without Close.
		if got := strings.Count(buf.String(), "\n"); got != i+1 {
			t.Fatalf("after write %d: %d lines", i+1, got)
		}
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var second testItem
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatal(err)
	}
	if second.Name != "second" || second.Value != 1 {
		t.Errorf("second = %+v", second)
	}
}

func TestJSONLWriter_WriteError(t *testing.T) {
	w := NewJSONLWriter(failingWriter{})
	if err := w.Write(testItem{Name: "x"}); err == nil {
		t.Error("expected error from failing writer")
	}
}

// --- YAML Tests ---

func TestYAMLWriter_MultiDocument(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewYAMLWriter(buf)
	_ = w.Write(testItem{Name: "first", Value: 1})
	_ = w.Write(testItem{Name: "second", Value: 2})
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(buf.Bytes()))
	var names []string
	for {
		var item testItem
		err := dec.Decode(&item)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		names = append(names, item.Name)
	}
	if strings.Join(names, ",") != "first,second" {
		t.Errorf("documents = %v", names)
	}
}

// --- File Tests ---

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		file      string
		format    Format
		unmarshal func([]byte, any) error
	}{
		{"sub/summary.json", FormatJSON, json.Unmarshal},
		{"summary.yaml", FormatYAML, yaml.Unmarshal},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			if err := WriteFile(path, tt.format, testItem{Name: "run", Value: 3}); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}
			raw, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			var got testItem
			if err := tt.unmarshal(raw, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.Name != "run" || got.Value != 3 {
				t.Errorf("got %+v", got)
			}
		})
	}
}

func TestCreate_UnsupportedFormatLeavesNoHandle(t *testing.T) {
	if _, err := Create(filepath.Join(t.TempDir(), "x.csv"), Format("csv")); err == nil {
		t.Fatal("expected error")
	}
}
