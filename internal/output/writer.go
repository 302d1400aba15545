// Package output writes run artefacts: the run summary (JSON or YAML) and
// the JSONL training-data export.
package output

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Format represents output format types.
type Format string

const (
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatYAML  Format = "yaml"
)

// ParseFormat accepts a format name case-insensitively; "yml" is YAML.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "jsonl", "ndjson":
		return FormatJSONL, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", s)
	}
}

// Writer serialises documents.
type Writer interface {
	// Write outputs a single document.
	Write(data any) error

	// Close flushes buffered data and releases resources.
	Close() error
}

// WriterOption configures a writer.
type WriterOption func(*writerConfig)

type writerConfig struct {
	indent string
}

// WithIndent sets the JSON indentation string. Empty means compact.
func WithIndent(indent string) WriterOption {
	return func(c *writerConfig) {
		c.indent = indent
	}
}

// NewWriter creates a writer for the specified format.
func NewWriter(w io.Writer, format Format, opts ...WriterOption) (Writer, error) {
	cfg := &writerConfig{indent: "  "}
	for _, opt := range opts {
		opt(cfg)
	}

	switch format {
	case FormatJSON:
		return NewJSONWriter(w, cfg.indent), nil
	case FormatJSONL:
		return NewJSONLWriter(w), nil
	case FormatYAML:
		return NewYAMLWriter(w), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// Create opens path (truncating it, creating parent directories) and
// returns a writer that closes the file on Close.
func Create(path string, format Format, opts ...WriterOption) (Writer, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path) //#nosec G304 -- CLI tool writes to user-specified file
	if err != nil {
		return nil, err
	}
	w, err := NewWriter(f, format, opts...)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &fileWriter{Writer: w, f: f}, nil
}

// WriteFile writes a single document to path.
func WriteFile(path string, format Format, data any) error {
	w, err := Create(path, format)
	if err != nil {
		return err
	}
	if err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

type fileWriter struct {
	Writer
	f *os.File
}

func (w *fileWriter) Close() error {
	return errors.Join(w.Writer.Close(), w.f.Close())
}
